package driver

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/tensorgen/internal/ir"
)

// Request asks for one build.
type Request struct {
	Module    string
	Functions []*ir.Function
	// Source names where the request came from, for logging.
	Source string
}

// Queue is an unbounded FIFO of build requests. Enqueue is safe from any
// goroutine; Serve drains it from one.
type Queue struct {
	mu       sync.Mutex
	requests []Request
	closed   bool
	signal   chan struct{} // buffered, size 1
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{signal: make(chan struct{}, 1)}
}

// Enqueue adds a request. Returns false if the queue is closed.
func (q *Queue) Enqueue(r Request) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.requests = append(q.requests, r)

	// Non-blocking: the buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// tryDequeue removes the front request without blocking. done is true
// once the queue is closed and drained.
func (q *Queue) tryDequeue() (r Request, ok, done bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.requests) == 0 {
		return Request{}, false, q.closed
	}
	r = q.requests[0]
	q.requests[0] = Request{}
	q.requests = q.requests[1:]
	return r, true, false
}

// Len returns the number of pending requests.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.requests)
}

// Close stops accepting requests. Pending requests are still served.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

// Serve builds queued requests in FIFO order until the queue is closed and
// drained or ctx ends. handle is called with every outcome; a failed build
// is logged and serving continues.
func (d *Driver) Serve(ctx context.Context, q *Queue, handle func(Request, *Result, error)) error {
	slog.Info("driver serving")

	for {
		r, ok, done := q.tryDequeue()
		if ok {
			res, err := d.Build(ctx, r.Module, r.Functions)
			if err != nil {
				slog.Error("build failed", "module", r.Module, "source", r.Source, "error", err)
			}
			if handle != nil {
				handle(r, res, err)
			}
			continue
		}
		if done {
			slog.Info("driver stopping: queue closed")
			return nil
		}

		select {
		case <-ctx.Done():
			slog.Info("driver stopping: context cancelled")
			q.Close()
			return ctx.Err()
		case <-q.signal:
		}
	}
}
