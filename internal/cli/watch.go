package cli

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/roach88/tensorgen/internal/codegen"
	"github.com/roach88/tensorgen/internal/compiler"
	"github.com/roach88/tensorgen/internal/driver"
	"github.com/roach88/tensorgen/internal/store"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Out        string // directory for .ll files; empty reports only
	Cache      string
	Triple     string
	DataLayout string
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Recompile IR documents when they change",
		Long: `Watch a directory tree and rebuild each IR document when it is written.

Every document is built once at startup. Each document is its own module,
named after the file. With --out, module text is written to <out>/<module>.ll.
Runs until interrupted.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Out, "out", "", "output directory for .ll files")
	cmd.Flags().StringVar(&opts.Cache, "cache", "", "artifact cache database")
	cmd.Flags().StringVar(&opts.Triple, "triple", "", "target triple")
	cmd.Flags().StringVar(&opts.DataLayout, "datalayout", "", "target data layout")

	return cmd
}

// syncWriter serialises writes from the event loop and the build loop.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// watchEvent is one line of JSON watch output.
type watchEvent struct {
	Source string     `json:"source"`
	Module string     `json:"module,omitempty"`
	Hash   string     `json:"hash,omitempty"`
	Cached bool       `json:"cached,omitempty"`
	Output string     `json:"output,omitempty"`
	Errors []CLIError `json:"errors,omitempty"`
}

func runWatch(opts *WatchOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	formatter.Writer = &syncWriter{w: formatter.Writer}
	cfg := opts.config()

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("not a directory: %s", dir), nil)
	}
	if opts.Out != "" {
		if err := os.MkdirAll(opts.Out, 0755); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, err.Error(), nil)
		}
	}

	driverOpts := []driver.Option{
		driver.WithMode(driver.ModeCollectAll),
		driver.WithTarget(pick(opts.Triple, cfg.TargetTriple), pick(opts.DataLayout, cfg.DataLayout)),
		driver.WithUnitOptions(codegen.WithLogger(slog.Default())),
	}
	if cachePath := pick(opts.Cache, cfg.Cache); cachePath != "" {
		st, err := store.Open(cachePath)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeCacheFailed, err.Error(), nil)
		}
		defer st.Close()
		driverOpts = append(driverOpts, driver.WithStore(st))
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("create watcher: %v", err), nil)
	}
	defer watcher.Close()
	if err := watchTree(watcher, dir); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeScanError, err.Error(), nil)
	}

	w := &rebuilder{opts: opts, formatter: formatter, queue: driver.NewQueue()}

	ctx := cmd.Context()
	served := make(chan error, 1)
	go func() {
		served <- driver.New(driverOpts...).Serve(ctx, w.queue, w.handle)
	}()

	files, err := compiler.FindDocuments(dir)
	if err != nil {
		w.queue.Close()
		<-served
		return formatter.Fail(ExitCommandError, ErrCodeScanError, err.Error(), nil)
	}
	for _, path := range files {
		w.enqueue(path)
	}
	formatter.VerboseLog("Watching %s (%d document(s))", dir, len(files))

	watchErrs := watcher.Errors
	for {
		select {
		case <-ctx.Done():
			w.queue.Close()
			<-served
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				w.queue.Close()
				return <-served
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watchTree(watcher, event.Name); err != nil {
						slog.Warn("watch directory", "dir", event.Name, "error", err)
					}
					continue
				}
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if compiler.IsDocument(event.Name) {
					w.enqueue(event.Name)
				}
			}
		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			slog.Warn("watcher error", "error", err)
		}
	}
}

// watchTree adds dir and every directory below it to the watcher.
func watchTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}

// rebuilder loads changed documents and reports finished builds.
type rebuilder struct {
	opts      *WatchOptions
	formatter *OutputFormatter
	queue     *driver.Queue
}

// enqueue loads path and queues a build. Documents that fail to load are
// reported and skipped; the next write retries.
func (w *rebuilder) enqueue(path string) {
	doc, err := compiler.LoadFile(path)
	if err == nil {
		if verrs := compiler.Validate(doc); len(verrs) > 0 {
			err = &compiler.DocumentError{File: path, Errors: verrs}
		}
	}
	if err != nil {
		w.report(watchEvent{Source: path, Errors: describeErrors([]error{err})})
		return
	}
	w.queue.Enqueue(driver.Request{
		Module:    defaultModuleName(path),
		Functions: doc.Functions,
		Source:    path,
	})
}

func (w *rebuilder) handle(r driver.Request, res *driver.Result, err error) {
	ev := watchEvent{Source: r.Source, Module: r.Module}
	if err != nil {
		if res != nil {
			for _, f := range res.Failed() {
				ev.Errors = append(ev.Errors, CLIError{Code: ErrCodeBuildFailed, Message: f.Err.Error(), Details: map[string]any{"func": f.Name}})
			}
		}
		if len(ev.Errors) == 0 {
			ev.Errors = []CLIError{{Code: ErrCodeBuildFailed, Message: err.Error()}}
		}
		w.report(ev)
		return
	}

	ev.Hash = res.Hash
	ev.Cached = res.Cached
	if w.opts.Out != "" {
		out := filepath.Join(w.opts.Out, r.Module+".ll")
		if err := os.WriteFile(out, []byte(res.Text), 0644); err != nil {
			ev.Errors = []CLIError{{Code: ErrCodeWriteFailed, Message: err.Error()}}
		} else {
			ev.Output = out
		}
	}
	w.report(ev)
}

func (w *rebuilder) report(ev watchEvent) {
	f := w.formatter
	if f.IsJSON() {
		resp := CLIResponse{Status: "ok", Data: ev}
		if len(ev.Errors) > 0 {
			resp = CLIResponse{Status: "error", Data: ev, Error: &ev.Errors[0]}
		}
		if err := f.encode(resp); err != nil {
			slog.Warn("write watch event", "error", err)
		}
		return
	}

	if len(ev.Errors) > 0 {
		fmt.Fprintf(f.Writer, "✗ %s\n", ev.Source)
		for _, e := range ev.Errors {
			fmt.Fprintf(f.Writer, "    %s\n", formatCLIError(e))
		}
		return
	}
	cached := ""
	if ev.Cached {
		cached = " (cached)"
	}
	if ev.Output != "" {
		fmt.Fprintf(f.Writer, "✓ %s -> %s%s\n", ev.Source, ev.Output, cached)
		return
	}
	fmt.Fprintf(f.Writer, "✓ %s%s\n", ev.Source, cached)
}
