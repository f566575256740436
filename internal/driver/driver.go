package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/tensorgen/internal/codegen"
	"github.com/roach88/tensorgen/internal/ir"
	"github.com/roach88/tensorgen/internal/store"
)

// Mode controls how a build reacts to a function that fails to compile.
type Mode int

const (
	// ModeFailFast stops at the first failing function.
	ModeFailFast Mode = iota
	// ModeCollectAll compiles every function and reports all failures.
	ModeCollectAll
)

// Driver runs builds. Construct with New; safe for concurrent use.
type Driver struct {
	store    *store.Store
	ids      IDGenerator
	clock    *Clock
	seeded   atomic.Bool
	mode     Mode
	triple   string
	layout   string
	unitOpts []codegen.UnitOption
}

// Option configures a Driver.
type Option func(*Driver)

// WithStore caches artifacts in s. Without a store every build compiles.
func WithStore(s *store.Store) Option {
	return func(d *Driver) {
		d.store = s
	}
}

// WithIDGenerator sets the artifact ID source. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(d *Driver) {
		d.ids = g
	}
}

// WithClock sets the logical clock. The clock is still advanced past the
// store's highest seq before the first write.
func WithClock(c *Clock) Option {
	return func(d *Driver) {
		d.clock = c
	}
}

// WithMode sets the failure mode. Default: ModeFailFast.
func WithMode(m Mode) Option {
	return func(d *Driver) {
		d.mode = m
	}
}

// WithTarget sets the target triple and data layout of every module built.
// Both are part of the cache key.
func WithTarget(triple, dataLayout string) Option {
	return func(d *Driver) {
		d.triple = triple
		d.layout = dataLayout
	}
}

// WithUnitOptions passes extra options to every codegen.Unit.
func WithUnitOptions(opts ...codegen.UnitOption) Option {
	return func(d *Driver) {
		d.unitOpts = append(d.unitOpts, opts...)
	}
}

// New creates a Driver.
func New(opts ...Option) *Driver {
	d := &Driver{
		ids:   UUIDv7Generator{},
		clock: NewClock(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// FunctionResult is the outcome for one function of a build.
type FunctionResult struct {
	Name   string
	Hash   string
	Params []string
	// Err is set when the function failed to compile.
	Err error
}

// Result is the outcome of a build.
type Result struct {
	Module string
	// Hash is the cache key: the module hash extended with the target.
	Hash       string
	ArtifactID string
	Seq        int64
	// Text is the printed LLVM module.
	Text   string
	Cached bool
	// Functions is in input order. A fail-fast build that stops early
	// lists only the functions it reached.
	Functions []FunctionResult
}

// Failed returns the functions that did not compile.
func (r *Result) Failed() []FunctionResult {
	var out []FunctionResult
	for _, f := range r.Functions {
		if f.Err != nil {
			out = append(out, f)
		}
	}
	return out
}

// Build compiles fns into a module called name.
//
// On a compile failure the returned Result still describes every function
// reached, and the error is a *BuildError with code COMPILE_FAILED. Nothing
// is cached for a failed build.
func (d *Driver) Build(ctx context.Context, name string, fns []*ir.Function) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, cancelled(name, err)
	}

	for i, f := range fns {
		if f == nil {
			return nil, &BuildError{Code: ErrCodeCompileFailed, Message: fmt.Sprintf("function %d is nil", i), Module: name}
		}
	}

	moduleHash, err := ir.ModuleHash(name, fns)
	if err != nil {
		return nil, &BuildError{Code: ErrCodeCompileFailed, Message: "hash module", Module: name, Err: err}
	}
	key := ir.TargetHash(moduleHash, d.triple, d.layout)

	if d.store != nil {
		a, found, err := d.store.LookupArtifact(ctx, key)
		if err != nil {
			return nil, cacheFailed(name, "lookup", err)
		}
		if found {
			slog.Debug("cache hit", "module", name, "artifact", a.ID, "seq", a.Seq)
			return cachedResult(a), nil
		}
	}

	res := &Result{Module: name, Hash: key}
	unit := codegen.NewUnit(name, d.unitOptions()...)
	var errs []error
	for _, f := range fns {
		if err := ctx.Err(); err != nil {
			return res, cancelled(name, err)
		}

		fr := FunctionResult{Name: f.Name, Hash: ir.MustFunctionHash(f)}
		art, err := unit.Compile(f)
		if err != nil {
			fr.Err = err
			res.Functions = append(res.Functions, fr)
			slog.Warn("function failed to compile", "module", name, "func", fr.Name, "error", err)
			if d.mode == ModeFailFast {
				return res, &BuildError{
					Code:    ErrCodeCompileFailed,
					Message: "function failed to compile",
					Module:  name,
					Func:    fr.Name,
					Err:     err,
				}
			}
			errs = append(errs, err)
			continue
		}
		fr.Params = art.Params
		res.Functions = append(res.Functions, fr)
	}

	res.Text = unit.String()
	if len(errs) > 0 {
		return res, &BuildError{
			Code:    ErrCodeCompileFailed,
			Message: fmt.Sprintf("%d of %d functions failed to compile", len(errs), len(fns)),
			Module:  name,
			Err:     errors.Join(errs...),
		}
	}

	if d.store != nil {
		if err := d.write(ctx, res); err != nil {
			return res, err
		}
	}

	slog.Info("module built",
		"module", name,
		"functions", len(res.Functions),
		"artifact", res.ArtifactID,
		"seq", res.Seq,
	)
	return res, nil
}

func (d *Driver) unitOptions() []codegen.UnitOption {
	var opts []codegen.UnitOption
	if d.triple != "" {
		opts = append(opts, codegen.WithTargetTriple(d.triple))
	}
	if d.layout != "" {
		opts = append(opts, codegen.WithDataLayout(d.layout))
	}
	return append(opts, d.unitOpts...)
}

// write stores a successful build. If another build stored the same key
// first, res takes that artifact's identity.
func (d *Driver) write(ctx context.Context, res *Result) error {
	if !d.seeded.Load() {
		last, err := d.store.LastSeq(ctx)
		if err != nil {
			return cacheFailed(res.Module, "read last seq", err)
		}
		d.clock.advanceTo(last)
		d.seeded.Store(true)
	}

	a := store.Artifact{
		ID:               d.ids.Generate(),
		ModuleName:       res.Module,
		ModuleHash:       res.Hash,
		IRVersion:        ir.IRVersion,
		GeneratorVersion: ir.GeneratorVersion,
		TargetTriple:     d.triple,
		Text:             res.Text,
		Seq:              d.clock.Next(),
	}
	for _, f := range res.Functions {
		a.Functions = append(a.Functions, store.Function{Name: f.Name, Hash: f.Hash, Params: f.Params})
	}

	id, inserted, err := d.store.WriteArtifact(ctx, a)
	if err != nil {
		return cacheFailed(res.Module, "write", err)
	}
	if !inserted {
		existing, _, err := d.store.LookupArtifact(ctx, res.Hash)
		if err != nil {
			return cacheFailed(res.Module, "lookup", err)
		}
		res.ArtifactID = id
		res.Seq = existing.Seq
		return nil
	}
	res.ArtifactID = id
	res.Seq = a.Seq
	return nil
}

func cachedResult(a store.Artifact) *Result {
	res := &Result{
		Module:     a.ModuleName,
		Hash:       a.ModuleHash,
		ArtifactID: a.ID,
		Seq:        a.Seq,
		Text:       a.Text,
		Cached:     true,
	}
	for _, f := range a.Functions {
		res.Functions = append(res.Functions, FunctionResult{Name: f.Name, Hash: f.Hash, Params: f.Params})
	}
	return res
}

func cancelled(module string, err error) *BuildError {
	return &BuildError{Code: ErrCodeCancelled, Message: "build cancelled", Module: module, Err: err}
}

func cacheFailed(module, op string, err error) *BuildError {
	return &BuildError{Code: ErrCodeCacheFailed, Message: "cache " + op, Module: module, Err: err}
}
