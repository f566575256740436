package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/tensorgen/internal/codegen"
	"github.com/roach88/tensorgen/internal/compiler"
	"github.com/roach88/tensorgen/internal/driver"
	"github.com/roach88/tensorgen/internal/store"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output     string // output file path
	Cache      string // artifact cache database
	Triple     string
	DataLayout string
	Module     string
	CollectAll bool
}

// CompileSummary is the JSON payload of a successful compile.
type CompileSummary struct {
	Module     string            `json:"module"`
	Hash       string            `json:"hash"`
	ArtifactID string            `json:"artifact_id,omitempty"`
	Seq        int64             `json:"seq,omitempty"`
	Cached     bool              `json:"cached"`
	Functions  []FunctionSummary `json:"functions"`
	Output     string            `json:"output,omitempty"`
	// Text is included only when no output file is written.
	Text string `json:"text,omitempty"`
}

// FunctionSummary describes one compiled function.
type FunctionSummary struct {
	Name   string   `json:"name"`
	Params []string `json:"params"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <file-or-dir>",
		Short: "Compile IR documents to an LLVM module",
		Long: `Compile IR documents (.yaml, .yml, .cue) into one LLVM module.

A directory compiles every document under it, in path order, into a single
module. Without -o the module text is written to stdout.

With --cache, builds are stored in a SQLite artifact cache keyed by the IR,
module name and target; an unchanged build is served from the cache.

Exit codes:
  0 - Module compiled
  1 - One or more functions failed to compile
  2 - Command error (invalid paths, bad documents, cache errors)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output .ll file")
	cmd.Flags().StringVar(&opts.Cache, "cache", "", "artifact cache database")
	cmd.Flags().StringVar(&opts.Triple, "triple", "", "target triple")
	cmd.Flags().StringVar(&opts.DataLayout, "datalayout", "", "target data layout")
	cmd.Flags().StringVar(&opts.Module, "module", "", "module name (default: input name)")
	cmd.Flags().BoolVar(&opts.CollectAll, "collect-all", false, "report every failing function instead of stopping at the first")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	cfg := opts.config()

	mode := compiler.LoadModeFailFast
	if opts.CollectAll {
		mode = compiler.LoadModeCollectAll
	}
	in, err := loadInputs(path, mode)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return formatter.Fail(ExitCommandError, loadErr.Code, loadErr.Message, nil)
		}
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}
	formatter.VerboseLog("Found %d document(s) in %s", in.FileCount, path)
	if len(in.Errors) > 0 {
		return outputDocumentErrors(formatter, in.Errors)
	}

	moduleName := pick(opts.Module, pick(cfg.ModuleName, defaultModuleName(path)))
	driverOpts := []driver.Option{
		driver.WithTarget(pick(opts.Triple, cfg.TargetTriple), pick(opts.DataLayout, cfg.DataLayout)),
		driver.WithUnitOptions(codegen.WithLogger(slog.Default())),
	}
	if opts.CollectAll {
		driverOpts = append(driverOpts, driver.WithMode(driver.ModeCollectAll))
	}
	if cachePath := pick(opts.Cache, cfg.Cache); cachePath != "" {
		st, err := store.Open(cachePath)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeCacheFailed, err.Error(), nil)
		}
		defer st.Close()
		driverOpts = append(driverOpts, driver.WithStore(st))
		formatter.VerboseLog("Using artifact cache %s", cachePath)
	}

	res, err := driver.New(driverOpts...).Build(cmd.Context(), moduleName, in.Functions())
	if err != nil {
		return outputBuildError(formatter, res, err)
	}

	summary := CompileSummary{
		Module:     res.Module,
		Hash:       res.Hash,
		ArtifactID: res.ArtifactID,
		Seq:        res.Seq,
		Cached:     res.Cached,
		Functions:  summarizeFunctions(res),
		Output:     opts.Output,
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(res.Text), 0644); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	} else {
		summary.Text = res.Text
	}

	if formatter.IsJSON() {
		return formatter.Success(summary)
	}

	if opts.Output == "" {
		fmt.Fprint(formatter.Writer, res.Text)
		formatter.VerboseLog("Compiled %d function(s) into module %s", len(summary.Functions), res.Module)
		return nil
	}

	cached := ""
	if res.Cached {
		cached = " (cached)"
	}
	fmt.Fprintf(formatter.Writer, "✓ Compiled %d function(s) into module %s%s\n", len(summary.Functions), res.Module, cached)
	fmt.Fprintf(formatter.Writer, "Wrote LLVM IR to %s\n", opts.Output)
	return nil
}

func summarizeFunctions(res *driver.Result) []FunctionSummary {
	out := make([]FunctionSummary, 0, len(res.Functions))
	for _, f := range res.Functions {
		if f.Err != nil {
			continue
		}
		params := f.Params
		if params == nil {
			params = []string{}
		}
		out = append(out, FunctionSummary{Name: f.Name, Params: params})
	}
	return out
}

// outputDocumentErrors reports documents that failed to decode or validate.
func outputDocumentErrors(formatter *OutputFormatter, errs []error) error {
	cliErrors := describeErrors(errs)
	msg := fmt.Sprintf("%d document error(s)", len(cliErrors))

	if formatter.IsJSON() {
		if err := formatter.encode(CLIResponse{Status: "error", Error: &cliErrors[0], Data: cliErrors}); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, msg)
	}

	fmt.Fprintln(formatter.Writer, "✗ Invalid IR")
	fmt.Fprintln(formatter.Writer)
	for _, e := range cliErrors {
		fmt.Fprintf(formatter.Writer, "  %s\n", formatCLIError(e))
	}
	return NewExitError(ExitCommandError, msg)
}

// outputBuildError reports a failed build. Compile failures exit 1; cache
// and cancellation failures are command errors.
func outputBuildError(formatter *OutputFormatter, res *driver.Result, err error) error {
	switch driver.CodeOf(err) {
	case driver.ErrCodeCacheFailed:
		return formatter.Fail(ExitCommandError, ErrCodeCacheFailed, err.Error(), nil)
	case driver.ErrCodeCompileFailed:
	default:
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	var failures []CLIError
	if res != nil {
		for _, f := range res.Failed() {
			failures = append(failures, CLIError{
				Code:    ErrCodeBuildFailed,
				Message: f.Err.Error(),
				Details: map[string]any{"func": f.Name},
			})
		}
	}
	if len(failures) == 0 {
		return formatter.Fail(ExitFailure, ErrCodeBuildFailed, err.Error(), nil)
	}

	msg := fmt.Sprintf("%d function(s) failed to compile", len(failures))
	if formatter.IsJSON() {
		if err := formatter.encode(CLIResponse{Status: "error", Error: &failures[0], Data: failures}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}

	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)
	for _, f := range failures {
		d := f.Details.(map[string]any)
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", d["func"], f.Message)
	}
	return NewExitError(ExitFailure, msg)
}
