package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tensorgen/internal/compiler"
	"github.com/roach88/tensorgen/internal/driver"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	Triple string
}

// VerifyReport is the result of verifying a file or directory.
type VerifyReport struct {
	Valid     bool             `json:"valid"`
	Documents []DocumentReport `json:"documents"`
	Errors    []CLIError       `json:"errors,omitempty"`
}

// DocumentReport lists per-function outcomes for one document.
type DocumentReport struct {
	File      string           `json:"file"`
	Functions []FunctionReport `json:"functions"`
}

// FunctionReport is one function's outcome.
type FunctionReport struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify <file-or-dir>",
		Short: "Check that IR documents compile and pass verification",
		Long: `Compile every function of every document without writing output.

All errors are collected: invalid documents and failing functions are all
reported in one run.

Exit codes:
  0 - Everything compiles
  1 - Some document or function failed
  2 - Command error (invalid paths)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Triple, "triple", "", "target triple")

	return cmd
}

func runVerify(opts *VerifyOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	cfg := opts.config()

	in, err := loadInputs(path, compiler.LoadModeCollectAll)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return formatter.Fail(ExitCommandError, loadErr.Code, loadErr.Message, nil)
		}
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}
	formatter.VerboseLog("Verifying %d document(s) in %s", in.FileCount, path)

	d := driver.New(
		driver.WithMode(driver.ModeCollectAll),
		driver.WithTarget(pick(opts.Triple, cfg.TargetTriple), cfg.DataLayout),
	)

	report := VerifyReport{Valid: len(in.Errors) == 0, Documents: []DocumentReport{}, Errors: describeErrors(in.Errors)}
	for _, doc := range in.Documents {
		res, err := d.Build(cmd.Context(), defaultModuleName(doc.Source), doc.Functions)
		if err != nil && driver.CodeOf(err) != driver.ErrCodeCompileFailed {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
		}
		dr := DocumentReport{File: doc.Source, Functions: []FunctionReport{}}
		if res != nil {
			for _, f := range res.Functions {
				fr := FunctionReport{Name: f.Name, OK: f.Err == nil}
				if f.Err != nil {
					fr.Error = f.Err.Error()
					report.Valid = false
				}
				dr.Functions = append(dr.Functions, fr)
			}
		} else if err != nil {
			report.Valid = false
			dr.Functions = append(dr.Functions, FunctionReport{Error: err.Error()})
		}
		report.Documents = append(report.Documents, dr)
	}

	if formatter.IsJSON() {
		if err := formatter.Success(report); err != nil {
			return err
		}
	} else {
		outputVerifyText(formatter, report)
	}

	if !report.Valid {
		return NewExitError(ExitFailure, "verification failed")
	}
	return nil
}

func outputVerifyText(formatter *OutputFormatter, report VerifyReport) {
	w := formatter.Writer
	for _, doc := range report.Documents {
		failed := 0
		for _, f := range doc.Functions {
			if !f.OK {
				failed++
			}
		}
		if failed == 0 {
			fmt.Fprintf(w, "✓ %s: %d function(s)\n", doc.File, len(doc.Functions))
			continue
		}
		fmt.Fprintf(w, "✗ %s: %d of %d function(s) failed\n", doc.File, failed, len(doc.Functions))
		for _, f := range doc.Functions {
			if !f.OK {
				fmt.Fprintf(w, "    %s: %s\n", f.Name, f.Error)
			}
		}
	}
	for _, e := range report.Errors {
		fmt.Fprintf(w, "✗ %s\n", formatCLIError(e))
	}

	fmt.Fprintln(w)
	if report.Valid {
		fmt.Fprintln(w, "✓ All documents verified")
	} else {
		fmt.Fprintln(w, "✗ Verification failed")
	}
}
