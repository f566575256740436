package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/tensorgen/internal/compiler"
	"github.com/roach88/tensorgen/internal/ir"
)

// Error code constants, unified across all CLI commands. Document
// validation reports the compiler's own E1xx codes.
const (
	ErrCodeGeneric       = "E001" // Generic/unknown error
	ErrCodeScanError     = "E002" // Directory scan error
	ErrCodeNoFiles       = "E003" // No IR documents found
	ErrCodeLoadFailed    = "E004" // Document could not be decoded
	ErrCodeNotFound      = "E005" // Path not found
	ErrCodeBuildFailed   = "E006" // Functions failed to compile
	ErrCodeWriteFailed   = "E007" // File write error
	ErrCodeCacheFailed   = "E008" // Artifact cache error
	ErrCodeInvalidConfig = "E009" // Missing or invalid setting
	ErrCodeTestFailed    = "E010" // Scenarios failed
)

// LoadError is a path-level failure: nothing could be loaded.
type LoadError struct {
	Code    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Inputs is what loadInputs found.
type Inputs struct {
	Documents []*compiler.Document
	FileCount int
	// Errors holds per-document failures. Documents that failed are absent
	// from Documents.
	Errors []error
}

// Functions returns all functions in document order.
func (in *Inputs) Functions() []*ir.Function {
	var fns []*ir.Function
	for _, d := range in.Documents {
		fns = append(fns, d.Functions...)
	}
	return fns
}

// loadInputs loads a single document or every document under a directory.
// A *LoadError means nothing could be loaded; otherwise per-document
// failures are in Inputs.Errors.
func loadInputs(path string, mode compiler.LoadMode) (*Inputs, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("path not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing %s: %v", path, err)}
	}

	if !info.IsDir() {
		in := &Inputs{FileCount: 1}
		doc, err := compiler.LoadFile(path)
		if err == nil {
			if verrs := compiler.Validate(doc); len(verrs) > 0 {
				err = &compiler.DocumentError{File: path, Errors: verrs}
			}
		}
		if err != nil {
			in.Errors = append(in.Errors, err)
			return in, nil
		}
		in.Documents = append(in.Documents, doc)
		return in, nil
	}

	files, err := compiler.FindDocuments(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no IR documents found in %s", path)}
	}

	result, errs := compiler.LoadDir(path, mode)
	in := &Inputs{FileCount: len(files), Errors: errs}
	if result != nil {
		in.Documents = result.Documents
	}
	return in, nil
}

// describeErrors converts document failures to CLI errors, one per
// underlying problem.
func describeErrors(errs []error) []CLIError {
	var out []CLIError
	for _, err := range errs {
		var docErr *compiler.DocumentError
		var compileErr *compiler.CompileError
		switch {
		case errors.As(err, &docErr):
			for _, ve := range docErr.Errors {
				out = append(out, CLIError{
					Code:    ve.Code,
					Message: ve.Message,
					Details: map[string]any{"file": docErr.File, "field": ve.Field, "line": ve.Line},
				})
			}
		case errors.As(err, &compileErr):
			out = append(out, CLIError{
				Code:    ErrCodeLoadFailed,
				Message: compileErr.Message,
				Details: map[string]any{"file": compileErr.File, "path": compileErr.Path, "line": compileErr.Line},
			})
		default:
			out = append(out, CLIError{Code: ErrCodeLoadFailed, Message: err.Error()})
		}
	}
	return out
}

// defaultModuleName derives a module name from an input path: the file
// name without extension, or the directory name.
func defaultModuleName(path string) string {
	base := filepath.Base(filepath.Clean(path))
	if base == "." || base == string(filepath.Separator) {
		return "module"
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// formatCLIError renders one error for text output.
func formatCLIError(e CLIError) string {
	d, _ := e.Details.(map[string]any)
	file, _ := d["file"].(string)
	line, _ := d["line"].(int)
	switch {
	case file != "" && line > 0:
		return fmt.Sprintf("%s %s:%d: %s", e.Code, file, line, e.Message)
	case file != "":
		return fmt.Sprintf("%s %s: %s", e.Code, file, e.Message)
	}
	return fmt.Sprintf("%s %s", e.Code, e.Message)
}
