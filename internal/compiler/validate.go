package compiler

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/tensorgen/internal/ir"
)

// Validation error codes (E100-E199)
const (
	ErrNoFunctions        = "E100" // document declares no functions
	ErrEmptyFunctionName  = "E101" // function name is required
	ErrDuplicateFunction  = "E102" // two functions with one name
	ErrDuplicateParam     = "E103" // two parameters with one name
	ErrParamNotVariable   = "E104" // parameter is not a var node
	ErrUnsupportedVersion = "E105" // ir_version outside the accepted range
	ErrNonNormalName      = "E106" // name is not in Unicode NFC form
)

// ValidationError represents a document validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// DocumentError carries every validation error of one document.
type DocumentError struct {
	File   string
	Errors []ValidationError
}

func (e *DocumentError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		msgs[i] = ve.Error()
	}
	return fmt.Sprintf("%s: %s", e.File, strings.Join(msgs, "; "))
}

// Validate checks document-level rules that decoding does not enforce.
// Returns all errors found (does not fail-fast). Semantic errors inside
// function bodies are reported by the generator.
func Validate(doc *Document) []ValidationError {
	var errs []ValidationError

	if err := CheckVersion(doc.IRVersion); err != nil {
		errs = append(errs, ValidationError{
			Field:   "ir_version",
			Message: err.Error(),
			Code:    ErrUnsupportedVersion,
		})
	}

	if len(doc.Functions) == 0 {
		errs = append(errs, ValidationError{
			Field:   "functions",
			Message: "at least one function is required",
			Code:    ErrNoFunctions,
		})
	}

	names := make(map[string]bool)
	for i, f := range doc.Functions {
		line := 0
		if i < len(doc.Lines) {
			line = doc.Lines[i]
		}
		field := fmt.Sprintf("functions[%d]", i)

		// E101: name is required
		if strings.TrimSpace(f.Name) == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: "function name is required and must be non-empty",
				Code:    ErrEmptyFunctionName,
				Line:    line,
			})
		} else if names[f.Name] {
			// E102: duplicate function name
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: fmt.Sprintf("duplicate function name: %q", f.Name),
				Code:    ErrDuplicateFunction,
				Line:    line,
			})
		}
		names[f.Name] = true
		if e, ok := checkNFC(field+".name", f.Name, line); ok {
			errs = append(errs, e)
		}

		errs = append(errs, validateParams(f, field, line)...)
	}

	return errs
}

func validateParams(f *ir.Function, field string, line int) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool)

	check := func(list string, params []ir.Expr) {
		for j, p := range params {
			path := fmt.Sprintf("%s.%s[%d]", field, list, j)
			v, ok := p.(*ir.Var)
			if !ok {
				// E104: parameter must be a tensor variable
				errs = append(errs, ValidationError{
					Field:   path,
					Message: fmt.Sprintf("parameter is %s, want var", p.Op()),
					Code:    ErrParamNotVariable,
					Line:    line,
				})
				continue
			}
			if seen[v.Name] {
				// E103: duplicate parameter name
				errs = append(errs, ValidationError{
					Field:   path,
					Message: fmt.Sprintf("duplicate parameter name: %q", v.Name),
					Code:    ErrDuplicateParam,
					Line:    line,
				})
			}
			seen[v.Name] = true
			if e, ok := checkNFC(path, v.Name, line); ok {
				errs = append(errs, e)
			}
		}
	}
	check("inputs", f.Inputs)
	check("outputs", f.Outputs)
	return errs
}

// CheckVersion reports whether a document version is accepted by this
// build. An empty version means the current one.
func CheckVersion(version string) error {
	if version == "" {
		return nil
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("invalid ir_version %q: %w", version, err)
	}
	c, err := semver.NewConstraint(ir.IRVersionConstraint)
	if err != nil {
		return err
	}
	if !c.Check(v) {
		return fmt.Errorf("ir_version %s not supported, want %s", version, ir.IRVersionConstraint)
	}
	return nil
}

// checkNFC rejects names that are not in NFC form. Canonical encoding keeps
// name bytes as written, so two spellings of one visible name would
// otherwise build as two different symbols.
func checkNFC(field, name string, line int) (ValidationError, bool) {
	if norm.NFC.IsNormalString(name) {
		return ValidationError{}, false
	}
	return ValidationError{
		Field:   field,
		Message: fmt.Sprintf("name %q is not NFC normalized (want %q)", name, norm.NFC.String(name)),
		Code:    ErrNonNormalName,
		Line:    line,
	}, true
}
