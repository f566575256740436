package harness

import (
	"fmt"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Module   string // Module text, or the function's text when scoped
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Module != "" {
		fmt.Fprintf(&buf, "\nModule:\n")
		for _, line := range strings.Split(strings.TrimRight(e.Module, "\n"), "\n") {
			fmt.Fprintf(&buf, "  %s\n", line)
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns one message per
// failure, in assertion order.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertContains:
			err = assertContains(result, a, true)
		case AssertNotContains:
			err = assertContains(result, a, false)
		case AssertFunctionCount:
			err = assertFunctionCount(result, a)
		case AssertParamCount:
			err = assertParamCount(result, a)
		case AssertErrorCode:
			err = assertErrorCode(result, a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}
		if err != nil {
			errors = append(errors, err.Error())
		}
	}
	return errors
}

func assertContains(result *Result, a Assertion, want bool) error {
	text := result.Text
	scope := "module"
	if a.Func != "" {
		var ok bool
		text, ok = functionText(result.Text, a.Func)
		if !ok {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("function %s in module", a.Func),
				Actual:   "function not defined",
				Module:   result.Text,
			}
		}
		scope = "function " + a.Func
	}

	if strings.Contains(text, a.Text) == want {
		return nil
	}
	expected := fmt.Sprintf("%s contains %q", scope, a.Text)
	actual := "not found"
	if !want {
		expected = fmt.Sprintf("%s does not contain %q", scope, a.Text)
		actual = "found"
	}
	return &AssertionError{Type: a.Type, Expected: expected, Actual: actual, Module: text}
}

func assertFunctionCount(result *Result, a Assertion) error {
	n := len(result.Compiled())
	if n == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%d compiled functions", a.Count),
		Actual:   fmt.Sprintf("%d compiled functions", n),
	}
}

func assertParamCount(result *Result, a Assertion) error {
	f, ok := result.function(a.Func)
	if !ok || f.Code != "" {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("function %s compiled", a.Func),
			Actual:   "function not compiled",
		}
	}
	if len(f.Params) == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%s has %d parameters", a.Func, a.Count),
		Actual:   fmt.Sprintf("%d parameters %v", len(f.Params), f.Params),
	}
}

func assertErrorCode(result *Result, a Assertion) error {
	var got []string
	if a.Func == "" {
		got = append(got, result.DocumentCodes...)
	}
	for _, f := range result.Functions {
		if f.Code == "" || (a.Func != "" && f.Name != a.Func) {
			continue
		}
		got = append(got, f.Code)
	}
	if slices.Contains(got, a.Code) {
		return nil
	}

	where := "any function or the document"
	if a.Func != "" {
		where = "function " + a.Func
	}
	actual := "no errors"
	if len(got) > 0 {
		actual = strings.Join(got, ", ")
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%s fails with %s", where, a.Code),
		Actual:   actual,
	}
}

// functionText returns the definition of one function from module text,
// from its define line through the closing brace.
func functionText(module, name string) (string, bool) {
	header := "define i32 @" + name + "("
	start := strings.Index(module, header)
	if start < 0 {
		return "", false
	}
	if i := strings.LastIndex(module[:start], "\n"); i >= 0 {
		start = i + 1
	} else {
		start = 0
	}
	end := strings.Index(module[start:], "\n}")
	if end < 0 {
		return module[start:], true
	}
	return module[start : start+end+2], true
}
