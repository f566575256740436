package harness

import (
	"context"
	"fmt"

	"github.com/roach88/tensorgen/internal/codegen"
	"github.com/roach88/tensorgen/internal/compiler"
	"github.com/roach88/tensorgen/internal/driver"
	"github.com/roach88/tensorgen/internal/store"
)

// RestrictionCode is reported for functions rejected by a generator
// restriction rather than an internal error.
const RestrictionCode = "RESTRICTION"

// Run compiles a scenario's document and evaluates its assertions.
//
// Each scenario builds against a fresh in-memory store with fixed artifact
// IDs, so results are reproducible. Compile failures are not errors here:
// they are recorded per function for error_code assertions. An error is
// returned only when the scenario itself cannot run.
func Run(scenario *Scenario) (*Result, error) {
	doc, err := loadDocument(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to load ir: %w", err)
	}

	st, err := store.Open(store.MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	d := driver.New(
		driver.WithStore(st),
		driver.WithIDGenerator(driver.NewFixedGenerator("artifact-"+scenario.Name)),
		driver.WithMode(driver.ModeCollectAll),
		driver.WithTarget(scenario.TargetTriple, ""),
	)

	result := NewResult()
	result.Module = scenario.ModuleName()
	for _, ve := range compiler.Validate(doc) {
		result.DocumentCodes = append(result.DocumentCodes, ve.Code)
	}

	built, err := d.Build(context.Background(), result.Module, doc.Functions)
	if err != nil && driver.CodeOf(err) != driver.ErrCodeCompileFailed {
		return nil, fmt.Errorf("failed to build: %w", err)
	}
	if built != nil {
		result.Text = built.Text
		for _, f := range built.Functions {
			out := FunctionOutcome{Name: f.Name, Params: f.Params}
			if f.Err != nil {
				out.Code = errorCode(f.Err)
				out.Error = f.Err.Error()
			}
			result.Functions = append(result.Functions, out)
		}
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func loadDocument(s *Scenario) (*compiler.Document, error) {
	if p := s.irPath(); p != "" {
		return compiler.LoadFile(p)
	}
	name := s.path
	if name == "" {
		name = s.Name
	}
	return compiler.DecodeYAMLNode(&s.IR, name)
}

func errorCode(err error) string {
	if codegen.IsRestriction(err) {
		return RestrictionCode
	}
	if code := codegen.CodeOf(err); code != "" {
		return string(code)
	}
	return "UNKNOWN"
}
