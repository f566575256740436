package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines one golden test.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// IR is either a path to an IR document or an inline document.
	IR yaml.Node `yaml:"ir"`

	// Module names the emitted module. Defaults to Name.
	Module string `yaml:"module,omitempty"`

	// TargetTriple is set on the module when non-empty.
	TargetTriple string `yaml:"target_triple,omitempty"`

	// Assertions validate the compiled module.
	Assertions []Assertion `yaml:"assertions"`

	// path is the file the scenario was loaded from, if any.
	path string
}

// Assertion validates the compiled module.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Text is the substring for contains and not_contains.
	Text string `yaml:"text,omitempty"`

	// Func scopes contains and not_contains to one function, names the
	// function for param_count, and optionally for error_code.
	Func string `yaml:"func,omitempty"`

	// Count is the expected number for function_count and param_count.
	Count int `yaml:"count,omitempty"`

	// Code is the expected error code for error_code.
	Code string `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertContains      = "contains"
	AssertNotContains   = "not_contains"
	AssertFunctionCount = "function_count"
	AssertParamCount    = "param_count"
	AssertErrorCode     = "error_code"
)

// ModuleName returns the module name the scenario compiles to.
func (s *Scenario) ModuleName() string {
	if s.Module != "" {
		return s.Module
	}
	return s.Name
}

// Path returns the file the scenario was loaded from, or "".
func (s *Scenario) Path() string {
	return s.path
}

// irPath returns the referenced document path, or "" for an inline
// document.
func (s *Scenario) irPath() string {
	if s.IR.Kind != yaml.ScalarNode {
		return ""
	}
	p := s.IR.Value
	if !filepath.IsAbs(p) && s.path != "" {
		p = filepath.Join(filepath.Dir(s.path), p)
	}
	return p
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	s.path = path

	if p := s.irPath(); p != "" {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("invalid scenario: ir document not found: %s", p)
		}
	}
	return s, nil
}

// ParseScenario parses scenario YAML. A relative ir path is resolved
// against the working directory.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch s.IR.Kind {
	case yaml.ScalarNode:
		if s.IR.Value == "" {
			return fmt.Errorf("ir path is empty")
		}
	case yaml.MappingNode:
	case 0:
		return fmt.Errorf("ir is required")
	default:
		return fmt.Errorf("ir must be a path or a document")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertContains, AssertNotContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for %s", index, a.Type)
		}
	case AssertFunctionCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for function_count", index)
		}
	case AssertParamCount:
		if a.Func == "" {
			return fmt.Errorf("assertions[%d]: func is required for param_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for param_count", index)
		}
	case AssertErrorCode:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for error_code", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
