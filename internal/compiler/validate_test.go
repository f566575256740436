package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tensorgen/internal/ir"
)

func tensor(name string) *ir.Var {
	return &ir.Var{Name: name, Typ: ir.Float64}
}

func TestValidateValid(t *testing.T) {
	doc := &Document{
		IRVersion: ir.IRVersion,
		Functions: []*ir.Function{
			{Name: "a", Inputs: []ir.Expr{tensor("A")}, Outputs: []ir.Expr{tensor("B")}},
			{Name: "b", Inputs: []ir.Expr{tensor("A")}},
		},
	}
	assert.Empty(t, Validate(doc))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		doc  *Document
		want []string
	}{
		{
			name: "no functions",
			doc:  &Document{},
			want: []string{ErrNoFunctions},
		},
		{
			name: "empty name",
			doc:  &Document{Functions: []*ir.Function{{Name: "  "}}},
			want: []string{ErrEmptyFunctionName},
		},
		{
			name: "duplicate function",
			doc:  &Document{Functions: []*ir.Function{{Name: "f"}, {Name: "g"}, {Name: "f"}}},
			want: []string{ErrDuplicateFunction},
		},
		{
			name: "duplicate parameter across inputs and outputs",
			doc: &Document{Functions: []*ir.Function{{
				Name: "f", Inputs: []ir.Expr{tensor("A")}, Outputs: []ir.Expr{tensor("A")},
			}}},
			want: []string{ErrDuplicateParam},
		},
		{
			name: "parameter is not a variable",
			doc: &Document{Functions: []*ir.Function{{
				Name: "f", Inputs: []ir.Expr{ir.NewIntLiteral(ir.Int32, 1)},
			}}},
			want: []string{ErrParamNotVariable},
		},
		{
			name: "decomposed function name",
			doc:  &Document{Functions: []*ir.Function{{Name: "cafe\u0301"}}},
			want: []string{ErrNonNormalName},
		},
		{
			name: "decomposed parameter name",
			doc: &Document{Functions: []*ir.Function{{
				Name: "caf\u00e9", Inputs: []ir.Expr{tensor("A\u0301")},
			}}},
			want: []string{ErrNonNormalName},
		},
		{
			name: "unsupported version",
			doc:  &Document{IRVersion: "2.0.0", Functions: []*ir.Function{{Name: "f"}}},
			want: []string{ErrUnsupportedVersion},
		},
		{
			name: "collects everything",
			doc: &Document{IRVersion: "0.9.0", Functions: []*ir.Function{
				{Name: ""},
				{Name: "f", Inputs: []ir.Expr{tensor("A"), tensor("A")}},
				{Name: "f"},
			}},
			want: []string{ErrUnsupportedVersion, ErrEmptyFunctionName, ErrDuplicateParam, ErrDuplicateFunction},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(tt.doc)
			var codes []string
			for _, e := range errs {
				codes = append(codes, e.Code)
			}
			assert.Equal(t, tt.want, codes)
		})
	}
}

func TestValidateReportsLines(t *testing.T) {
	doc, err := DecodeYAML([]byte(`functions:
  - name: f
  - name: f
`), "doc.yaml")
	require.NoError(t, err)

	errs := Validate(doc)
	require.Len(t, errs, 1)
	assert.Equal(t, 3, errs[0].Line)
	assert.Equal(t, `[E102] line 3: functions[1].name: duplicate function name: "f"`, errs[0].Error())
}

func TestCheckVersion(t *testing.T) {
	tests := []struct {
		version string
		ok      bool
	}{
		{"", true},
		{"1.0.0", true},
		{"1.4.2", true},
		{"1", true},
		{"0.9.0", false},
		{"2.0.0", false},
		{"one", false},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			err := CheckVersion(tt.version)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestDocumentError(t *testing.T) {
	err := &DocumentError{File: "a.yaml", Errors: []ValidationError{
		{Code: ErrNoFunctions, Field: "functions", Message: "at least one function is required"},
	}}
	assert.Equal(t, "a.yaml: [E100] functions: at least one function is required", err.Error())
}
