package codegen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/tensorgen/internal/ir"
)

func tensorParam(name string) *ir.Var {
	return &ir.Var{Name: name, Typ: ir.Float64}
}

func local(name string, dt ir.Datatype) *ir.Var {
	return &ir.Var{Name: name, Typ: dt}
}

func i32Lit(v int64) *ir.Literal {
	return ir.NewIntLiteral(ir.Int32, v)
}

func f64Lit(v float64) *ir.Literal {
	return ir.NewFloatLiteral(ir.Float64, v)
}

func declare(name string, dt ir.Datatype, rhs ir.Expr) *ir.VarAssign {
	return &ir.VarAssign{LHS: local(name, dt), RHS: rhs, IsDecl: true}
}

func assign(name string, dt ir.Datatype, rhs ir.Expr) *ir.VarAssign {
	return &ir.VarAssign{LHS: local(name, dt), RHS: rhs}
}

func vals(tensor *ir.Var) *ir.GetProperty {
	return &ir.GetProperty{Tensor: tensor, Property: ir.Values}
}

func dim(tensor *ir.Var, mode int) *ir.GetProperty {
	return &ir.GetProperty{Tensor: tensor, Property: ir.Dimension, Mode: mode}
}

// compile compiles f into a fresh unit and fails the test on error.
func compile(t *testing.T, f *ir.Function, opts ...UnitOption) (*Unit, *Artifact) {
	t.Helper()
	u := NewUnit("test", opts...)
	art, err := u.Compile(f)
	require.NoError(t, err)
	return u, art
}

// begin starts a generator for f without lowering its body.
func begin(t *testing.T, f *ir.Function) *generator {
	t.Helper()
	g := newGenerator(NewUnit("test"), f)
	require.NoError(t, g.begin())
	return g
}

// body compiles stmts as the body of a function over the given tensors and
// returns the module text.
func body(t *testing.T, tensors []ir.Expr, stmts ...ir.Stmt) string {
	t.Helper()
	u, _ := compile(t, &ir.Function{Name: "f", Inputs: tensors, Body: ir.NewBlock(stmts...)})
	return u.String()
}

func count(s, sub string) int {
	return strings.Count(s, sub)
}
