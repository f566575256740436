package driver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/tensorgen/internal/ir"
	"github.com/roach88/tensorgen/internal/store"
)

// okFunc returns a function that compiles: it zeroes a local.
func okFunc(name string) *ir.Function {
	return &ir.Function{
		Name:   name,
		Inputs: []ir.Expr{&ir.Var{Name: "A", Typ: ir.Float64}},
		Body: ir.NewBlock(
			&ir.VarAssign{LHS: &ir.Var{Name: "x", Typ: ir.Int32}, RHS: ir.NewIntLiteral(ir.Int32, 0), IsDecl: true},
		),
	}
}

// badFunc returns a function that fails to compile: it assigns to an
// undeclared local.
func badFunc(name string) *ir.Function {
	return &ir.Function{
		Name: name,
		Body: &ir.VarAssign{LHS: &ir.Var{Name: "ghost", Typ: ir.Int32}, RHS: ir.NewIntLiteral(ir.Int32, 1)},
	}
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(store.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}
