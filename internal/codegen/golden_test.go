package codegen

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"

	"github.com/roach88/tensorgen/internal/ir"
)

// tally counts into s: one for position 0, the first dimension for position 1.
func tally() *ir.Function {
	A := tensorParam("A")
	k := local("k", ir.Int32)
	s := local("s", ir.Int32)
	return &ir.Function{
		Name:   "tally",
		Inputs: []ir.Expr{A},
		Body: ir.NewBlock(
			declare("n", ir.Int32, &ir.GetProperty{Tensor: A, Property: ir.ValuesSize}),
			declare("s", ir.Int32, i32Lit(0)),
			&ir.For{
				Var:       k,
				Start:     i32Lit(0),
				End:       local("n", ir.Int32),
				Increment: i32Lit(1),
				Contents: ir.NewBlock(&ir.Switch{
					Control: k,
					Cases: []ir.SwitchCase{
						{Value: ir.NewUIntLiteral(ir.UInt32, 0), Body: assign("s", ir.Int32, &ir.Add{A: s, B: i32Lit(1)})},
						{Value: ir.NewUIntLiteral(ir.UInt32, 1), Body: assign("s", ir.Int32, &ir.Add{A: s, B: dim(A, 0)})},
					},
				}),
			},
		),
	}
}

func TestModuleGolden(t *testing.T) {
	u, art := compile(t, tally())

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "tally", []byte(u.String()))

	m, _ := run(t, art.Func, &tensor{dims: []int64{5}, vals: floats(1, 2, 3)})
	assert.Equal(t, int64(6), m.local("s").i)
}
