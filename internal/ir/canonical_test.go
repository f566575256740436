package ir

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFunction() *Function {
	a := &Var{Name: "A", Typ: Float64}
	i := &Var{Name: "i", Typ: Int32}
	dim := &GetProperty{Tensor: a, Property: Dimension, Mode: 0}
	return &Function{
		Name:   "compute",
		Inputs: []Expr{a},
		Body: NewBlock(
			&For{
				Var:       i,
				Start:     NewIntLiteral(Int32, 0),
				End:       dim,
				Increment: NewIntLiteral(Int32, 1),
				Contents: &Store{
					Arr:  &GetProperty{Tensor: a, Property: Values},
					Loc:  i,
					Data: NewFloatLiteral(Float64, 1.5),
				},
			},
		),
	}
}

func TestMarshalCanonicalDeterministic(t *testing.T) {
	b1, err := MarshalCanonical(sampleFunction())
	require.NoError(t, err)
	b2, err := MarshalCanonical(sampleFunction())
	require.NoError(t, err)

	assert.Equal(t, string(b1), string(b2))
}

func TestMarshalCanonicalSortedKeys(t *testing.T) {
	f := &Function{Name: "f", Body: &Comment{Text: "x"}}
	got, err := MarshalCanonical(f)
	require.NoError(t, err)

	want := `{"body":{"op":"comment","text":"x"},"inputs":[],"name":"f","op":"function","outputs":[]}`
	assert.Equal(t, want, string(got))
}

func TestMarshalCanonicalFloatBits(t *testing.T) {
	tests := []struct {
		name string
		lit  *Literal
		want string
	}{
		{"f64 one", NewFloatLiteral(Float64, 1), `"bits":"0x3ff0000000000000"`},
		{"f64 negative zero", NewFloatLiteral(Float64, math.Copysign(0, -1)), `"bits":"0x8000000000000000"`},
		{"f32 one", NewFloatLiteral(Float32, 1), `"bits":"0x3f800000"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &Function{Name: "f", Body: &VarAssign{LHS: &Var{Name: "x", Typ: tt.lit.Typ}, RHS: tt.lit, IsDecl: true}}
			got, err := MarshalCanonical(f)
			require.NoError(t, err)
			assert.Contains(t, string(got), tt.want)
		})
	}
}

func TestMarshalCanonicalDistinguishesZeros(t *testing.T) {
	encode := func(v float64) string {
		f := &Function{Name: "f", Body: &VarAssign{LHS: &Var{Name: "x", Typ: Float64}, RHS: NewFloatLiteral(Float64, v), IsDecl: true}}
		b, err := MarshalCanonical(f)
		require.NoError(t, err)
		return string(b)
	}
	assert.NotEqual(t, encode(0), encode(math.Copysign(0, -1)))
}

func TestMarshalCanonicalBigInt(t *testing.T) {
	max128 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	f := &Function{Name: "f", Body: &VarAssign{LHS: &Var{Name: "x", Typ: UInt128}, RHS: NewBigLiteral(UInt128, max128), IsDecl: true}}

	got, err := MarshalCanonical(f)
	require.NoError(t, err)
	assert.Contains(t, string(got), `"value":"340282366920938463463374607431768211455"`)
}

func TestMarshalCanonicalKeepsNameBytes(t *testing.T) {
	// "é" precomposed vs e + combining acute
	composed := &Function{Name: "caf\u00e9", Body: &BlankLine{}}
	decomposed := &Function{Name: "cafe\u0301", Body: &BlankLine{}}

	b1, err := MarshalCanonical(composed)
	require.NoError(t, err)
	b2, err := MarshalCanonical(decomposed)
	require.NoError(t, err)

	assert.NotEqual(t, string(b1), string(b2))
	assert.Contains(t, string(b2), "cafe\u0301")

	h1, err := FunctionHash(composed)
	require.NoError(t, err)
	h2, err := FunctionHash(decomposed)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestMarshalCanonicalInvalidUTF8(t *testing.T) {
	a := &Function{Name: "f\xff", Body: &BlankLine{}}
	b := &Function{Name: "f\xfe", Body: &BlankLine{}}

	b1, err := MarshalCanonical(a)
	require.NoError(t, err)
	b2, err := MarshalCanonical(b)
	require.NoError(t, err)

	assert.NotEqual(t, b1, b2)
	assert.Contains(t, string(b1), "\"f\xff\"")
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	f := &Function{Name: "f", Body: &Comment{Text: "a<b && c>d\u2028"}}
	got, err := MarshalCanonical(f)
	require.NoError(t, err)

	assert.Contains(t, string(got), "a<b && c>d\u2028")
	assert.NotContains(t, string(got), `\u003c`)
}

func TestMarshalCanonicalEscapesControl(t *testing.T) {
	f := &Function{Name: "f", Body: &Comment{Text: "a\"b\\c\nd\x01"}}
	got, err := MarshalCanonical(f)
	require.NoError(t, err)

	assert.Contains(t, string(got), `"a\"b\\c\nd\u0001"`)
}

func TestCompareUTF16(t *testing.T) {
	// U+E000 sorts after U+1F600 in UTF-8 byte order but before it in UTF-16.
	assert.Negative(t, compareUTF16("\U0001F600", "\ue000"))
	assert.Negative(t, compareUTF16("a", "b"))
	assert.Zero(t, compareUTF16("same", "same"))
}

func TestMarshalCanonicalRejectsMissingExpr(t *testing.T) {
	f := &Function{Name: "f", Body: &Store{Arr: &Var{Name: "a"}, Loc: nil, Data: NewIntLiteral(Int32, 1)}}
	_, err := MarshalCanonical(f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loc")
}

// Every node kind must have a canonical encoding.
func TestMarshalCanonicalCoversAllKinds(t *testing.T) {
	a := &Var{Name: "a", Typ: Int32}
	b := &Var{Name: "b", Typ: Int32}
	exprs := []Expr{
		NewIntLiteral(Int32, 1), NewBoolLiteral(true), a,
		&Neg{a}, &Sqrt{a}, &Add{a, b}, &Sub{a, b}, &Mul{a, b}, &Div{a, b},
		&Min{[]Expr{a, b}}, &Max{a, b}, &BitAnd{a, b}, &BitOr{a, b},
		&Eq{a, b}, &Neq{a, b}, &Gt{a, b}, &Lt{a, b}, &Gte{a, b}, &Lte{a, b},
		&And{a, b}, &Or{a, b}, &Cast{a, Int64}, &Load{a, b, Int32},
		&GetProperty{Tensor: a, Property: Order},
	}
	for _, e := range exprs {
		_, err := canonicalExpr(e)
		assert.NoError(t, err, e.Op())
	}

	stmts := []Stmt{
		NewBlock(), &IfThenElse{Cond: a, Then: &BlankLine{}},
		&While{Cond: a, Contents: &BlankLine{}},
		&For{Var: a, Start: a, End: b, Increment: a, Contents: &BlankLine{}},
		&Switch{Control: a, Cases: []SwitchCase{{Value: NewUIntLiteral(UInt32, 0), Body: &BlankLine{}}}},
		&Case{Clauses: []Clause{{Cond: a, Body: &BlankLine{}}}},
		&VarAssign{LHS: a, RHS: b}, &Store{Arr: a, Loc: b, Data: a},
		&Allocate{Var: a, NumElements: b}, &Scope{Body: &BlankLine{}},
		&Comment{Text: "c"}, &BlankLine{}, &Function{Name: "f"},
	}
	for _, s := range stmts {
		_, err := canonicalStmt(s)
		assert.NoError(t, err, s.Op())
	}
}
