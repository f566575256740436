package ir

import "math/big"

// Expr is a closed set of expression nodes.
// Only the types in this file implement it.
type Expr interface {
	// Type is the semantic numeric type of the value the expression produces.
	Type() Datatype
	// Op is the node's tag in IR documents and canonical encoding.
	Op() string
	exprNode()
}

// Literal is a constant. Exactly one payload field is meaningful, selected
// by Typ: Int for integers, Float for floats, Bool for bool.
type Literal struct {
	Typ   Datatype
	Int   *big.Int
	Float float64
	Bool  bool
}

// Var is a reference to a named value: a function parameter, a loop
// variable or a declared local.
type Var struct {
	Name string
	Typ  Datatype
}

// Neg is arithmetic negation.
type Neg struct{ A Expr }

// Sqrt is the square root of a float operand.
type Sqrt struct{ A Expr }

type Add struct{ A, B Expr }
type Sub struct{ A, B Expr }
type Mul struct{ A, B Expr }

// Div is exact division: integer operands are assumed to divide evenly.
type Div struct{ A, B Expr }

// Min is the minimum over two or more operands.
type Min struct{ Operands []Expr }

// Max is the maximum of exactly two operands.
type Max struct{ A, B Expr }

type BitAnd struct{ A, B Expr }
type BitOr struct{ A, B Expr }

type Eq struct{ A, B Expr }
type Neq struct{ A, B Expr }
type Gt struct{ A, B Expr }
type Lt struct{ A, B Expr }
type Gte struct{ A, B Expr }
type Lte struct{ A, B Expr }

// And and Or are logical connectives. Both operands are always evaluated.
type And struct{ A, B Expr }
type Or struct{ A, B Expr }

// Cast converts A to Typ.
type Cast struct {
	A   Expr
	Typ Datatype
}

// Load reads element Loc of the buffer Arr.
type Load struct {
	Arr Expr
	Loc Expr
	Typ Datatype
}

// GetProperty reads one field of a tensor descriptor. Mode selects the
// element of per-mode properties and is ignored otherwise.
type GetProperty struct {
	Tensor   Expr
	Property TensorProperty
	Mode     int
	Typ      Datatype
}

// NewIntLiteral returns a literal of signed or unsigned integer type t.
func NewIntLiteral(t Datatype, v int64) *Literal {
	return &Literal{Typ: t, Int: big.NewInt(v)}
}

// NewUIntLiteral returns a literal holding v without sign interpretation.
func NewUIntLiteral(t Datatype, v uint64) *Literal {
	return &Literal{Typ: t, Int: new(big.Int).SetUint64(v)}
}

// NewBigLiteral returns an integer literal of arbitrary magnitude, used for
// 128-bit values.
func NewBigLiteral(t Datatype, v *big.Int) *Literal {
	return &Literal{Typ: t, Int: new(big.Int).Set(v)}
}

func NewFloatLiteral(t Datatype, v float64) *Literal {
	return &Literal{Typ: t, Float: v}
}

func NewBoolLiteral(v bool) *Literal {
	return &Literal{Typ: Bool, Bool: v}
}

func (e *Literal) Type() Datatype { return e.Typ }
func (e *Var) Type() Datatype     { return e.Typ }
func (e *Neg) Type() Datatype     { return e.A.Type() }
func (e *Sqrt) Type() Datatype    { return e.A.Type() }
func (e *Add) Type() Datatype     { return e.A.Type() }
func (e *Sub) Type() Datatype     { return e.A.Type() }
func (e *Mul) Type() Datatype     { return e.A.Type() }
func (e *Div) Type() Datatype     { return e.A.Type() }
func (e *Max) Type() Datatype     { return e.A.Type() }
func (e *BitAnd) Type() Datatype  { return e.A.Type() }
func (e *BitOr) Type() Datatype   { return e.A.Type() }
func (e *Eq) Type() Datatype      { return Bool }
func (e *Neq) Type() Datatype     { return Bool }
func (e *Gt) Type() Datatype      { return Bool }
func (e *Lt) Type() Datatype      { return Bool }
func (e *Gte) Type() Datatype     { return Bool }
func (e *Lte) Type() Datatype     { return Bool }
func (e *And) Type() Datatype     { return Bool }
func (e *Or) Type() Datatype      { return Bool }
func (e *Cast) Type() Datatype    { return e.Typ }
func (e *Load) Type() Datatype    { return e.Typ }

func (e *Min) Type() Datatype {
	if len(e.Operands) == 0 {
		return Datatype{}
	}
	return e.Operands[0].Type()
}

// Type defaults to Int32 for descriptor scalars when the producer left Typ unset.
func (e *GetProperty) Type() Datatype {
	if e.Typ == (Datatype{}) {
		return Int32
	}
	return e.Typ
}

func (*Literal) Op() string     { return "literal" }
func (*Var) Op() string         { return "var" }
func (*Neg) Op() string         { return "neg" }
func (*Sqrt) Op() string        { return "sqrt" }
func (*Add) Op() string         { return "add" }
func (*Sub) Op() string         { return "sub" }
func (*Mul) Op() string         { return "mul" }
func (*Div) Op() string         { return "div" }
func (*Min) Op() string         { return "min" }
func (*Max) Op() string         { return "max" }
func (*BitAnd) Op() string      { return "bitand" }
func (*BitOr) Op() string       { return "bitor" }
func (*Eq) Op() string          { return "eq" }
func (*Neq) Op() string         { return "neq" }
func (*Gt) Op() string          { return "gt" }
func (*Lt) Op() string          { return "lt" }
func (*Gte) Op() string         { return "gte" }
func (*Lte) Op() string         { return "lte" }
func (*And) Op() string         { return "and" }
func (*Or) Op() string          { return "or" }
func (*Cast) Op() string        { return "cast" }
func (*Load) Op() string        { return "load" }
func (*GetProperty) Op() string { return "property" }

func (*Literal) exprNode()     {}
func (*Var) exprNode()         {}
func (*Neg) exprNode()         {}
func (*Sqrt) exprNode()        {}
func (*Add) exprNode()         {}
func (*Sub) exprNode()         {}
func (*Mul) exprNode()         {}
func (*Div) exprNode()         {}
func (*Min) exprNode()         {}
func (*Max) exprNode()         {}
func (*BitAnd) exprNode()      {}
func (*BitOr) exprNode()       {}
func (*Eq) exprNode()          {}
func (*Neq) exprNode()         {}
func (*Gt) exprNode()          {}
func (*Lt) exprNode()          {}
func (*Gte) exprNode()         {}
func (*Lte) exprNode()         {}
func (*And) exprNode()         {}
func (*Or) exprNode()          {}
func (*Cast) exprNode()        {}
func (*Load) exprNode()        {}
func (*GetProperty) exprNode() {}

// BinaryOperands returns the operands of a two-operand node.
// ok is false for every other kind.
func BinaryOperands(e Expr) (a, b Expr, ok bool) {
	switch e := e.(type) {
	case *Add:
		return e.A, e.B, true
	case *Sub:
		return e.A, e.B, true
	case *Mul:
		return e.A, e.B, true
	case *Div:
		return e.A, e.B, true
	case *Max:
		return e.A, e.B, true
	case *BitAnd:
		return e.A, e.B, true
	case *BitOr:
		return e.A, e.B, true
	case *Eq:
		return e.A, e.B, true
	case *Neq:
		return e.A, e.B, true
	case *Gt:
		return e.A, e.B, true
	case *Lt:
		return e.A, e.B, true
	case *Gte:
		return e.A, e.B, true
	case *Lte:
		return e.A, e.B, true
	case *And:
		return e.A, e.B, true
	case *Or:
		return e.A, e.B, true
	default:
		return nil, nil, false
	}
}

// NewBinary builds the two-operand node tagged op.
// ok is false when op does not name a binary kind.
func NewBinary(op string, a, b Expr) (Expr, bool) {
	switch op {
	case "add":
		return &Add{a, b}, true
	case "sub":
		return &Sub{a, b}, true
	case "mul":
		return &Mul{a, b}, true
	case "div":
		return &Div{a, b}, true
	case "max":
		return &Max{a, b}, true
	case "bitand":
		return &BitAnd{a, b}, true
	case "bitor":
		return &BitOr{a, b}, true
	case "eq":
		return &Eq{a, b}, true
	case "neq":
		return &Neq{a, b}, true
	case "gt":
		return &Gt{a, b}, true
	case "lt":
		return &Lt{a, b}, true
	case "gte":
		return &Gte{a, b}, true
	case "lte":
		return &Lte{a, b}, true
	case "and":
		return &And{a, b}, true
	case "or":
		return &Or{a, b}, true
	default:
		return nil, false
	}
}
