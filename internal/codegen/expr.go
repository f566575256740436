package codegen

import (
	llvm "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/roach88/tensorgen/internal/ir"
)

// expr lowers e at the current insertion point and returns its value.
func (g *generator) expr(e ir.Expr) (value.Value, error) {
	switch e := e.(type) {
	case nil:
		return nil, internalf(ErrCodeMalformedIR, "missing expression")
	case *ir.Literal:
		return literal(e)
	case *ir.Var:
		return g.variable(e)
	case *ir.Neg:
		return g.neg(e)
	case *ir.Sqrt:
		a, err := g.expr(e.A)
		if err != nil {
			return nil, err
		}
		if !isFloatType(a.Type()) {
			return nil, internalf(ErrCodeTypeMismatch, "sqrt of %s", a.Type())
		}
		return g.block.NewCall(g.unit.sqrt(a.Type()), a), nil
	case *ir.Add, *ir.Sub, *ir.Mul, *ir.Div:
		return g.arith(e)
	case *ir.Min:
		return g.min(e)
	case *ir.Max:
		a, b, err := g.operands(e.A, e.B)
		if err != nil {
			return nil, err
		}
		return g.block.NewCall(g.unit.binaryIntrinsic("max", a.Type(), e.A.Type()), a, b), nil
	case *ir.BitAnd, *ir.And:
		a, b, err := g.binaryOperands(e)
		if err != nil {
			return nil, err
		}
		return g.block.NewAnd(a, b), nil
	case *ir.BitOr, *ir.Or:
		a, b, err := g.binaryOperands(e)
		if err != nil {
			return nil, err
		}
		return g.block.NewOr(a, b), nil
	case *ir.Eq, *ir.Neq, *ir.Gt, *ir.Lt, *ir.Gte, *ir.Lte:
		return g.compare(e)
	case *ir.Cast:
		return g.cast(e)
	case *ir.Load:
		return g.load(e)
	case *ir.GetProperty:
		return g.property(e)
	default:
		return nil, internalf(ErrCodeMalformedIR, "no lowering for expression %T", e)
	}
}

// variable resolves a name. Declared locals live in stack slots and are
// loaded; parameters and loop variables are used directly.
func (g *generator) variable(v *ir.Var) (value.Value, error) {
	bound, err := g.syms.Lookup(v.Name)
	if err != nil {
		return nil, err
	}
	if slot, ok := bound.(*llvm.InstAlloca); ok {
		return g.block.NewLoad(slot.ElemType, slot), nil
	}
	return bound, nil
}

func (g *generator) operands(x, y ir.Expr) (value.Value, value.Value, error) {
	a, err := g.expr(x)
	if err != nil {
		return nil, nil, err
	}
	b, err := g.expr(y)
	if err != nil {
		return nil, nil, err
	}
	if !sameType(a, b) {
		return nil, nil, internalf(ErrCodeTypeMismatch, "operands %s and %s differ", a.Type(), b.Type())
	}
	return a, b, nil
}

func (g *generator) binaryOperands(e ir.Expr) (value.Value, value.Value, error) {
	x, y, ok := ir.BinaryOperands(e)
	if !ok {
		return nil, nil, internalf(ErrCodeMalformedIR, "%s is not binary", e.Op())
	}
	return g.operands(x, y)
}

func (g *generator) arith(e ir.Expr) (value.Value, error) {
	x, _, _ := ir.BinaryOperands(e)
	a, b, err := g.binaryOperands(e)
	if err != nil {
		return nil, err
	}
	dt := x.Type()

	if isFloatType(a.Type()) {
		switch e.(type) {
		case *ir.Add:
			return g.block.NewFAdd(a, b), nil
		case *ir.Sub:
			return g.block.NewFSub(a, b), nil
		case *ir.Mul:
			return g.block.NewFMul(a, b), nil
		default:
			return g.block.NewFDiv(a, b), nil
		}
	}

	if _, ok := intBits(a.Type()); !ok {
		return nil, internalf(ErrCodeTypeMismatch, "%s on %s", e.Op(), a.Type())
	}
	switch e.(type) {
	case *ir.Add:
		return g.block.NewAdd(a, b), nil
	case *ir.Sub:
		return g.block.NewSub(a, b), nil
	case *ir.Mul:
		return g.block.NewMul(a, b), nil
	default:
		if dt.IsInt() {
			div := g.block.NewSDiv(a, b)
			div.Exact = true
			return div, nil
		}
		div := g.block.NewUDiv(a, b)
		div.Exact = true
		return div, nil
	}
}

func (g *generator) neg(e *ir.Neg) (value.Value, error) {
	a, err := g.expr(e.A)
	if err != nil {
		return nil, err
	}
	switch t := a.Type().(type) {
	case *types.FloatType:
		return g.block.NewFSub(constant.NewFloat(t, 0), a), nil
	case *types.IntType:
		return g.block.NewSub(constant.NewInt(t, 0), a), nil
	default:
		return nil, internalf(ErrCodeTypeMismatch, "negation of %s", a.Type())
	}
}

var (
	floatPreds = map[string]enum.FPred{
		"eq": enum.FPredOEQ, "neq": enum.FPredONE,
		"gt": enum.FPredOGT, "lt": enum.FPredOLT,
		"gte": enum.FPredOGE, "lte": enum.FPredOLE,
	}
	signedPreds = map[string]enum.IPred{
		"eq": enum.IPredEQ, "neq": enum.IPredNE,
		"gt": enum.IPredSGT, "lt": enum.IPredSLT,
		"gte": enum.IPredSGE, "lte": enum.IPredSLE,
	}
	unsignedPreds = map[string]enum.IPred{
		"eq": enum.IPredEQ, "neq": enum.IPredNE,
		"gt": enum.IPredUGT, "lt": enum.IPredULT,
		"gte": enum.IPredUGE, "lte": enum.IPredULE,
	}
)

// compare dispatches on the operand type; the node itself is always bool.
func (g *generator) compare(e ir.Expr) (value.Value, error) {
	x, _, _ := ir.BinaryOperands(e)
	a, b, err := g.binaryOperands(e)
	if err != nil {
		return nil, err
	}
	switch {
	case isFloatType(a.Type()):
		return g.block.NewFCmp(floatPreds[e.Op()], a, b), nil
	case x.Type().IsInt():
		return g.block.NewICmp(signedPreds[e.Op()], a, b), nil
	default:
		if _, ok := intBits(a.Type()); !ok {
			return nil, internalf(ErrCodeTypeMismatch, "%s on %s", e.Op(), a.Type())
		}
		return g.block.NewICmp(unsignedPreds[e.Op()], a, b), nil
	}
}

// min folds left over the operands: min(min(a, b), c).
func (g *generator) min(e *ir.Min) (value.Value, error) {
	if len(e.Operands) < 2 {
		return nil, internalf(ErrCodeMalformedIR, "min needs at least 2 operands, got %d", len(e.Operands))
	}
	acc, err := g.expr(e.Operands[0])
	if err != nil {
		return nil, err
	}
	dt := e.Operands[0].Type()
	fn := g.unit.binaryIntrinsic("min", acc.Type(), dt)
	for _, op := range e.Operands[1:] {
		v, err := g.expr(op)
		if err != nil {
			return nil, err
		}
		if !sameType(acc, v) {
			return nil, internalf(ErrCodeTypeMismatch, "min operands %s and %s differ", acc.Type(), v.Type())
		}
		acc = g.block.NewCall(fn, acc, v)
	}
	return acc, nil
}

func (g *generator) cast(e *ir.Cast) (value.Value, error) {
	v, err := g.expr(e.A)
	if err != nil {
		return nil, err
	}
	to, err := LLVMType(e.Typ)
	if err != nil {
		return nil, err
	}
	return g.convert(v, e.A.Type(), to, e.Typ)
}

// convert changes v of semantic type from to the LLVM type to, whose
// semantic type is dst.
func (g *generator) convert(v value.Value, from ir.Datatype, to types.Type, dst ir.Datatype) (value.Value, error) {
	src := v.Type()
	if src.Equal(to) {
		return v, nil
	}

	if toFloat, ok := to.(*types.FloatType); ok {
		if isFloatType(src) {
			if floatBits(src) < floatBits(to) {
				return g.block.NewFPExt(v, toFloat), nil
			}
			return g.block.NewFPTrunc(v, toFloat), nil
		}
		if _, ok := intBits(src); !ok {
			return nil, internalf(ErrCodeTypeMismatch, "cannot cast %s to %s", src, to)
		}
		if from.IsInt() {
			return g.block.NewSIToFP(v, toFloat), nil
		}
		return g.block.NewUIToFP(v, toFloat), nil
	}

	toBits, ok := intBits(to)
	if !ok {
		return nil, internalf(ErrCodeUnsupportedType, "cannot cast to %s", to)
	}
	if isFloatType(src) {
		if dst.IsInt() {
			return g.block.NewFPToSI(v, to), nil
		}
		return g.block.NewFPToUI(v, to), nil
	}
	srcBits, ok := intBits(src)
	if !ok {
		return nil, internalf(ErrCodeTypeMismatch, "cannot cast %s to %s", src, to)
	}
	if srcBits > toBits {
		return g.block.NewTrunc(v, to), nil
	}
	if dst.IsInt() && !from.IsBool() {
		return g.block.NewSExt(v, to), nil
	}
	return g.block.NewZExt(v, to), nil
}

func (g *generator) load(e *ir.Load) (value.Value, error) {
	elem, err := LLVMType(e.Typ)
	if err != nil {
		return nil, err
	}
	addr, err := g.elementAddress(e.Arr, e.Loc, elem)
	if err != nil {
		return nil, err
	}
	return g.block.NewLoad(elem, addr), nil
}

// elementAddress computes &arr[loc] for elements of type elem. A base
// pointer to some other type (the i8* vals buffer) is cast first.
func (g *generator) elementAddress(arr, loc ir.Expr, elem types.Type) (value.Value, error) {
	base, err := g.expr(arr)
	if err != nil {
		return nil, err
	}
	pt, ok := base.Type().(*types.PointerType)
	if !ok {
		return nil, internalf(ErrCodeTypeMismatch, "%s is not a pointer", base.Type())
	}
	if !pt.ElemType.Equal(elem) {
		base = g.block.NewBitCast(base, types.NewPointer(elem))
	}

	idx, err := g.expr(loc)
	if err != nil {
		return nil, err
	}
	if _, ok := intBits(idx.Type()); !ok {
		return nil, internalf(ErrCodeTypeMismatch, "index of type %s", idx.Type())
	}
	return g.block.NewGetElementPtr(elem, base, idx), nil
}
