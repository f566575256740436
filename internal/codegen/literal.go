package codegen

import (
	"math"
	"math/big"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"

	"github.com/roach88/tensorgen/internal/ir"
)

// literal emits a constant bit-identical to l.
func literal(l *ir.Literal) (constant.Constant, error) {
	switch l.Typ.Kind {
	case ir.KindBool:
		return constant.NewBool(l.Bool), nil
	case ir.KindInt, ir.KindUInt:
		return intLiteral(l)
	case ir.KindFloat:
		return floatLiteral(l)
	default:
		return nil, internalf(ErrCodeUnsupportedType, "no literal lowering for %s", l.Typ)
	}
}

func intLiteral(l *ir.Literal) (constant.Constant, error) {
	switch l.Typ.Bits {
	case 8, 16, 32, 64, 128:
	default:
		return nil, internalf(ErrCodeBadLiteral, "unsupported integer width %d", l.Typ.Bits)
	}
	if l.Int == nil {
		return nil, internalf(ErrCodeBadLiteral, "%s literal has no value", l.Typ)
	}

	bits := uint(l.Typ.Bits)
	lo, hi := intRange(l.Typ)
	if l.Int.Cmp(lo) < 0 || l.Int.Cmp(hi) > 0 {
		return nil, internalf(ErrCodeBadLiteral, "%s out of range for %s", l.Int, l.Typ)
	}

	t, err := LLVMType(l.Typ)
	if err != nil {
		return nil, err
	}
	return &constant.Int{Typ: t.(*types.IntType), X: toSigned(l.Int, bits)}, nil
}

// intRange returns the inclusive range of values of an integer datatype.
func intRange(dt ir.Datatype) (lo, hi *big.Int) {
	bits := uint(dt.Bits)
	one := big.NewInt(1)
	if dt.IsUInt() {
		hi = new(big.Int).Sub(new(big.Int).Lsh(one, bits), one)
		return big.NewInt(0), hi
	}
	hi = new(big.Int).Sub(new(big.Int).Lsh(one, bits-1), one)
	lo = new(big.Int).Neg(new(big.Int).Lsh(one, bits-1))
	return lo, hi
}

// toSigned reinterprets v as a two's complement value of the given width.
// Values already in signed range are returned unchanged.
func toSigned(v *big.Int, bits uint) *big.Int {
	half := new(big.Int).Lsh(big.NewInt(1), bits-1)
	if v.Cmp(half) < 0 {
		return new(big.Int).Set(v)
	}
	return new(big.Int).Sub(v, new(big.Int).Lsh(big.NewInt(1), bits))
}

func floatLiteral(l *ir.Literal) (constant.Constant, error) {
	if math.IsNaN(l.Float) {
		t, err := LLVMType(l.Typ)
		if err != nil {
			return nil, internalf(ErrCodeBadLiteral, "unsupported float width %d", l.Typ.Bits)
		}
		return &constant.Float{Typ: t.(*types.FloatType), X: new(big.Float), NaN: true}, nil
	}
	switch l.Typ.Bits {
	case 32:
		f := float32(l.Float)
		if math.IsInf(float64(f), 0) && !math.IsInf(l.Float, 0) {
			return nil, internalf(ErrCodeBadLiteral, "%g out of range for float32", l.Float)
		}
		return constant.NewFloat(types.Float, float64(f)), nil
	case 64:
		return constant.NewFloat(types.Double, l.Float), nil
	default:
		return nil, internalf(ErrCodeBadLiteral, "unsupported float width %d", l.Typ.Bits)
	}
}

// intConstant builds a constant of integer type t from an unsigned value
// already checked to fit.
func intConstant(t *types.IntType, v *big.Int) *constant.Int {
	return &constant.Int{Typ: t, X: toSigned(v, uint(t.BitSize))}
}
