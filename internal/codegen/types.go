package codegen

import (
	"github.com/llir/llvm/ir/types"

	"github.com/roach88/tensorgen/internal/ir"
)

// LLVMType maps a datatype to its LLVM representation. Signedness is not
// part of LLVM integer types; it selects instructions instead.
func LLVMType(dt ir.Datatype) (types.Type, error) {
	switch dt.Kind {
	case ir.KindBool:
		return types.I1, nil
	case ir.KindInt, ir.KindUInt:
		switch dt.Bits {
		case 8:
			return types.I8, nil
		case 16:
			return types.I16, nil
		case 32:
			return types.I32, nil
		case 64:
			return types.I64, nil
		case 128:
			return types.I128, nil
		}
	case ir.KindFloat:
		switch dt.Bits {
		case 32:
			return types.Float, nil
		case 64:
			return types.Double, nil
		}
	}
	return nil, internalf(ErrCodeUnsupportedType, "no LLVM type for %s", dt)
}

func isFloatType(t types.Type) bool {
	_, ok := t.(*types.FloatType)
	return ok
}

func intBits(t types.Type) (uint64, bool) {
	it, ok := t.(*types.IntType)
	if !ok {
		return 0, false
	}
	return it.BitSize, true
}

func floatBits(t types.Type) uint64 {
	if t.Equal(types.Float) {
		return 32
	}
	return 64
}
