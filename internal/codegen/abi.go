package codegen

import (
	"github.com/llir/llvm/ir/types"

	"github.com/roach88/tensorgen/internal/ir"
)

// TensorTypeName is the name of the descriptor struct in every module.
const TensorTypeName = "taco_tensor_t"

// Descriptor layout. The field order and types are a binary contract with
// the runtime that fills descriptors; never reorder.
//
//	struct taco_tensor_t {
//	  int32_t   order;
//	  int32_t*  dimensions;
//	  int32_t   csize;
//	  int32_t*  mode_ordering;
//	  int32_t*  mode_types;
//	  uint8_t*** indices;
//	  uint8_t*  vals;
//	  int32_t   vals_size;
//	};
var tensorFields = [...]ir.TensorProperty{
	ir.Order,
	ir.Dimension,
	ir.ComponentSize,
	ir.ModeOrdering,
	ir.ModeTypes,
	ir.Indices,
	ir.Values,
	ir.ValuesSize,
}

// tensorFieldType returns the LLVM type of the descriptor field holding p.
func tensorFieldType(p ir.TensorProperty) types.Type {
	i8p := types.NewPointer(types.I8)
	switch p {
	case ir.Dimension, ir.ModeOrdering, ir.ModeTypes:
		return types.NewPointer(types.I32)
	case ir.Indices:
		return types.NewPointer(types.NewPointer(i8p))
	case ir.Values:
		return i8p
	default:
		return types.I32
	}
}

// tensorFieldIndex returns the struct index of the field holding p.
func tensorFieldIndex(p ir.TensorProperty) (int, bool) {
	for i, f := range tensorFields {
		if f == p {
			return i, true
		}
	}
	return 0, false
}

func newTensorStruct() *types.StructType {
	fields := make([]types.Type, len(tensorFields))
	for i, p := range tensorFields {
		fields[i] = tensorFieldType(p)
	}
	return types.NewStruct(fields...)
}
