package codegen

import (
	"fmt"
	"strings"

	llvm "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"

	"github.com/roach88/tensorgen/internal/ir"
)

// declare returns the external function name, declaring it on first use.
// Declarations are shared by every function in the unit.
func (u *Unit) declare(name string, ret types.Type, params ...types.Type) *llvm.Func {
	if fn, ok := u.decls[name]; ok {
		return fn
	}
	ps := make([]*llvm.Param, len(params))
	for i, p := range params {
		ps[i] = llvm.NewParam("", p)
	}
	fn := u.module.NewFunc(name, ret, ps...)
	u.decls[name] = fn
	return fn
}

// mallocName is the allocator every Allocate calls.
const mallocName = "malloc"

// reservedName reports whether name may be taken by a declaration the unit
// adds on demand.
func reservedName(name string) bool {
	return name == mallocName || strings.HasPrefix(name, "llvm.")
}

func (u *Unit) malloc() *llvm.Func {
	return u.declare(mallocName, types.NewPointer(types.I8), types.I64)
}

// typeSuffix is the overload suffix of an intrinsic: f32, f64, i8 ... i128.
func typeSuffix(t types.Type) string {
	if isFloatType(t) {
		return fmt.Sprintf("f%d", floatBits(t))
	}
	bits, _ := intBits(t)
	return fmt.Sprintf("i%d", bits)
}

// binaryIntrinsic declares the two-operand intrinsic for min or max over t.
// Floats use the NaN-propagating minimum/maximum; integers pick the signed
// or unsigned variant from dt.
func (u *Unit) binaryIntrinsic(op string, t types.Type, dt ir.Datatype) *llvm.Func {
	var name string
	switch {
	case isFloatType(t):
		name = fmt.Sprintf("llvm.%simum.%s", op, typeSuffix(t))
	case dt.IsInt():
		name = fmt.Sprintf("llvm.s%s.%s", op, typeSuffix(t))
	default:
		name = fmt.Sprintf("llvm.u%s.%s", op, typeSuffix(t))
	}
	return u.declare(name, t, t, t)
}

func (u *Unit) sqrt(t types.Type) *llvm.Func {
	return u.declare("llvm.sqrt."+typeSuffix(t), t, t)
}
