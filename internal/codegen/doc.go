// Package codegen lowers tensor IR functions into LLVM IR.
//
// A Unit owns one LLVM module. Each call to Unit.Compile builds a fresh
// generator for one ir.Function: it owns the insertion point, the scoped
// symbol table and the tensor property cache for that function, and is
// discarded when the function is done. Units are safe for concurrent use
// but compile one function at a time; separate units are independent.
//
// Every compiled function has the C ABI
//
//	i32 @name(%taco_tensor_t* noalias, ...)
//
// with inputs then outputs as parameters and a constant 0 return. The
// descriptor layout is fixed (see TensorType) because generated kernels are
// linked against runtime code that fills the same struct.
//
// Errors come in two kinds. InternalError means the IR is malformed or the
// emitted code failed verification. RestrictionError means the IR is valid
// but uses a feature this backend does not lower. On either, the partially
// emitted function is removed from the module.
package codegen
