// Package ir provides the tensor-algebra intermediate representation consumed
// by the LLVM backend.
//
// The IR is produced by the upstream scheduling pass and is immutable once
// built. This package contains type definitions, structural rewrites that
// do not change meaning (case desugaring), and canonical encoding for
// content-addressed identity. All other internal packages import ir; ir
// imports nothing internal.
//
// Key design constraints:
//   - Expr and Stmt are closed: every kind implements an unexported marker
//     method, so consumers dispatch with a type switch over a known set
//   - Every expression carries a Datatype; comparisons and logical
//     operators are Bool
//   - Literals are exact: integers are held as *big.Int so 128-bit values
//     survive, floats as float64 so float32 values round trip
//   - Canonical encoding never contains floats; float literals are encoded
//     by their IEEE bit pattern
package ir
