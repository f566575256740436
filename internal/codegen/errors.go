package codegen

import (
	"errors"
	"fmt"
)

// InternalError reports IR the generator cannot lower: a malformed tree, a
// type it has no mapping for, or a generated function that fails structural
// verification. Internal errors indicate a bug upstream of the generator.
type InternalError struct {
	// Code identifies the error category.
	Code InternalErrorCode

	// Message is a human-readable description.
	Message string

	// Func is the function being compiled, if known.
	Func string
}

// InternalErrorCode categorizes internal errors.
type InternalErrorCode string

const (
	// ErrCodeUnboundVariable indicates a name with no binding in any scope.
	ErrCodeUnboundVariable InternalErrorCode = "UNBOUND_VARIABLE"

	// ErrCodeTypeMismatch indicates operands whose LLVM types disagree.
	ErrCodeTypeMismatch InternalErrorCode = "TYPE_MISMATCH"

	// ErrCodeBadLoopVariable indicates a For whose variable is not a Var.
	ErrCodeBadLoopVariable InternalErrorCode = "BAD_LOOP_VARIABLE"

	// ErrCodeBadCaseLiteral indicates a switch case value that is not an
	// unsigned literal representable in the control's width, or a duplicate.
	ErrCodeBadCaseLiteral InternalErrorCode = "BAD_CASE_LITERAL"

	// ErrCodeBadLiteral indicates a literal out of range for its type.
	ErrCodeBadLiteral InternalErrorCode = "BAD_LITERAL"

	// ErrCodeUnsupportedType indicates a datatype with no LLVM mapping.
	ErrCodeUnsupportedType InternalErrorCode = "UNSUPPORTED_TYPE"

	// ErrCodeScopeUnderflow indicates a scope pop with no matching push.
	ErrCodeScopeUnderflow InternalErrorCode = "SCOPE_UNDERFLOW"

	// ErrCodeMalformedIR indicates a node in a position it cannot occupy.
	ErrCodeMalformedIR InternalErrorCode = "MALFORMED_IR"

	// ErrCodeReservedName indicates a function named like a declaration the
	// unit adds on demand: malloc or an llvm.* intrinsic.
	ErrCodeReservedName InternalErrorCode = "RESERVED_NAME"

	// ErrCodeVerifyFailed indicates the emitted function failed verification.
	ErrCodeVerifyFailed InternalErrorCode = "VERIFY_FAILED"
)

func (e *InternalError) Error() string {
	if e.Func != "" {
		return fmt.Sprintf("%s: %s (func=%s)", e.Code, e.Message, e.Func)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// RestrictionError reports valid IR that uses a feature this backend does
// not lower, such as parallel loops. Callers may fall back to another backend.
type RestrictionError struct {
	Feature string
	Message string
}

func (e *RestrictionError) Error() string {
	return fmt.Sprintf("unsupported %s: %s", e.Feature, e.Message)
}

// IsInternal reports whether err is or wraps an InternalError.
func IsInternal(err error) bool {
	var ie *InternalError
	return errors.As(err, &ie)
}

// IsRestriction reports whether err is or wraps a RestrictionError.
func IsRestriction(err error) bool {
	var re *RestrictionError
	return errors.As(err, &re)
}

// CodeOf returns the internal error code of err, or "" if err is not an
// InternalError.
func CodeOf(err error) InternalErrorCode {
	var ie *InternalError
	if errors.As(err, &ie) {
		return ie.Code
	}
	return ""
}

func internalf(code InternalErrorCode, format string, args ...any) *InternalError {
	return &InternalError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func restrictionf(feature, format string, args ...any) *RestrictionError {
	return &RestrictionError{Feature: feature, Message: fmt.Sprintf(format, args...)}
}
