package driver

import (
	"errors"
	"fmt"
)

// BuildError reports a build that produced no artifact.
type BuildError struct {
	// Code identifies the error category.
	Code BuildErrorCode

	// Message is a human-readable description.
	Message string

	// Module is the module being built.
	Module string

	// Func is the failing function, when a single function is at fault.
	Func string

	// Err is the underlying error. For collect-all builds it joins every
	// function failure.
	Err error
}

// BuildErrorCode categorizes build errors.
type BuildErrorCode string

const (
	// ErrCodeCompileFailed indicates at least one function did not compile.
	ErrCodeCompileFailed BuildErrorCode = "COMPILE_FAILED"

	// ErrCodeCancelled indicates the context ended between functions.
	ErrCodeCancelled BuildErrorCode = "CANCELLED"

	// ErrCodeCacheFailed indicates the artifact store could not be read or
	// written.
	ErrCodeCacheFailed BuildErrorCode = "CACHE_FAILED"
)

// Error implements the error interface.
func (e *BuildError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	switch {
	case e.Module != "" && e.Func != "":
		msg += fmt.Sprintf(" (module=%s, func=%s)", e.Module, e.Func)
	case e.Module != "":
		msg += fmt.Sprintf(" (module=%s)", e.Module)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *BuildError) Unwrap() error {
	return e.Err
}

// CodeOf returns the build error code of err, or "" if err is not a
// BuildError.
func CodeOf(err error) BuildErrorCode {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

// IsCancelled reports whether err is a cancelled build.
func IsCancelled(err error) bool {
	return CodeOf(err) == ErrCodeCancelled
}

// IsCacheError reports whether err is a cache failure.
func IsCacheError(err error) bool {
	return CodeOf(err) == ErrCodeCacheFailed
}
