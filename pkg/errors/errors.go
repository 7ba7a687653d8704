// Package errors provides structured error types for the forgekit resolver.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across CLI, API, and library consumers
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - *_NOT_FOUND: Resource not found
//   - Resolution failures: MISSING_DEPENDENCY, CIRCULAR_DEPENDENCY, CONFLICT, ...
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeMissingDependency, "no catalog entry for %s", ref)
//	if errors.Is(err, errors.ErrCodeMissingDependency) {
//	    // Handle missing dependency
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeCatalog, origErr, "load catalog %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidRef      Code = "INVALID_SERVICE_REF"
	ErrCodeInvalidVersion  Code = "INVALID_VERSION"
	ErrCodeInvalidStrategy Code = "INVALID_MERGE_STRATEGY"
	ErrCodeInvalidCatalog  Code = "INVALID_CATALOG"

	// Resource not found errors
	ErrCodeNotFound        Code = "NOT_FOUND"
	ErrCodeServiceNotFound Code = "SERVICE_NOT_FOUND"
	ErrCodeBundleNotFound  Code = "BUNDLE_NOT_FOUND"

	// Resolution failures
	ErrCodeMissingDependency  Code = "MISSING_DEPENDENCY"
	ErrCodeCircularDependency Code = "CIRCULAR_DEPENDENCY"
	ErrCodeConflict           Code = "CONFLICT"
	ErrCodeAmbiguousSelection Code = "AMBIGUOUS_SELECTION"
	ErrCodeIncompatible       Code = "INCOMPATIBLE"
	ErrCodeTimeout            Code = "TIMEOUT"
	ErrCodeCanceled           Code = "CANCELED"

	// Infrastructure errors
	ErrCodeCatalog         Code = "CATALOG_ERROR"
	ErrCodeCacheCorruption Code = "CACHE_CORRUPTION"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code,
// so a wrapped SERVICE_NOT_FOUND still matches through an outer
// MISSING_DEPENDENCY.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
