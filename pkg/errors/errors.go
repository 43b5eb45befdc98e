// Package errors provides structured error types for the artifact service.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across CLI and API
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Each code identifies one failure class of the generation pipeline:
//   - INVALID_*: Structural validation failures in a request
//   - QUOTA_EXCEEDED / SUBSCRIPTION_*: Plan-limit gating failures
//   - RENDER_ERROR: Internal renderer failures
//   - STORAGE_ERROR: Artifact persistence failures
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidInput, "edge references unknown node %q", id)
//	if errors.Is(err, errors.ErrCodeInvalidInput) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeStorage, origErr, "persist %s", name)
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
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidLayout Code = "INVALID_LAYOUT"
	ErrCodeInvalidKind   Code = "INVALID_KIND"

	// Quota gating errors
	ErrCodeQuotaExceeded        Code = "QUOTA_EXCEEDED"
	ErrCodeSubscriptionInactive Code = "SUBSCRIPTION_INACTIVE"
	ErrCodeSubscriptionMissing  Code = "SUBSCRIPTION_MISSING"

	// Resource not found errors
	ErrCodeNotFound Code = "NOT_FOUND"

	// Pipeline errors
	ErrCodeRender  Code = "RENDER_ERROR"
	ErrCodeStorage Code = "STORAGE_ERROR"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
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
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
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
// Renderer and internal failures are reported generically so that callers
// never see pipeline internals.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Code == ErrCodeRender || e.Code == ErrCodeInternal {
			return "artifact generation failed"
		}
		return e.Message
	}
	return err.Error()
}
