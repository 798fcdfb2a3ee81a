// Package domainerrors provides coded errors for business-rule outcomes.
//
// Services return these instead of raising ad hoc errors so that callers can
// branch on the code rather than on error strings, and so the transport layer
// can map codes onto HTTP statuses in one place (pkg/platform/httputil).
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	// CodeValidation marks missing or malformed required input.
	CodeValidation Code = "validation"
	// CodeBadRequest marks a request the transport layer could not prepare.
	CodeBadRequest Code = "bad_request"
	// CodeConflict marks a write rejected by a uniqueness rule.
	CodeConflict Code = "conflict"
	// CodeNotFound marks an operation targeting an unknown record.
	CodeNotFound Code = "not_found"
	// CodeForbidden marks a request rejected by an access filter.
	CodeForbidden Code = "forbidden"
	// CodeUnavailable marks a resource that exists but is gated off.
	CodeUnavailable Code = "unavailable"
	// CodeInternal marks an unexpected infrastructure failure.
	CodeInternal Code = "internal_error"
)

// Error is a coded domain error, optionally wrapping a cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs a coded error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// uncoded errors so unexpected failures never leak details upward.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the human-readable message from err, empty for
// uncoded errors.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}
