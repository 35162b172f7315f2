// Package apperr defines the caller-facing error taxonomy of the order
// negotiation engine. Every recoverable failure carries a stable Kind plus a
// human-readable reason; handlers map kinds to HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the stable, machine-readable error category.
type Kind string

const (
	KindAccessDenied       Kind = "access_denied"
	KindNotFound           Kind = "not_found"
	KindInvalidTransition  Kind = "invalid_transition"
	KindChannelClosed      Kind = "channel_closed"
	KindAlreadyAccepted    Kind = "already_accepted"
	KindPreconditionFailed Kind = "precondition_failed"
	KindConflict           Kind = "conflict"
	KindValidation         Kind = "validation_failed"
)

// Error is a categorized, caller-facing error.
type Error struct {
	Kind    Kind
	Message string
	Details any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New builds an Error with the given kind and message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithDetails attaches structured detail (e.g. field violations) to the error.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

// Convenience constructors for the taxonomy.

func AccessDenied(format string, args ...any) *Error {
	return New(KindAccessDenied, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, format, args...)
}

func InvalidTransition(format string, args ...any) *Error {
	return New(KindInvalidTransition, format, args...)
}

func ChannelClosed(format string, args ...any) *Error {
	return New(KindChannelClosed, format, args...)
}

func AlreadyAccepted(format string, args ...any) *Error {
	return New(KindAlreadyAccepted, format, args...)
}

func PreconditionFailed(format string, args ...any) *Error {
	return New(KindPreconditionFailed, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return New(KindConflict, format, args...)
}

func Validation(violations any) *Error {
	return New(KindValidation, "validation failed").WithDetails(violations)
}

// KindOf extracts the Kind from err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
