// Package apperr defines the error-kind taxonomy shared by the service
// layer and its transports. Callers branch on Kind, never on error text.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error independently of its message or transport.
type Kind int

const (
	// Internal covers anything unexpected: store failures, corrupted
	// persisted data, programmer error.
	Internal Kind = iota
	// NotFound means the referenced queue, task, or worker does not exist
	// (or does not exist within the caller's scope).
	NotFound
	// Conflict means the operation would violate a uniqueness constraint,
	// e.g. a duplicate queue name.
	Conflict
	// BadRequest means the caller's input failed validation before any
	// store access was attempted.
	BadRequest
	// InvalidTransition means a task status update was rejected by the FSM.
	InvalidTransition
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case BadRequest:
		return "bad_request"
	case InvalidTransition:
		return "invalid_transition"
	default:
		return "internal"
	}
}

// Error is an error tagged with a Kind, optionally wrapping a cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New builds a Kind-tagged error with no underlying cause.
func New(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a Kind-tagged error around an existing cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the Kind carried by err, or Internal if err is not an
// *Error (or is nil, which returns Internal as a safe default for callers
// that should not be invoked with a nil error in the first place).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}
