package domain

import (
	"errors" // Sentinel errors
	"fmt"    // Error formatting
)

// Kind classifies a failure so callers can react to the precondition that
// was violated rather than to a generic error.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindInvalidState  Kind = "invalid_state"
	KindAlreadyExists Kind = "already_exists"
	KindNotFound      Kind = "not_found"
	KindDependency    Kind = "dependency"
)

// Error carries a Kind, the operation that failed and a message naming
// the violated precondition.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind when target carries no message,
// so errors.Is(err, ErrValidation) works for every validation failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Msg == "" && t.Err == nil
}

// Sentinels for errors.Is.
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrInvalidState  = &Error{Kind: KindInvalidState}
	ErrAlreadyExists = &Error{Kind: KindAlreadyExists}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrDependency    = &Error{Kind: KindDependency}
)

func newError(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Validation reports malformed input.
func Validation(op, format string, args ...any) error {
	return newError(KindValidation, op, format, args...)
}

// InvalidState reports an operation attempted in the wrong lifecycle phase.
func InvalidState(op, format string, args ...any) error {
	return newError(KindInvalidState, op, format, args...)
}

// AlreadyExists reports a duplicate of a record that must be unique.
func AlreadyExists(op, format string, args ...any) error {
	return newError(KindAlreadyExists, op, format, args...)
}

// NotFound reports a missing record.
func NotFound(op, format string, args ...any) error {
	return newError(KindNotFound, op, format, args...)
}

// Dependency wraps a failure of an external collaborator.
func Dependency(op, msg string, err error) error {
	return &Error{Kind: KindDependency, Op: op, Msg: msg, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Message returns the precondition message of err, falling back to err.Error().
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	return err.Error()
}
