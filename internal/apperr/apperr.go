// Package apperr classifies failures of domain operations so that every
// boundary (HTTP handler, optimistic board) can report them the same way.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the machine-readable class of an error.
type Kind string

const (
	KindUnknown     Kind = "unknown"
	KindValidation  Kind = "validation"
	KindPersistence Kind = "persistence"
	KindNotFound    Kind = "not_found"
)

// Error is a classified error. Message is safe to show to the user.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Validation reports malformed caller input, rejected before any persistence call.
func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Persistence wraps a failed store call. op names the operation, e.g. "toggle completion".
func Persistence(op string, err error) error {
	return &Error{Kind: KindPersistence, Op: op, Message: "failed to " + op, Err: err}
}

// NotFound reports a reference to an entity that no longer exists.
func NotFound(entity string, id int64) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %d not found", entity, id)}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsValidation(err error) bool { return KindOf(err) == KindValidation }
func IsNotFound(err error) bool   { return KindOf(err) == KindNotFound }

// Message returns the user-facing text for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

// HTTPStatus maps an error to the response status a handler should use.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
