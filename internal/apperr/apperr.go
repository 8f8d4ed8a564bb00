// Package apperr classifies failures so the HTTP edge can pick a status code
// and a caller-safe message without inspecting store errors.
package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrAuth       = errors.New("authentication failed")
	ErrPermission = errors.New("permission denied")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)

// Error carries a message that is safe to return to the caller.
// errors.Is matches it against its kind sentinel.
type Error struct {
	kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.kind
}

func Validation(msg string) error { return &Error{kind: ErrValidation, Message: msg} }
func Auth(msg string) error       { return &Error{kind: ErrAuth, Message: msg} }
func Permission(msg string) error { return &Error{kind: ErrPermission, Message: msg} }
func NotFound(msg string) error   { return &Error{kind: ErrNotFound, Message: msg} }
func Conflict(msg string) error   { return &Error{kind: ErrConflict, Message: msg} }

// Status maps a classified error to its HTTP status. Conflicts answer 400,
// which is what the frontend expects for duplicates.
// Unclassified errors are server faults.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, ErrPermission):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the caller-safe message of a classified error.
func Message(err error) (string, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message, true
	}
	return "", false
}
