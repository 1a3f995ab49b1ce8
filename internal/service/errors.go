package service

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks client input errors (HTTP 400).
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks missing resources (HTTP 404).
	ErrNotFound = errors.New("not found")
)

// Error carries a client-facing message and a Kind matched by errors.Is.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Kind }

func validationError(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func notFoundError(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}
