package provider

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport signals that the provider could not be reached.
	ErrTransport = errors.New("provider transport error")
	// ErrUpstream signals a non-2xx response from the provider.
	ErrUpstream = errors.New("provider returned an error")
	// ErrUnexpectedResponse signals a 2xx response without the expected payload.
	ErrUnexpectedResponse = errors.New("unexpected provider response")
)

// Error describes a failed provider call. errors.Is matches its Kind.
type Error struct {
	Provider   string
	Kind       error
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Provider, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
