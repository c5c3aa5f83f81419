// Package response holds the structured error envelope returned by repository
// operations.
package response

import (
	"errors"
	"fmt"
)

// Kind classifies an Error
type Kind string

const (
	KindNotFound       Kind = "not_found"
	KindException      Kind = "exception"
	KindNotImplemented Kind = "not_implemented"
)

// Error is the envelope every failed repository operation resolves to
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap exposes the backend failure, if any
func (e *Error) Unwrap() error {
	return e.Cause
}

// NotFound reports an identifier-addressed operation that matched nothing
func NotFound(message string) *Error {
	if message == "" {
		message = "Not found"
	}
	return &Error{Kind: KindNotFound, Message: message}
}

// Exception wraps a backend failure
func Exception(err error) *Error {
	var existing *Error
	if errors.As(err, &existing) {
		return existing
	}
	return &Error{Kind: KindException, Message: "backend operation failed", Cause: err}
}

// NotImplemented reports an operation this layer intentionally does not support
func NotImplemented() *Error {
	return &Error{Kind: KindNotImplemented, Message: "Not implemented"}
}

// KindOf returns the kind of err, or "" when err is not an envelope
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
