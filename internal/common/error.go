// Package common defines shared constants and sentinel errors used across
// the share service layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorUnauthorized = errors.New("unauthorized")

	// Policy error kinds. Each one maps to a single transport status.
	ErrorForbidden    = errors.New("forbidden")
	ErrorInvalidInput = errors.New("invalid input")
	ErrorConflict     = errors.New("conflict")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// APIError is a policy failure with a stable kind and a human-readable message.
//
// Kind is one of ErrorForbidden, ErrorInvalidInput or ErrorConflict, so
//
//	errors.Is(err, common.ErrorConflict)
//
// works through any amount of wrapping.
type APIError struct {
	Kind    error
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Kind
}

// Forbidden returns an APIError of kind ErrorForbidden.
func Forbidden(msg string) error {
	return &APIError{Kind: ErrorForbidden, Message: msg}
}

// InvalidInput returns an APIError of kind ErrorInvalidInput.
func InvalidInput(msg string) error {
	return &APIError{Kind: ErrorInvalidInput, Message: msg}
}

// Conflict returns an APIError of kind ErrorConflict.
func Conflict(msg string) error {
	return &APIError{Kind: ErrorConflict, Message: msg}
}
