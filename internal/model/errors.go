package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientCredit indicates the client has no active package with remaining sessions.
	ErrInsufficientCredit = errors.New("insufficient credit")
	// ErrNoRefundablePackage indicates no package has consumed sessions to give back.
	ErrNoRefundablePackage = errors.New("no refundable package")
	// ErrConflict indicates an optimistic-concurrency check failed; the caller should
	// re-read and retry.
	ErrConflict = errors.New("concurrent update conflict")
	// ErrAuthRevoked indicates the calendar credential is permanently invalid and
	// re-consent is required. Never retried.
	ErrAuthRevoked = errors.New("calendar authorization revoked")
	// ErrTransient indicates a retryable external failure (network, 5xx, timeout).
	ErrTransient = errors.New("transient external failure")
)

// ValidationError describes malformed or missing input. It is reported to the
// caller immediately, before any side effect.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}
