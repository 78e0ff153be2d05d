package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity does not resolve.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates a cross-account access attempt.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict indicates the operation collides with existing state.
	ErrConflict = errors.New("conflict")
	// ErrValidation indicates malformed or out-of-range input.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInfrastructure indicates the underlying store or broker is unavailable.
	// Kept distinct from business rejections so callers can decide retry policy.
	ErrInfrastructure = errors.New("infrastructure failure")
)

// FieldError is a validation failure scoped to a single field.
type FieldError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Unwrap classifies field errors under ErrValidation.
func (e *FieldError) Unwrap() error {
	return ErrValidation
}

// Infra wraps a store or broker error so it surfaces as ErrInfrastructure.
func Infra(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrInfrastructure, op, err)
}
