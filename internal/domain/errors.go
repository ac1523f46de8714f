// Package domain defines the core business entities and errors.
package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when an entity or mutation input fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrIntegrity is returned when a stored reference does not resolve at read time.
	ErrIntegrity = errors.New("integrity violation")

	// ErrBlankName is returned when a name is empty or only whitespace.
	ErrBlankName = fmt.Errorf("%w: name cannot be blank", ErrValidation)

	// ErrInvalidID is returned when an ID is zero or negative.
	ErrInvalidID = fmt.Errorf("%w: id must be positive", ErrValidation)

	// ErrUnknownAuthor is returned when a book references an author that does not exist.
	ErrUnknownAuthor = fmt.Errorf("%w: referenced author does not exist", ErrValidation)
)

// ValidationError describes a single failed precondition on an input field.
type ValidationError struct {
	Field   string // The offending field (e.g., "name", "authorId")
	Message string // Human-readable description
	Err     error  // Underlying sentinel, always wrapping ErrValidation
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Message)
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a ValidationError. If err is nil or does not wrap
// ErrValidation, ErrValidation is used so that errors.Is(e, ErrValidation) holds.
func NewValidationError(field, message string, err error) *ValidationError {
	if err == nil || !errors.Is(err, ErrValidation) {
		err = ErrValidation
	}
	return &ValidationError{
		Field:   field,
		Message: message,
		Err:     err,
	}
}

// IntegrityError reports a stored reference that failed to resolve, such as a
// book whose author no longer exists. It indicates store corruption.
type IntegrityError struct {
	Kind    EntityKind // The entity holding the reference
	ID      int        // Its id
	RefKind EntityKind // The referenced entity kind
	RefID   int        // The referenced id that did not resolve
}

// Error implements the error interface for IntegrityError.
func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity violation: %s %d references missing %s %d",
		e.Kind, e.ID, e.RefKind, e.RefID)
}

// Unwrap returns ErrIntegrity.
func (e *IntegrityError) Unwrap() error {
	return ErrIntegrity
}

// IsValidationError reports whether err is any kind of validation failure.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsIntegrityError reports whether err is any kind of integrity violation.
func IsIntegrityError(err error) bool {
	return errors.Is(err, ErrIntegrity)
}
