package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/phrazzld/shelf-api/internal/domain"
)

// Code classifies an error in a response.
type Code string

// Error codes reported in extensions.code
const (
	CodeValidationFailed   Code = "VALIDATION_FAILED"
	CodeIntegrityViolation Code = "INTEGRITY_VIOLATION"
	CodeInternal           Code = "INTERNAL"
	CodeDeadlineExceeded   Code = "DEADLINE_EXCEEDED"
)

var (
	// ErrMutationNotAllowed is returned when a read-only request selects a
	// mutation operation.
	ErrMutationNotAllowed = errors.New("mutations are not allowed on read-only requests")

	// ErrDeadlineExceeded is returned when the request deadline expires
	// before execution completes.
	ErrDeadlineExceeded = fmt.Errorf("query execution aborted: %w", context.DeadlineExceeded)

	// ErrCanceled is returned when the caller cancels the request.
	ErrCanceled = fmt.Errorf("query execution aborted: %w", context.Canceled)
)

// SyntaxError reports malformed query text. It wraps domain.ErrValidation.
type SyntaxError struct {
	Pos     Position
	Message string
}

func syntaxErrorf(pos Position, format string, args ...any) *SyntaxError {
	return &SyntaxError{Pos: pos, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface for SyntaxError.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %s: %s", e.Pos, e.Message)
}

// Unwrap returns domain.ErrValidation.
func (e *SyntaxError) Unwrap() error {
	return domain.ErrValidation
}

// Error is one entry of a response's errors list.
type Error struct {
	Message    string          `json:"message"`
	Locations  []Position      `json:"locations,omitempty"`
	Path       []any           `json:"path,omitempty"`
	Extensions ErrorExtensions `json:"extensions"`
}

// ErrorExtensions carries the machine-readable error code.
type ErrorExtensions struct {
	Code Code `json:"code"`
}

// Error implements the error interface for Error.
func (e *Error) Error() string {
	return e.Message
}

func requestError(code Code, message string, pos *Position) *Error {
	e := &Error{Message: message, Extensions: ErrorExtensions{Code: code}}
	if pos != nil {
		e.Locations = []Position{*pos}
	}
	return e
}

// invalidf builds the request-level validation error for a bad selection.
func invalidf(pos Position, format string, args ...any) error {
	return &positionedError{
		pos: pos,
		err: domain.NewValidationError("", fmt.Sprintf(format, args...), nil),
	}
}

// positionedError attaches a source location to a validation error.
type positionedError struct {
	pos Position
	err error
}

func (e *positionedError) Error() string { return e.err.Error() }
func (e *positionedError) Unwrap() error { return e.err }

// classify maps a field resolution failure to a code and client-safe message.
func classify(err error) (Code, string, bool) {
	switch {
	case domain.IsValidationError(err):
		return CodeValidationFailed, err.Error(), true
	case domain.IsIntegrityError(err):
		return CodeIntegrityViolation, err.Error(), true
	default:
		return CodeInternal, "internal error", false
	}
}
