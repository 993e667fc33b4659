package models

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the repository layer.
var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicateKey = errors.New("duplicate key violation")
	ErrInvalidID    = errors.New("invalid ID format")
)

// ValidationError marks malformed input (leg, pick, market type). It is never
// retried and is surfaced directly to the caller of the failing operation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for a field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// InsufficientCandidatesError reports that fewer legs were available than
// requested even after full constraint relaxation. It carries the counts so
// callers can offer a concrete downgrade path.
type InsufficientCandidatesError struct {
	Needed  int
	Have    int
	Message string
}

func (e *InsufficientCandidatesError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("insufficient candidates: need %d, have %d: %s", e.Needed, e.Have, e.Message)
	}
	return fmt.Sprintf("insufficient candidates: need %d, have %d", e.Needed, e.Have)
}

// NewInsufficientCandidatesError builds the error with counts and a
// remediation message.
func NewInsufficientCandidatesError(needed, have int, message string) *InsufficientCandidatesError {
	return &InsufficientCandidatesError{Needed: needed, Have: have, Message: message}
}

// IsInsufficientCandidates reports whether err is (or wraps) an
// InsufficientCandidatesError.
func IsInsufficientCandidates(err error) bool {
	var ie *InsufficientCandidatesError
	return errors.As(err, &ie)
}

// ComputationError marks an unexpected internal invariant violation. Fatal
// for the operation; logged and surfaced as a generic failure.
type ComputationError struct {
	Op      string
	Message string
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("computation error in %s: %s", e.Op, e.Message)
}

// NewComputationError builds a ComputationError for an operation.
func NewComputationError(op, message string) *ComputationError {
	return &ComputationError{Op: op, Message: message}
}
