package contact

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when no message has the requested ID.
	ErrNotFound = errors.New("contact message not found")

	// ErrValidation is the kind of every *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrPersistence wraps driver failures so callers can tell them apart
	// from not-found and validation errors.
	ErrPersistence = errors.New("persistence failure")
)

// ValidationError lists the offending fields.
type ValidationError struct {
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason + " (" + strings.Join(e.Fields, ", ") + ")"
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
