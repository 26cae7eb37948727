package reminder

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned when input violates a precondition.
	ErrValidation = errors.New("invalid reminder")

	// ErrNotFound is returned by id-keyed operations on an absent reminder.
	ErrNotFound = errors.New("reminder not found")

	// ErrPersistence wraps failures of the durable store.
	ErrPersistence = errors.New("reminder persistence failed")

	// ErrSchema is returned when stored data does not match the record schema.
	ErrSchema = errors.New("invalid stored reminder data")
)

// ValidationError describes the input field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
