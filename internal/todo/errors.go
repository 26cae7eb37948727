package todo

import "errors"

var (
	// ErrValidation is returned when input violates a precondition.
	ErrValidation = errors.New("invalid todo")

	// ErrNotFound is returned by id-keyed operations on an absent todo.
	ErrNotFound = errors.New("todo not found")

	// ErrPersistence wraps failures of the durable store.
	ErrPersistence = errors.New("todo persistence failed")

	// ErrSchema is returned when stored data does not match the record schema.
	ErrSchema = errors.New("invalid stored todo data")
)
