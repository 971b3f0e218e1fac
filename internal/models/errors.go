package models

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is matched by every *ValidationError
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a transaction id is unknown
	ErrNotFound = errors.New("transaction not found")

	// ErrLocked is returned when encrypted data is read before unlocking
	ErrLocked = errors.New("storage is locked")
)

// ValidationError describes an input the aggregation refuses to use
type ValidationError struct {
	ID     string `json:"id,omitempty"`
	Field  string `json:"field"`
	Value  string `json:"value,omitempty"`
	Reason string `json:"reason"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("invalid %s %q on transaction %s: %s", e.Field, e.Value, e.ID, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// Unwrap lets errors.Is(err, ErrValidation) succeed
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Is matches another *ValidationError on the same field
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	if !ok {
		return false
	}
	return t.Field == "" || t.Field == e.Field
}
