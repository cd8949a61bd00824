// Package faults defines the error taxonomy shared by the task engine:
// validation errors (bad input, no partial state change) and state conflicts
// (retryable once the blocking condition clears).
package faults

import (
	"errors"
	"fmt"
)

// ValidationError reports invalid input. The operation performed no writes.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation: %s", e.Reason)
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// Validation builds a ValidationError for a field.
func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// StateConflictError reports an operation rejected because of the current
// state of the record (task frozen, wrong status). The caller may retry
// after the condition clears.
type StateConflictError struct {
	Condition string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("state conflict: %s", e.Condition)
}

// Conflict builds a StateConflictError.
func Conflict(condition string) error {
	return &StateConflictError{Condition: condition}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsConflict reports whether err is (or wraps) a StateConflictError.
func IsConflict(err error) bool {
	var c *StateConflictError
	return errors.As(err, &c)
}
