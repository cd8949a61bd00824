package faults

import (
	"fmt"
	"strings"
	"testing"
)

func TestValidation_Error(t *testing.T) {
	err := Validation("title", "is required")
	if err.Error() != "validation: title: is required" {
		t.Errorf("Error() = %q", err.Error())
	}

	err = Validation("", "malformed request")
	if err.Error() != "validation: malformed request" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestConflict_Error(t *testing.T) {
	err := Conflict("task task-abc12 is busy")
	if !strings.Contains(err.Error(), "state conflict") {
		t.Errorf("Error() = %q, want to contain %q", err.Error(), "state conflict")
	}
}

func TestIsValidation(t *testing.T) {
	err := Validation("score", "must be between 1 and 10")
	if !IsValidation(err) {
		t.Error("IsValidation = false for a ValidationError")
	}
	if IsConflict(err) {
		t.Error("IsConflict = true for a ValidationError")
	}
}

func TestIsConflict(t *testing.T) {
	err := Conflict("task not completed")
	if !IsConflict(err) {
		t.Error("IsConflict = false for a StateConflictError")
	}
	if IsValidation(err) {
		t.Error("IsValidation = true for a StateConflictError")
	}
}

func TestIs_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", Validation("user", "duplicate"))
	if !IsValidation(wrapped) {
		t.Error("IsValidation = false for a wrapped ValidationError")
	}

	wrapped = fmt.Errorf("handler: %w", Conflict("busy"))
	if !IsConflict(wrapped) {
		t.Error("IsConflict = false for a wrapped StateConflictError")
	}
}

func TestIs_NilAndPlain(t *testing.T) {
	if IsValidation(nil) || IsConflict(nil) {
		t.Error("nil should match neither category")
	}
	plain := fmt.Errorf("boom")
	if IsValidation(plain) || IsConflict(plain) {
		t.Error("plain error should match neither category")
	}
}
