// Package core implements the alert lifecycle engine: audience
// resolution, acknowledgment state transitions, and the orchestration of
// create/update/archive and reminder processing.
package core

import (
	"errors"
	"fmt"
)

var (
	// ErrAlertNotFound is returned when an alert cannot be located.
	ErrAlertNotFound = errors.New("alert not found")
	// ErrPreferenceNotFound is returned when no acknowledgment record
	// exists for a (user, alert) pair.
	ErrPreferenceNotFound = errors.New("alert preference not found")
	// ErrUserNotFound is returned when a user cannot be located.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidAlertConfiguration indicates the request payload failed
	// validation.
	ErrInvalidAlertConfiguration = errors.New("invalid alert configuration")
)

// ValidationError describes a field-level validation failure. It is
// surfaced to the caller before anything is persisted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// Unwrap lets callers match any field failure with
// errors.Is(err, ErrInvalidAlertConfiguration).
func (e *ValidationError) Unwrap() error {
	return ErrInvalidAlertConfiguration
}
