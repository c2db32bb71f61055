package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration tags every configuration failure so callers can
// distinguish rejected input from transport problems with errors.Is.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// Error describes a single rejected configuration value.
type Error struct {
	// Field is the configuration path that failed validation
	Field string

	// Value is the offending value, when safe to echo back
	Value string

	// Reason explains why the value was rejected
	Reason string
}

func (e *Error) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("invalid configuration: %s %q: %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

func (e *Error) Unwrap() error {
	return ErrInvalidConfiguration
}

// newError creates a configuration error for the given field
func newError(field, value, reason string) *Error {
	return &Error{Field: field, Value: value, Reason: reason}
}
