package config

import (
	"errors"
	"fmt"
)

// Errors returned by store operations.
var (
	// ErrUnknownGroup indicates the group was never registered.
	ErrUnknownGroup = errors.New("config: unknown setting group")

	// ErrGroupAlreadyRegistered indicates a duplicate group name.
	ErrGroupAlreadyRegistered = errors.New("config: setting group already registered")

	// ErrRegistrationClosed indicates Register was called after the first
	// Get or Set.
	ErrRegistrationClosed = errors.New("config: registration closed")

	// ErrTypeMismatch indicates a typed accessor found a different type.
	ErrTypeMismatch = errors.New("config: type mismatch")

	// ErrPathNotFound indicates a record path has no value.
	ErrPathNotFound = errors.New("config: path not found")
)

// TypeError is returned when a typed accessor cannot convert a value.
type TypeError struct {
	// Group is the setting group.
	Group string
	// Path is the record path, empty for primitive groups.
	Path string
	// Expected is the expected type name.
	Expected string
	// Actual is the actual Go type.
	Actual string
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	where := e.Group
	if e.Path != "" {
		where += "." + e.Path
	}
	return fmt.Sprintf("type error for %s: expected %s, got %s", where, e.Expected, e.Actual)
}

// Is implements error matching for TypeError.
func (e *TypeError) Is(target error) bool {
	return target == ErrTypeMismatch
}
