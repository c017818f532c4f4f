package schema

import (
	"errors"
	"fmt"
)

// Schema errors.
var (
	// ErrInvalidShape indicates an update that does not fit a group's
	// declared shape: an unknown record key, a wrong value type, or a value
	// outside the declared choices or range.
	ErrInvalidShape = errors.New("invalid shape")

	// ErrInvalidDefinition indicates a malformed group definition.
	ErrInvalidDefinition = errors.New("invalid setting group definition")
)

// ShapeError describes why an update was rejected.
type ShapeError struct {
	// Group is the setting group name.
	Group string

	// Path is the dot-separated key path inside a record group. Empty for
	// primitive and enum groups.
	Path string

	// Reason describes what's wrong.
	Reason string

	// Value is the rejected value.
	Value any
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s: %s (value: %v)", ErrInvalidShape, e.Group, e.Reason, e.Value)
	}
	return fmt.Sprintf("%s: %s.%s: %s (value: %v)", ErrInvalidShape, e.Group, e.Path, e.Reason, e.Value)
}

// Is matches ErrInvalidShape.
func (e *ShapeError) Is(target error) bool {
	return target == ErrInvalidShape
}

func shapeErr(group, path, reason string, value any) *ShapeError {
	return &ShapeError{Group: group, Path: path, Reason: reason, Value: value}
}
