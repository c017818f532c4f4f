package app

import (
	"errors"
	"fmt"
)

// Application errors.
var (
	// ErrClosed indicates the application has been shut down.
	ErrClosed = errors.New("application closed")

	// ErrNoSheet indicates a document holds no sheet element.
	ErrNoSheet = errors.New("document has no sheet")

	// ErrSheetNotFound indicates no open sheet has the given id.
	ErrSheetNotFound = errors.New("sheet not found")

	// ErrNoTarget indicates an interaction selector matched nothing.
	ErrNoTarget = errors.New("interaction target not found")

	// ErrInvalidInteraction indicates an interaction could not be parsed.
	ErrInvalidInteraction = errors.New("invalid interaction")

	// ErrNoSetting indicates a settings path names nothing.
	ErrNoSetting = errors.New("no such setting")
)

// InitError reports a component that failed to start.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return "init " + e.Component + ": " + e.Err.Error()
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// OperationError represents an error that occurred during a specific operation.
type OperationError struct {
	Op     string // Operation name (e.g., "open", "interact", "reload")
	Target string // Target of the operation (e.g., file path, selector)
	Err    error  // Underlying error
}

func (e *OperationError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Op
	if e.Target != "" {
		msg = fmt.Sprintf("%s %s", e.Op, e.Target)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
