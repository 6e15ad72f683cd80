package app

import (
	"errors"
	"fmt"
)

// Application errors.
var (
	// ErrNoDocument indicates no document is open.
	ErrNoDocument = errors.New("no document open")

	// ErrNoPath indicates the document has never been saved and needs a
	// path.
	ErrNoPath = errors.New("document has no file path")

	// ErrUnsavedChanges indicates an operation would discard edits.
	ErrUnsavedChanges = errors.New("unsaved changes")
)

// OperationError represents an error that occurred during a user-level
// operation such as open, save or format.
type OperationError struct {
	Op      string // open, save, saveas, refresh, format, validate, header
	Target  string // usually a file path
	Context string
	Err     error
}

// NewOperationError creates a new OperationError.
func NewOperationError(op, target string, err error) *OperationError {
	return &OperationError{Op: op, Target: target, Err: err}
}

// WithContext adds context to the error.
// Safe to call on nil receiver - returns nil.
func (e *OperationError) WithContext(ctx string) *OperationError {
	if e == nil {
		return nil
	}
	e.Context = ctx
	return e
}

func (e *OperationError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Op
	if e.Target != "" {
		msg = fmt.Sprintf("%s %s", e.Op, e.Target)
	}
	if e.Context != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Context)
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
