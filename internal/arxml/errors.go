package arxml

import (
	"errors"
	"fmt"
)

// Tree API misuse.
var (
	// ErrNodeNotFound indicates a handle that does not name a live node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNoParent indicates an operation that needs a parent on the root.
	ErrNoParent = errors.New("node has no parent")

	// ErrNotChild indicates a child that is not owned by the given parent.
	ErrNotChild = errors.New("node is not a child of parent")

	// ErrInvalidName indicates a tag or attribute name that is not a valid
	// XML name.
	ErrInvalidName = errors.New("invalid XML name")

	// ErrRootExists indicates an attempt to create a second root element.
	ErrRootExists = errors.New("document already has a root element")

	// ErrEmptyTree indicates an operation that needs a root element.
	ErrEmptyTree = errors.New("document has no root element")
)

// ParseError reports text that could not be turned into a Tree. It is
// recoverable: callers keep whatever tree they had before.
type ParseError struct {
	Line int // 1-based; 0 when unknown
	Msg  string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error at line %d: %s", e.Line, e.Msg)
	}
	return "parse error: " + e.Msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// SerializationError reports a tree that cannot be written as well-formed
// markup. It indicates a broken invariant and is never silently dropped.
type SerializationError struct {
	Node NodeID
	Msg  string
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialize node %d: %s", e.Node, e.Msg)
}

// IsParseError reports whether err is or wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
