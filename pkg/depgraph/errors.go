package depgraph

import (
	"errors"
	"fmt"
)

// ErrInvalidGraph is returned for structurally malformed graphs
var ErrInvalidGraph = errors.New("invalid graph")

// GraphError provides structured information about a malformed graph.
type GraphError struct {
	Op      string // Operation that failed (e.g., "validate", "decode")
	Entity  string // Entity type ("node", "edge", "group")
	ID      string // Entity ID (if applicable)
	Cause   error  // Underlying error
	Context string // Additional context
}

// Error implements the error interface.
func (e *GraphError) Error() string {
	switch {
	case e.ID != "" && e.Context != "":
		return fmt.Sprintf("%s %s %q (%s): %v", e.Op, e.Entity, e.ID, e.Context, e.Cause)
	case e.ID != "":
		return fmt.Sprintf("%s %s %q: %v", e.Op, e.Entity, e.ID, e.Cause)
	case e.Context != "":
		return fmt.Sprintf("%s %s (%s): %v", e.Op, e.Entity, e.Context, e.Cause)
	default:
		return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Cause)
	}
}

// Unwrap returns the underlying cause for error chain support.
func (e *GraphError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches this error's cause.
func (e *GraphError) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}

// ErrorBuilder provides a fluent interface for building GraphErrors.
type ErrorBuilder struct {
	err GraphError
}

// NewError creates a new error builder for the given operation.
// The cause defaults to ErrInvalidGraph.
func NewError(op string) *ErrorBuilder {
	return &ErrorBuilder{err: GraphError{Op: op, Cause: ErrInvalidGraph}}
}

// Node sets the entity to "node" with the given ID.
func (b *ErrorBuilder) Node(id string) *ErrorBuilder {
	b.err.Entity = "node"
	b.err.ID = id
	return b
}

// Edge sets the entity to "edge" with the given ID.
func (b *ErrorBuilder) Edge(id string) *ErrorBuilder {
	b.err.Entity = "edge"
	b.err.ID = id
	return b
}

// Group sets the entity to "group" with the given ID.
func (b *ErrorBuilder) Group(id string) *ErrorBuilder {
	b.err.Entity = "group"
	b.err.ID = id
	return b
}

// Entity sets a free-form entity name.
func (b *ErrorBuilder) Entity(name string) *ErrorBuilder {
	b.err.Entity = name
	return b
}

// Context sets additional context information.
func (b *ErrorBuilder) Context(format string, args ...any) *ErrorBuilder {
	b.err.Context = fmt.Sprintf(format, args...)
	return b
}

// Cause wraps err so that both err and ErrInvalidGraph match with errors.Is.
func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	if err == nil || errors.Is(err, ErrInvalidGraph) {
		b.err.Cause = ErrInvalidGraph
		return b
	}
	b.err.Cause = fmt.Errorf("%w: %w", ErrInvalidGraph, err)
	return b
}

// Build returns the constructed GraphError.
func (b *ErrorBuilder) Build() *GraphError {
	return &b.err
}

// Err returns the error as an error interface.
func (b *ErrorBuilder) Err() error {
	return &b.err
}

// IsInvalidGraph returns true if the error describes a malformed graph.
func IsInvalidGraph(err error) bool {
	return errors.Is(err, ErrInvalidGraph)
}
