// Package flowerr defines the error kinds reported while compiling and
// running a workflow.
//
// Compile-time kinds are sentinels wrapped by *CompileError, so callers can
// match on the kind with errors.Is and still read the offending node id.
package flowerr

import (
	"errors"
	"fmt"
)

// Compile-time error kinds. Nothing is submitted when one of these occurs.
var (
	ErrUnknownNodeType   = errors.New("unknown node type")
	ErrMissingDependency = errors.New("missing dependency")
	ErrUnknownReference  = errors.New("unknown reference")
	ErrCyclicWorkflow    = errors.New("cyclic workflow")
	ErrUnsupportedFanIn  = errors.New("unsupported fan-in")
	ErrDuplicateNode     = errors.New("duplicate node")
	ErrEmptyWorkflow     = errors.New("empty workflow")
)

// Run-time error kinds. These end up as {error: ...} entries in the
// accumulator and never abort a pipeline.
var (
	ErrMissingPrompt = errors.New("missing prompt")
)

// CompileError describes a workflow that cannot be turned into a pipeline.
type CompileError struct {
	Kind error
	Node string
	Msg  string
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	switch {
	case e.Node != "" && e.Msg != "":
		return fmt.Sprintf("%s: node '%s': %s", e.Kind, e.Node, e.Msg)
	case e.Node != "":
		return fmt.Sprintf("%s: node '%s'", e.Kind, e.Node)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	default:
		return e.Kind.Error()
	}
}

// Unwrap returns the sentinel kind so errors.Is works against it.
func (e *CompileError) Unwrap() error {
	return e.Kind
}

// NewCompileError builds a CompileError for the given kind and node.
func NewCompileError(kind error, node, format string, args ...any) *CompileError {
	return &CompileError{Kind: kind, Node: node, Msg: fmt.Sprintf(format, args...)}
}

// IsCompileError reports whether err is any compile-time workflow error.
func IsCompileError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}
