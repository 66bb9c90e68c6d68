package engine

import (
	"errors"
	"fmt"

	"github.com/containerd/errdefs"
)

// Error wraps a failure from the container engine with the operation and
// the resource it concerned. The orchestrator attaches these to the
// specific service/replica that produced them and never swallows them.
type Error struct {
	// Op is the facade operation that failed (e.g. "create container").
	Op string

	// Resource names the container, network, volume, or image involved.
	Resource string

	// Err is the underlying engine/transport error.
	Err error
}

// Error satisfies the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Resource, e.Err)
}

// Unwrap returns the underlying error for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// wrapErr builds an *Error around err, or returns nil when err is nil.
func wrapErr(op, resource string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Resource: resource, Err: err}
}

// IsNotFound reports whether err indicates the referenced resource does
// not exist on the engine. Teardown paths use this to treat already-gone
// resources as successfully removed.
func IsNotFound(err error) bool {
	return errdefs.IsNotFound(err)
}

// IsConflict reports whether err indicates a name conflict, typically a
// concurrent create of the same resource. Ensure-style operations treat
// a conflict as success after re-checking existence.
func IsConflict(err error) bool {
	return errdefs.IsConflict(err)
}

// AsEngineError extracts an *Error from an error chain, if present.
func AsEngineError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
