package stack

import (
	"fmt"
	"strings"
)

// ValidationError reports structurally invalid service configuration:
// malformed port or volume specs, empty names, non-positive replica
// counts, duplicate host ports, or dependency references that cannot
// resolve within the stack. It is always raised before any engine call.
type ValidationError struct {
	// Service is the descriptor the problem belongs to. Empty for
	// stack-level validation failures.
	Service string

	// Reason describes what is wrong with the input.
	Reason string

	// Err is the underlying parse error, if any.
	Err error
}

func (e *ValidationError) Error() string {
	msg := e.Reason
	if e.Service != "" {
		msg = fmt.Sprintf("service %q: %s", e.Service, e.Reason)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ValidationError) Unwrap() error { return e.Err }

// DuplicateServiceError reports a Register call for a name that is
// already registered with the stack.
type DuplicateServiceError struct {
	Service string
}

func (e *DuplicateServiceError) Error() string {
	return fmt.Sprintf("service %q is already registered", e.Service)
}

// UnknownServiceError reports an operation against a service that is not
// registered, or not yet realized by a successful Up.
type UnknownServiceError struct {
	Service string
}

func (e *UnknownServiceError) Error() string {
	return fmt.Sprintf("unknown service %q: not registered or not deployed", e.Service)
}

// CyclicDependencyError reports a cycle in the depends_on relation.
// Services lists the participants. Up aborts entirely on this error:
// no containers are created.
type CyclicDependencyError struct {
	Services []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("dependency cycle between services: %s", strings.Join(e.Services, ", "))
}

// ReplicaError attaches an engine failure to the specific service replica
// it concerns. Bulk operations collect these instead of failing fast so
// sibling work in the same call completes.
type ReplicaError struct {
	Service string
	Replica string
	Err     error
}

func (e *ReplicaError) Error() string {
	if e.Replica != "" {
		return fmt.Sprintf("service %q replica %q: %v", e.Service, e.Replica, e.Err)
	}
	return fmt.Sprintf("service %q: %v", e.Service, e.Err)
}

func (e *ReplicaError) Unwrap() error { return e.Err }

// UpError aggregates per-replica failures from a partially failed Up.
// Failed lists the services that produced zero running replicas; Up
// fails overall only when Failed is non-empty.
type UpError struct {
	Stack  string
	Failed []string
	Errors []*ReplicaError
}

func (e *UpError) Error() string {
	return fmt.Sprintf("stack %q up: %d service(s) failed to start (%s), %d error(s)",
		e.Stack, len(e.Failed), strings.Join(e.Failed, ", "), len(e.Errors))
}

// ScaleError aggregates per-replica failures from a partially failed
// Scale. Completed partial scaling is not rolled back; Status reflects
// the true post-failure state.
type ScaleError struct {
	Service string
	Errors  []*ReplicaError
}

func (e *ScaleError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("scale service %q failed", e.Service)
	}
	return fmt.Sprintf("scale service %q: %d error(s): %v", e.Service, len(e.Errors), e.Errors[0])
}

// RestartError aggregates per-replica failures from Restart.
type RestartError struct {
	Service string
	Errors  []*ReplicaError
}

func (e *RestartError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("restart service %q failed", e.Service)
	}
	return fmt.Sprintf("restart service %q: %d error(s): %v", e.Service, len(e.Errors), e.Errors[0])
}

// DownError collects the containers and networks that failed to clean up
// during Down. Teardown is best-effort: it continues past individual
// failures and the stack is left ready for a fresh Up either way.
type DownError struct {
	Stack  string
	Errors []*ReplicaError
}

func (e *DownError) Error() string {
	return fmt.Sprintf("stack %q down: %d resource(s) failed to clean up", e.Stack, len(e.Errors))
}
