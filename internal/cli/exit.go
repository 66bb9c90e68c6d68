// exit.go maps error types to process exit codes so scripts can branch on
// the failure class without parsing messages.
package cli

import (
	"errors"
	"fmt"

	"github.com/mmr-tortoise/caravel/stack"
)

// Exit codes by failure class.
const (
	// exitGeneralError covers errors with no more specific class.
	exitGeneralError = 1

	// exitValidationError covers invalid stack files, descriptors, and
	// command arguments.
	exitValidationError = 2

	// exitCycleError means the stack's depends_on relation has a cycle.
	exitCycleError = 3

	// exitEngineUnreachable means the container engine daemon could not
	// be reached.
	exitEngineUnreachable = 4

	// exitUnknownService means the named service is not part of the stack
	// or has no running containers.
	exitUnknownService = 5

	// exitPartialFailure means a bulk operation (up, scale, restart, down)
	// failed for some replicas; the stack may be partially deployed.
	exitPartialFailure = 6
)

// cliError pairs an error with the exit code it should produce, for
// failures that have no typed stack error to classify them (engine
// connection problems, unreadable files, bad arguments).
type cliError struct {
	code    int
	message string
	err     error
}

func (e *cliError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.message, e.err)
	}
	return e.message
}

func (e *cliError) Unwrap() error { return e.err }

// wrapCLIError attaches an exit code and context message to an error.
func wrapCLIError(code int, message string, err error) error {
	return &cliError{code: code, message: message, err: err}
}

// exitCodeFor classifies an error into an exit code. Typed stack errors
// carry their class; cliError carries an explicit code; everything else
// is a general error.
func exitCodeFor(err error) int {
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}

	var (
		cyc     *stack.CyclicDependencyError
		verr    *stack.ValidationError
		dup     *stack.DuplicateServiceError
		unknown *stack.UnknownServiceError
		uperr   *stack.UpError
		scerr   *stack.ScaleError
		rserr   *stack.RestartError
		dnerr   *stack.DownError
	)
	switch {
	case errors.As(err, &cyc):
		return exitCycleError
	case errors.As(err, &verr), errors.As(err, &dup):
		return exitValidationError
	case errors.As(err, &unknown):
		return exitUnknownService
	case errors.As(err, &uperr), errors.As(err, &scerr), errors.As(err, &rserr), errors.As(err, &dnerr):
		return exitPartialFailure
	default:
		return exitGeneralError
	}
}
