package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mmr-tortoise/caravel/stack"
)

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "validation error",
			err:  &stack.ValidationError{Service: "web", Reason: "image reference is required"},
			want: exitValidationError,
		},
		{
			name: "duplicate service",
			err:  &stack.DuplicateServiceError{Service: "db"},
			want: exitValidationError,
		},
		{
			name: "cycle",
			err:  &stack.CyclicDependencyError{Services: []string{"a", "b"}},
			want: exitCycleError,
		},
		{
			name: "unknown service",
			err:  &stack.UnknownServiceError{Service: "ghost"},
			want: exitUnknownService,
		},
		{
			name: "partial up failure",
			err:  &stack.UpError{Stack: "demo", Failed: []string{"web"}},
			want: exitPartialFailure,
		},
		{
			name: "partial scale failure",
			err:  &stack.ScaleError{Service: "web"},
			want: exitPartialFailure,
		},
		{
			name: "partial down failure",
			err:  &stack.DownError{Stack: "demo"},
			want: exitPartialFailure,
		},
		{
			name: "cli error carries its code",
			err:  wrapCLIError(exitEngineUnreachable, "container engine is not reachable", errors.New("dial unix: no such file")),
			want: exitEngineUnreachable,
		},
		{
			name: "wrapped typed error keeps its class",
			err:  fmt.Errorf("stack file %q: %w", "caravel.yml", &stack.ValidationError{Service: "web", Reason: "bad port"}),
			want: exitValidationError,
		},
		{
			name: "generic error",
			err:  errors.New("boom"),
			want: exitGeneralError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCodeFor(tt.err))
		})
	}
}

func TestCLIError_Format(t *testing.T) {
	err := wrapCLIError(exitValidationError, "invalid replica count \"x\"", errors.New("strconv"))
	assert.Contains(t, err.Error(), "invalid replica count")
	assert.Contains(t, err.Error(), "strconv")

	bare := wrapCLIError(exitGeneralError, "just a message", nil)
	assert.Equal(t, "just a message", bare.Error())
}
