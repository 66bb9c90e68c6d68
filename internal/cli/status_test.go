package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mmr-tortoise/caravel/stack"
)

func TestFormatStatusText(t *testing.T) {
	status := &stack.StackStatus{
		Name:  "demo",
		State: stack.StateDegraded,
		Services: []*stack.ServiceStatus{
			{Name: "db", Expected: 1, Replicas: 1, Running: 1, Healthy: 1},
			{Name: "web", Expected: 3, Replicas: 2, Running: 1, Healthy: 1, Unhealthy: 1},
		},
	}

	out := formatStatusText(status)
	assert.Contains(t, out, "Stack: demo (degraded)")
	assert.Contains(t, out, "SERVICE")
	assert.Contains(t, out, "db")
	assert.Contains(t, out, "1/1")
	assert.Contains(t, out, "2/3")
}

func TestFormatStatusText_Empty(t *testing.T) {
	status := &stack.StackStatus{Name: "demo", State: stack.StateNotDeployed}
	out := formatStatusText(status)
	assert.Equal(t, "Stack: demo (not_deployed)\n", out)
}
