package stack

import "github.com/mmr-tortoise/caravel/engine"

// State is the aggregate deployment state of a stack.
//
// The lifecycle is:
//
//	not_deployed → deploying → {deployed | degraded}
//	deployed/degraded → scaling → {deployed | degraded}
//	any → tearing_down → not_deployed
//
// Transitions are driven solely by Up/Scale/Restart/Down; there is no
// background reconciliation loop. Status computes the state on demand.
type State string

const (
	// StateNotDeployed means the stack tracks no containers.
	StateNotDeployed State = "not_deployed"

	// StatePartiallyDeployed means some registered services have replicas
	// while others have none, typically after a partially failed Up.
	StatePartiallyDeployed State = "partially_deployed"

	// StateDeployed means every expected replica of every service is running.
	StateDeployed State = "deployed"

	// StateDegraded means at least one expected replica is not running.
	StateDegraded State = "degraded"
)

// ReplicaStatus is the observed state of one tracked container.
type ReplicaStatus struct {
	// ID is the engine-assigned container identifier.
	ID string `json:"id"`

	// Name is the deterministic replica name ({stack}-{service}-{index}).
	Name string `json:"name"`

	// Running reports whether the container's main process is alive.
	Running bool `json:"running"`

	// Health is the rolled-up health for this replica (see ServiceStatus).
	Health engine.Health `json:"health"`

	// Status is the engine's short status string, or "unknown" when the
	// container could not be inspected.
	Status string `json:"status"`
}

// ServiceStatus aggregates the observed replicas of one service.
//
// Health rollup per replica: a defined health check is authoritative; a
// running container without one counts as healthy; a "starting" health
// state or an uninspectable container counts as unknown; everything else
// counts as unhealthy.
type ServiceStatus struct {
	// Name is the service name.
	Name string `json:"name"`

	// Expected is the desired replica count from the descriptor (as last
	// applied by Up or Scale).
	Expected int `json:"expected"`

	// Replicas is the number of containers currently tracked.
	Replicas int `json:"replicas"`

	// Running counts tracked replicas whose main process is alive.
	Running int `json:"running"`

	// Healthy, Unhealthy, and Unknown partition the tracked replicas by
	// the health rollup.
	Healthy   int `json:"healthy"`
	Unhealthy int `json:"unhealthy"`
	Unknown   int `json:"unknown"`

	// Containers lists per-replica detail in creation order.
	Containers []ReplicaStatus `json:"containers,omitempty"`
}

// StackStatus is the aggregate view Status returns. It is a plain value:
// computing it performs no mutation and it does not update itself.
type StackStatus struct {
	// Name is the stack name.
	Name string `json:"name"`

	// State is the overall deployment state.
	State State `json:"state"`

	// Services holds per-service aggregates in registration order.
	Services []*ServiceStatus `json:"services"`
}

// Service returns the aggregate for the named service, or nil when the
// service is not part of this status view.
func (s *StackStatus) Service(name string) *ServiceStatus {
	for _, svc := range s.Services {
		if svc.Name == name {
			return svc
		}
	}
	return nil
}

// replicaHealth rolls one inspect result up to a health bucket.
// Policy: "running with no health check" counts as healthy, matching the
// engine ecosystem's convention. Callers that want stricter semantics can
// define a health check, which is then authoritative.
func replicaHealth(state engine.ContainerState) engine.Health {
	switch state.Health {
	case engine.HealthHealthy:
		return engine.HealthHealthy
	case engine.HealthUnhealthy:
		return engine.HealthUnhealthy
	case engine.HealthStarting:
		return engine.HealthStarting
	default:
		if state.Running {
			return engine.HealthHealthy
		}
		return engine.HealthUnhealthy
	}
}

// overallState derives the stack-level state from the per-service
// aggregates. Precedence: nothing tracked → not_deployed; any service
// with zero tracked replicas → partially_deployed; any expected replica
// not running → degraded; otherwise deployed.
func overallState(services []*ServiceStatus) State {
	tracked := 0
	for _, svc := range services {
		tracked += svc.Replicas
	}
	if tracked == 0 {
		return StateNotDeployed
	}

	for _, svc := range services {
		if svc.Replicas == 0 {
			return StatePartiallyDeployed
		}
	}
	for _, svc := range services {
		if svc.Running < svc.Expected {
			return StateDegraded
		}
	}
	return StateDeployed
}
