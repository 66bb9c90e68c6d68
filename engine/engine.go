package engine

import (
	"context"
	"fmt"
	"time"
)

// Handle identifies one container managed through the engine. The ID is
// the daemon-assigned identifier; Name is the deterministic name the
// orchestrator chose at creation time. Handles are plain values; holding
// one does not keep the container alive.
type Handle struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ContainerSummary pairs a handle with the labels the engine reports for
// it. Listing returns summaries so callers can regroup containers by the
// stack/service/replica labels stamped at creation time.
type ContainerSummary struct {
	Handle Handle            `json:"handle"`
	Labels map[string]string `json:"labels,omitempty"`
}

// Health is the health-check state reported by the engine for a container.
type Health string

const (
	// HealthNone means the container has no health check configured.
	HealthNone Health = "none"

	// HealthStarting means the health check's start period has not elapsed.
	HealthStarting Health = "starting"

	// HealthHealthy means the most recent health check probe succeeded.
	HealthHealthy Health = "healthy"

	// HealthUnhealthy means the health check has exceeded its retry budget.
	HealthUnhealthy Health = "unhealthy"
)

// ContainerState is the subset of a container inspect result the
// orchestration layer depends on. It deliberately exposes typed fields
// rather than the engine's full inspect payload.
type ContainerState struct {
	// Running reports whether the container's main process is alive.
	Running bool `json:"running"`

	// Health is the health-check state. HealthNone when no check is defined.
	Health Health `json:"health"`

	// Status is the engine's short status string (e.g. "running", "exited").
	Status string `json:"status"`

	// ExitCode is the last exit code of the main process. Zero while running.
	ExitCode int `json:"exitCode"`
}

// PortBinding maps a host port to a container port.
type PortBinding struct {
	HostPort      int    `json:"hostPort"`
	ContainerPort int    `json:"containerPort"`
	Protocol      string `json:"protocol"`
}

// String renders the binding in the conventional "host:container/proto" form.
func (p PortBinding) String() string {
	proto := p.Protocol
	if proto == "" {
		proto = "tcp"
	}
	return fmt.Sprintf("%d:%d/%s", p.HostPort, p.ContainerPort, proto)
}

// Mount describes one filesystem mount for a container. Named selects
// between a named volume (managed by the engine) and a bind mount from
// the host filesystem.
type Mount struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	ReadOnly bool   `json:"readOnly,omitempty"`
	Named    bool   `json:"named,omitempty"`
}

// RestartMode enumerates the engine restart policies.
type RestartMode string

const (
	RestartNone          RestartMode = "no"
	RestartAlways        RestartMode = "always"
	RestartOnFailure     RestartMode = "on-failure"
	RestartUnlessStopped RestartMode = "unless-stopped"
)

// RestartPolicy configures automatic restarts for a container.
// MaxRetries is only meaningful for RestartOnFailure.
type RestartPolicy struct {
	Mode       RestartMode `json:"mode"`
	MaxRetries int         `json:"maxRetries,omitempty"`
}

// Healthcheck configures the engine-side health probe for a container.
type Healthcheck struct {
	// Test is the probe command. The first element selects the form:
	// "CMD" or "CMD-SHELL" per the engine's health check contract.
	Test []string `json:"test"`

	Interval    time.Duration `json:"interval,omitempty"`
	Timeout     time.Duration `json:"timeout,omitempty"`
	StartPeriod time.Duration `json:"startPeriod,omitempty"`
	Retries     int           `json:"retries,omitempty"`
}

// Resources carries optional resource limits for a container.
// Zero values mean "no limit".
type Resources struct {
	// MemoryBytes caps container memory in bytes.
	MemoryBytes int64 `json:"memoryBytes,omitempty"`

	// NanoCPUs caps CPU usage in units of 1e-9 CPUs (1.5 CPUs = 1.5e9).
	NanoCPUs int64 `json:"nanoCPUs,omitempty"`
}

// ContainerSpec is the full desired configuration for one container
// create call. It is assembled by the orchestrator from a service
// descriptor plus stack-level naming and labels.
type ContainerSpec struct {
	Image         string
	Name          string
	Hostname      string
	Env           []string
	Ports         []PortBinding
	Mounts        []Mount
	Command       []string
	Entrypoint    []string
	RestartPolicy RestartPolicy
	Healthcheck   *Healthcheck
	Resources     Resources
	Labels        map[string]string

	// Network, when non-empty, is the network the container joins at
	// create time. Additional networks are attached via ConnectNetwork.
	Network string
}

// Client is the engine facade the stack orchestrator drives. Every method
// maps to exactly one primitive engine operation and may block on network
// I/O; cancellation and deadlines are the caller's responsibility via ctx.
//
// Implementations must be safe for concurrent use: the orchestrator issues
// calls from multiple goroutines within a startup wave.
type Client interface {
	// CreateContainer creates (but does not start) a container.
	CreateContainer(ctx context.Context, spec ContainerSpec) (Handle, error)

	// StartContainer starts a created or stopped container.
	StartContainer(ctx context.Context, h Handle) error

	// StopContainer gracefully stops a container. A nil timeout uses the
	// engine's default grace period.
	StopContainer(ctx context.Context, h Handle, timeout *time.Duration) error

	// RestartContainer stops and starts a container in place, preserving
	// its filesystem and configuration.
	RestartContainer(ctx context.Context, h Handle, timeout *time.Duration) error

	// RemoveContainer deletes a container. With force, a running container
	// is killed first.
	RemoveContainer(ctx context.Context, h Handle, force bool) error

	// InspectContainer returns the current state of a container.
	InspectContainer(ctx context.Context, h Handle) (ContainerState, error)

	// ListContainers returns summaries for all containers (running or not)
	// carrying every one of the given labels.
	ListContainers(ctx context.Context, labels map[string]string) ([]ContainerSummary, error)

	// EnsureNetwork creates a network if it does not already exist.
	EnsureNetwork(ctx context.Context, name string, labels map[string]string) error

	// RemoveNetwork deletes a network. Removing a network that is already
	// gone is not an error.
	RemoveNetwork(ctx context.Context, name string) error

	// ConnectNetwork attaches a container to an existing network.
	ConnectNetwork(ctx context.Context, network string, h Handle) error

	// EnsureVolume creates a named volume if it does not already exist.
	EnsureVolume(ctx context.Context, name string, labels map[string]string) error

	// EnsureImage makes sure an image reference is available locally,
	// pulling it if necessary.
	EnsureImage(ctx context.Context, ref string) error

	// ContainerLogs fetches the accumulated stdout+stderr of a container.
	ContainerLogs(ctx context.Context, h Handle) (string, error)
}
