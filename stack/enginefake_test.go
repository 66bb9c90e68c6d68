package stack

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/containerd/errdefs"

	"github.com/mmr-tortoise/caravel/engine"
)

// fakeEngine is an in-memory engine.Client used to test the orchestrator
// without a daemon. It records every call in order and supports injecting
// failures per container name or image reference.
type fakeEngine struct {
	mu sync.Mutex

	containers map[string]*fakeContainer // keyed by container name
	networks   map[string]bool
	volumes    map[string]bool

	// calls is the ordered trace of operations, e.g. "create demo-db-1".
	calls []string

	// Failure injection, keyed by container name (or image ref for pull).
	failCreate  map[string]error
	failStart   map[string]error
	failRemove  map[string]error
	failInspect map[string]error
	failPull    map[string]error

	// startStalls lists container names whose start succeeds but whose
	// state never transitions to running, for readiness-gate tests.
	startStalls map[string]bool

	// logsByName supplies canned log output per container name.
	logsByName map[string]string

	idSeq int
}

type fakeContainer struct {
	id      string
	name    string
	labels  map[string]string
	running bool
	health  engine.Health
	status  string
	spec    engine.ContainerSpec
}

var _ engine.Client = (*fakeEngine)(nil)

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		containers:  make(map[string]*fakeContainer),
		networks:    make(map[string]bool),
		volumes:     make(map[string]bool),
		failCreate:  make(map[string]error),
		failStart:   make(map[string]error),
		failRemove:  make(map[string]error),
		failInspect: make(map[string]error),
		failPull:    make(map[string]error),
		startStalls: make(map[string]bool),
		logsByName:  make(map[string]string),
	}
}

func (f *fakeEngine) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

// callIndex returns the position of the first recorded call with the
// given prefix, or -1.
func (f *fakeEngine) callIndex(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			return i
		}
	}
	return -1
}

func (f *fakeEngine) container(name string) *fakeContainer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.containers[name]
}

func (f *fakeEngine) containerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.containers)
}

// seedContainer installs a pre-existing container, as if created by a
// previous process, for Attach and adoption tests.
func (f *fakeEngine) seedContainer(name string, labels map[string]string, running bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.idSeq++
	f.containers[name] = &fakeContainer{
		id:      fmt.Sprintf("id-%d", f.idSeq),
		name:    name,
		labels:  labels,
		running: running,
		status:  statusString(running),
	}
}

func (f *fakeEngine) setRunning(name string, running bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c := f.containers[name]; c != nil {
		c.running = running
		c.status = statusString(running)
	}
}

func (f *fakeEngine) setHealth(name string, health engine.Health) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c := f.containers[name]; c != nil {
		c.health = health
	}
}

func statusString(running bool) string {
	if running {
		return "running"
	}
	return "exited"
}

func (f *fakeEngine) CreateContainer(_ context.Context, spec engine.ContainerSpec) (engine.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("create %s", spec.Name)

	if err := f.failCreate[spec.Name]; err != nil {
		return engine.Handle{}, err
	}
	if _, exists := f.containers[spec.Name]; exists {
		return engine.Handle{}, fmt.Errorf("container name %q in use: %w", spec.Name, errdefs.ErrConflict)
	}

	f.idSeq++
	c := &fakeContainer{
		id:     fmt.Sprintf("id-%d", f.idSeq),
		name:   spec.Name,
		labels: spec.Labels,
		status: "created",
		spec:   spec,
	}
	f.containers[spec.Name] = c
	return engine.Handle{ID: c.id, Name: c.name}, nil
}

func (f *fakeEngine) StartContainer(_ context.Context, h engine.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("start %s", h.Name)

	if err := f.failStart[h.Name]; err != nil {
		return err
	}
	c := f.containers[h.Name]
	if c == nil {
		return fmt.Errorf("no such container %q: %w", h.Name, errdefs.ErrNotFound)
	}
	if !f.startStalls[h.Name] {
		c.running = true
		c.status = "running"
	}
	return nil
}

func (f *fakeEngine) StopContainer(_ context.Context, h engine.Handle, _ *time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("stop %s", h.Name)

	c := f.containers[h.Name]
	if c == nil {
		return fmt.Errorf("no such container %q: %w", h.Name, errdefs.ErrNotFound)
	}
	c.running = false
	c.status = "exited"
	return nil
}

func (f *fakeEngine) RestartContainer(_ context.Context, h engine.Handle, _ *time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("restart %s", h.Name)

	c := f.containers[h.Name]
	if c == nil {
		return fmt.Errorf("no such container %q: %w", h.Name, errdefs.ErrNotFound)
	}
	c.running = true
	c.status = "running"
	return nil
}

func (f *fakeEngine) RemoveContainer(_ context.Context, h engine.Handle, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("remove %s", h.Name)

	if err := f.failRemove[h.Name]; err != nil {
		return err
	}
	if _, exists := f.containers[h.Name]; !exists {
		return fmt.Errorf("no such container %q: %w", h.Name, errdefs.ErrNotFound)
	}
	delete(f.containers, h.Name)
	return nil
}

func (f *fakeEngine) InspectContainer(_ context.Context, h engine.Handle) (engine.ContainerState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failInspect[h.Name]; err != nil {
		return engine.ContainerState{}, err
	}
	c := f.containers[h.Name]
	if c == nil {
		return engine.ContainerState{}, fmt.Errorf("no such container %q: %w", h.Name, errdefs.ErrNotFound)
	}
	health := c.health
	if health == "" {
		health = engine.HealthNone
	}
	return engine.ContainerState{
		Running: c.running,
		Health:  health,
		Status:  c.status,
	}, nil
}

func (f *fakeEngine) ListContainers(_ context.Context, labels map[string]string) ([]engine.ContainerSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var result []engine.ContainerSummary
	for _, c := range f.containers {
		match := true
		for k, v := range labels {
			if c.labels[k] != v {
				match = false
				break
			}
		}
		if match {
			result = append(result, engine.ContainerSummary{
				Handle: engine.Handle{ID: c.id, Name: c.name},
				Labels: c.labels,
			})
		}
	}
	return result, nil
}

func (f *fakeEngine) EnsureNetwork(_ context.Context, name string, _ map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ensure-network %s", name)
	f.networks[name] = true
	return nil
}

func (f *fakeEngine) RemoveNetwork(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("remove-network %s", name)
	delete(f.networks, name)
	return nil
}

func (f *fakeEngine) ConnectNetwork(_ context.Context, network string, h engine.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("connect %s %s", network, h.Name)
	if !f.networks[network] {
		return fmt.Errorf("no such network %q: %w", network, errdefs.ErrNotFound)
	}
	return nil
}

func (f *fakeEngine) EnsureVolume(_ context.Context, name string, _ map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ensure-volume %s", name)
	f.volumes[name] = true
	return nil
}

func (f *fakeEngine) EnsureImage(_ context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("pull %s", ref)
	if err := f.failPull[ref]; err != nil {
		return err
	}
	return nil
}

func (f *fakeEngine) ContainerLogs(_ context.Context, h engine.Handle) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("logs %s", h.Name)

	if _, exists := f.containers[h.Name]; !exists {
		return "", fmt.Errorf("no such container %q: %w", h.Name, errdefs.ErrNotFound)
	}
	return f.logsByName[h.Name], nil
}
