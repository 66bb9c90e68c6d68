package stack

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmr-tortoise/caravel/engine"
)

// Default tuning for stack operations. All three are per-stack options;
// the engine's own connection timeouts are not touched here.
const (
	// defaultStopTimeout is the grace period given to a container's main
	// process before the engine kills it during stop/restart/teardown.
	defaultStopTimeout = 10 * time.Second

	// defaultReadyTimeout bounds how long Up waits for a dependency
	// service to report running before its dependants are abandoned.
	defaultReadyTimeout = 30 * time.Second

	// defaultPollInterval is the inspect polling cadence while waiting
	// for a dependency to report running.
	defaultPollInterval = 250 * time.Millisecond
)

// Stack owns a named collection of service descriptors and the live
// containers realizing them. It drives an engine.Client to deploy (Up),
// Scale, inspect (Status), Restart, and tear down (Down) the collection.
//
// A Stack exclusively owns its descriptors and its realized container
// handles. Mutating operations (Up, Scale, Restart, Down) take the write
// lock; Status and Logs take the read lock and may run concurrently with
// each other. The realized table is an in-memory, best-effort cache: all
// durable state lives in the engine itself, recoverable via Attach.
type Stack struct {
	name         string
	eng          engine.Client
	log          *slog.Logger
	stopTimeout  time.Duration
	readyTimeout time.Duration
	pollInterval time.Duration

	mu       sync.RWMutex
	services map[string]*Service
	order    []string
	realized map[string][]engine.Handle
	// nextIndex tracks, per service, the next replica index so Scale can
	// continue the naming sequence where Up left off.
	nextIndex map[string]int
	// networks records the stack-scoped networks ensured by Up so Down
	// can remove them. The default network is always last to be removed.
	networks []string
}

// Option configures a Stack at construction time.
type Option func(*Stack)

// WithLogger sets the structured logger the stack reports progress and
// best-effort failures to. The default discards everything.
func WithLogger(log *slog.Logger) Option {
	return func(s *Stack) {
		if log != nil {
			s.log = log
		}
	}
}

// WithStopTimeout sets the graceful-stop grace period used by Scale,
// Restart, and Down.
func WithStopTimeout(d time.Duration) Option {
	return func(s *Stack) { s.stopTimeout = d }
}

// WithReadyTimeout sets how long Up waits for a dependency service to
// report running before abandoning its dependants.
func WithReadyTimeout(d time.Duration) Option {
	return func(s *Stack) { s.readyTimeout = d }
}

// WithPollInterval sets the readiness polling cadence.
func WithPollInterval(d time.Duration) Option {
	return func(s *Stack) { s.pollInterval = d }
}

// New creates an empty stack bound to the given engine client. The engine
// is an explicit dependency so multiple stacks stay independent and tests
// can substitute fakes; there is no ambient process-wide connection.
func New(name string, eng engine.Client, opts ...Option) (*Stack, error) {
	if err := ValidateName(name); err != nil {
		return nil, &ValidationError{Reason: "invalid stack name", Err: err}
	}
	if eng == nil {
		return nil, &ValidationError{Reason: "engine client is required"}
	}

	s := &Stack{
		name:         name,
		eng:          eng,
		log:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		stopTimeout:  defaultStopTimeout,
		readyTimeout: defaultReadyTimeout,
		pollInterval: defaultPollInterval,
		services:     make(map[string]*Service),
		realized:     make(map[string][]engine.Handle),
		nextIndex:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Name returns the stack's name.
func (s *Stack) Name() string { return s.name }

// defaultNetwork is the network every replica joins at creation.
func (s *Stack) defaultNetwork() string { return s.name + "_default" }

// scopedNetwork prefixes a descriptor-declared network with the stack
// name, keeping stacks isolated from each other on the same host.
func (s *Stack) scopedNetwork(name string) string { return s.name + "_" + name }

// scopedVolume prefixes a named volume with the stack name.
func (s *Stack) scopedVolume(name string) string { return s.name + "_" + name }

// Register adds a service descriptor to the stack. The descriptor is
// validated structurally first; registration order is preserved for
// deterministic diagnostics (scheduling order comes from depends_on).
func (s *Stack) Register(svc *Service) error {
	if svc == nil {
		return &ValidationError{Reason: "service descriptor is required"}
	}
	if err := svc.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.services[svc.name]; exists {
		return &DuplicateServiceError{Service: svc.name}
	}
	s.services[svc.name] = svc
	s.order = append(s.order, svc.name)
	return nil
}

// ServiceNames returns the registered service names in registration order.
func (s *Stack) ServiceNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// Up deploys the stack: it validates the dependency graph, provisions the
// stack network(s) and named volumes, then creates and starts every
// service's replicas wave by wave. Services within one wave start
// concurrently; a wave is joined, success or failure, before the next
// begins, and no service starts before each of its dependencies has
// reported running at least once.
//
// Replica containers are named {stack}-{service}-{index} with a 1-based
// index, which also makes a re-run Up idempotent: a name conflict on
// create adopts the existing container instead of failing.
//
// Partial failure: one replica failing does not abort sibling services in
// the same wave. Failures are collected, and Up returns a *UpError only
// when at least one service ended with zero started replicas. A
// *CyclicDependencyError or *ValidationError aborts before any engine call.
func (s *Stack) Up(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.order) == 0 {
		return &ValidationError{Reason: "stack has no registered services"}
	}

	// Resolve the dependency relation entirely before touching the
	// engine: unknown targets and cycles must fail with zero containers
	// created.
	deps := make(map[string][]string, len(s.services))
	for name, svc := range s.services {
		for _, dep := range svc.dependsOn {
			if _, ok := s.services[dep]; !ok {
				return &ValidationError{
					Service: name,
					Reason:  fmt.Sprintf("depends on %q, which is not registered in stack %q", dep, s.name),
				}
			}
		}
		deps[name] = svc.dependsOn
	}
	waves, err := startupWaves(deps)
	if err != nil {
		return err
	}

	// dependants tells Up which services need a readiness wait after
	// starting: only those some later service depends on.
	hasDependants := make(map[string]bool, len(s.services))
	for _, svc := range s.services {
		for _, dep := range svc.dependsOn {
			hasDependants[dep] = true
		}
	}

	deployID := uuid.NewString()
	s.log.Info("deploying stack", "stack", s.name, "services", len(s.order), "deploy_id", deployID)

	if err := s.provision(ctx, deployID); err != nil {
		return err
	}

	var (
		resultMu sync.Mutex
		allErrs  []*ReplicaError
		started  = make(map[string]int, len(s.services)) // successful starts per service
		ready    = make(map[string]bool, len(s.services))
	)

	for _, wave := range waves {
		// Gate on dependencies from earlier waves before launching any
		// worker, so the ready map is only read while no one writes it.
		// A dependency that never reported running leaves the dependant
		// undeployed, with the reason recorded against it.
		runnable := make([]string, 0, len(wave))
		for _, name := range wave {
			if unmet := firstUnmetDependency(s.services[name], ready); unmet != "" {
				allErrs = append(allErrs, &ReplicaError{
					Service: name,
					Err:     fmt.Errorf("dependency %q never reported running", unmet),
				})
				s.log.Warn("skipping service", "stack", s.name, "service", name, "unmet_dependency", unmet)
				continue
			}
			runnable = append(runnable, name)
		}

		var wg sync.WaitGroup
		for _, name := range runnable {
			svc := s.services[name]

			wg.Add(1)
			go func(name string, svc *Service) {
				defer wg.Done()

				handles, okCount, errs := s.upService(ctx, svc, deployID)

				// Only gate dependants on services they actually wait for.
				isReady := true
				if hasDependants[name] {
					isReady = s.waitRunning(ctx, handles)
				}

				resultMu.Lock()
				defer resultMu.Unlock()
				// Replace rather than append: on a re-run Up the handles
				// include adopted containers that are already tracked.
				s.realized[name] = handles
				if next := svc.replicas + 1; next > s.nextIndex[name] {
					s.nextIndex[name] = next
				}
				started[name] += okCount
				ready[name] = isReady && okCount > 0
				allErrs = append(allErrs, errs...)
			}(name, svc)
		}
		wg.Wait()
	}

	var failed []string
	for _, name := range s.order {
		if started[name] == 0 {
			failed = append(failed, name)
		}
	}
	if len(failed) > 0 {
		return &UpError{Stack: s.name, Failed: failed, Errors: allErrs}
	}
	for _, e := range allErrs {
		s.log.Warn("replica failed during up", "stack", s.name, "error", e)
	}
	s.log.Info("stack deployed", "stack", s.name, "deploy_id", deployID)
	return nil
}

// firstUnmetDependency returns the first depends_on target that did not
// reach readiness, or "" when all are satisfied.
func firstUnmetDependency(svc *Service, ready map[string]bool) string {
	for _, dep := range svc.dependsOn {
		if !ready[dep] {
			return dep
		}
	}
	return ""
}

// provision ensures the stack's networks and named volumes exist before
// any container is created. Provisioning failures abort Up: nothing can
// meaningfully start without the default network.
func (s *Stack) provision(ctx context.Context, deployID string) error {
	labels := map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelStack:     s.name,
		LabelDeployID:  deployID,
	}

	networks := []string{}
	for _, name := range s.order {
		for _, n := range s.services[name].networks {
			scoped := s.scopedNetwork(n)
			if !contains(networks, scoped) {
				networks = append(networks, scoped)
			}
		}
	}
	// Default network last in the removal list means first to create here.
	for _, n := range append([]string{s.defaultNetwork()}, networks...) {
		if err := s.eng.EnsureNetwork(ctx, n, labels); err != nil {
			return err
		}
		if !contains(s.networks, n) {
			s.networks = append(s.networks, n)
		}
	}

	volumes := map[string]struct{}{}
	for _, name := range s.order {
		for _, m := range s.services[name].mounts {
			if m.Named {
				volumes[s.scopedVolume(m.Source)] = struct{}{}
			}
		}
	}
	names := make([]string, 0, len(volumes))
	for v := range volumes {
		names = append(names, v)
	}
	sort.Strings(names)
	for _, v := range names {
		if err := s.eng.EnsureVolume(ctx, v, labels); err != nil {
			return err
		}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// upService pulls the service's image and creates+starts its replicas
// sequentially. It returns every handle it ended up tracking (including
// containers that were created but failed to start, so teardown can
// clean them up), the number of successful starts, and per-replica errors.
func (s *Stack) upService(ctx context.Context, svc *Service, deployID string) ([]engine.Handle, int, []*ReplicaError) {
	if err := s.eng.EnsureImage(ctx, svc.image); err != nil {
		return nil, 0, []*ReplicaError{{Service: svc.name, Err: err}}
	}

	var (
		handles []engine.Handle
		okCount int
		errs    []*ReplicaError
	)
	for i := 1; i <= svc.replicas; i++ {
		h, err := s.startReplica(ctx, svc, i, deployID)
		if h.ID != "" {
			handles = append(handles, h)
		}
		if err != nil {
			errs = append(errs, &ReplicaError{Service: svc.name, Replica: h.Name, Err: err})
			continue
		}
		okCount++
	}
	return handles, okCount, errs
}

// startReplica creates and starts replica #index of a service. A name
// conflict on create means a previous run already made this container;
// the existing one is adopted and started instead, which is what makes
// re-running Up idempotent by container name.
func (s *Stack) startReplica(ctx context.Context, svc *Service, index int, deployID string) (engine.Handle, error) {
	name := containerName(s.name, svc.name, index)
	spec := s.replicaSpec(svc, index, deployID)

	h, err := s.eng.CreateContainer(ctx, spec)
	if err != nil {
		if !engine.IsConflict(err) {
			return engine.Handle{}, err
		}
		adopted, adoptErr := s.adoptExisting(ctx, svc.name, name)
		if adoptErr != nil {
			return engine.Handle{}, err
		}
		h = adopted
		s.log.Debug("adopted existing container", "stack", s.name, "container", name)
	}

	// Secondary networks are attached before start so the service sees
	// all of its interfaces from the first instant of its main process.
	for _, n := range svc.networks {
		if err := s.eng.ConnectNetwork(ctx, s.scopedNetwork(n), h); err != nil {
			return h, err
		}
	}

	if err := s.eng.StartContainer(ctx, h); err != nil {
		return h, err
	}
	s.log.Debug("replica started", "stack", s.name, "service", svc.name, "container", name)
	return h, nil
}

// replicaSpec assembles the engine-facing container spec for one replica.
func (s *Stack) replicaSpec(svc *Service, index int, deployID string) engine.ContainerSpec {
	mounts := make([]engine.Mount, 0, len(svc.mounts))
	for _, m := range svc.mounts {
		if m.Named {
			m.Source = s.scopedVolume(m.Source)
		}
		mounts = append(mounts, m)
	}

	return engine.ContainerSpec{
		Image:         svc.image,
		Name:          containerName(s.name, svc.name, index),
		Hostname:      svc.hostname,
		Env:           svc.envSlice(),
		Ports:         svc.ports,
		Mounts:        mounts,
		Command:       svc.command,
		Entrypoint:    svc.entrypoint,
		RestartPolicy: svc.restart,
		Healthcheck:   svc.healthcheck,
		Resources:     svc.resources,
		Labels:        buildLabels(s.name, svc.name, index, deployID, svc.labels),
		Network:       s.defaultNetwork(),
	}
}

// adoptExisting finds a previously created container of this stack by its
// deterministic name so Up can resume tracking it.
func (s *Stack) adoptExisting(ctx context.Context, serviceName, containerName string) (engine.Handle, error) {
	summaries, err := s.eng.ListContainers(ctx, map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelStack:     s.name,
		LabelService:   serviceName,
	})
	if err != nil {
		return engine.Handle{}, err
	}
	for _, sum := range summaries {
		if sum.Handle.Name == containerName {
			return sum.Handle, nil
		}
	}
	return engine.Handle{}, fmt.Errorf("container %q conflicts but is not managed by this stack", containerName)
}

// waitRunning polls the given handles until at least one reports running,
// bounded by the stack's readiness timeout. This is the gate dependants
// wait behind: a service has "reported running" once any of its replicas
// has a live main process.
func (s *Stack) waitRunning(ctx context.Context, handles []engine.Handle) bool {
	if len(handles) == 0 {
		return false
	}

	deadline := time.Now().Add(s.readyTimeout)
	for {
		for _, h := range handles {
			state, err := s.eng.InspectContainer(ctx, h)
			if err == nil && state.Running {
				return true
			}
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(s.pollInterval):
		}
	}
}

// Scale changes the number of replicas for one realized service. Growing
// creates and starts new replicas continuing the index sequence; shrinking
// stops and removes the highest-indexed replicas first, down to the
// target. Partial progress is never rolled back; Status reflects the
// true post-failure state.
func (s *Stack) Scale(ctx context.Context, serviceName string, target int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	svc, ok := s.services[serviceName]
	if !ok || len(s.realized[serviceName]) == 0 {
		return &UnknownServiceError{Service: serviceName}
	}
	if target < 1 {
		return &ValidationError{
			Service: serviceName,
			Reason:  fmt.Sprintf("target replica count must be at least 1, got %d", target),
		}
	}

	handles := s.realized[serviceName]
	current := len(handles)
	s.log.Info("scaling service", "stack", s.name, "service", serviceName, "from", current, "to", target)

	var errs []*ReplicaError
	switch {
	case target > current:
		deployID := uuid.NewString()
		for i := 0; i < target-current; i++ {
			index := s.nextIndex[serviceName]
			s.nextIndex[serviceName]++

			h, err := s.startReplica(ctx, svc, index, deployID)
			if h.ID != "" {
				handles = append(handles, h)
			}
			if err != nil {
				errs = append(errs, &ReplicaError{
					Service: serviceName,
					Replica: containerName(s.name, serviceName, index),
					Err:     err,
				})
			}
		}

	case target < current:
		// Last-in-first-out: the highest-indexed replicas go first.
		for len(handles) > target {
			h := handles[len(handles)-1]
			if err := s.removeReplica(ctx, h); err != nil {
				errs = append(errs, &ReplicaError{Service: serviceName, Replica: h.Name, Err: err})
				// The container may still exist; keep tracking it so
				// Status and Down see the truth.
				break
			}
			handles = handles[:len(handles)-1]
		}
	}

	s.realized[serviceName] = handles
	svc.replicas = target

	if len(errs) > 0 {
		return &ScaleError{Service: serviceName, Errors: errs}
	}
	return nil
}

// removeReplica gracefully stops and removes one container. A container
// that is already gone counts as removed.
func (s *Stack) removeReplica(ctx context.Context, h engine.Handle) error {
	stopTimeout := s.stopTimeout
	if err := s.eng.StopContainer(ctx, h, &stopTimeout); err != nil && !engine.IsNotFound(err) {
		// Fall through to a forced remove; stop failures on an
		// already-dead container are common and harmless.
		s.log.Debug("stop before remove failed", "container", h.Name, "error", err)
	}
	if err := s.eng.RemoveContainer(ctx, h, true); err != nil && !engine.IsNotFound(err) {
		return err
	}
	return nil
}

// Restart stops and restarts each tracked replica of a service in place,
// without recreating containers.
func (s *Stack) Restart(ctx context.Context, serviceName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.services[serviceName]; !ok || len(s.realized[serviceName]) == 0 {
		return &UnknownServiceError{Service: serviceName}
	}

	var errs []*ReplicaError
	stopTimeout := s.stopTimeout
	for _, h := range s.realized[serviceName] {
		if err := s.eng.RestartContainer(ctx, h, &stopTimeout); err != nil {
			errs = append(errs, &ReplicaError{Service: serviceName, Replica: h.Name, Err: err})
		}
	}
	if len(errs) > 0 {
		return &RestartError{Service: serviceName, Errors: errs}
	}
	s.log.Info("service restarted", "stack", s.name, "service", serviceName)
	return nil
}

// Down stops and removes every tracked container, then the stack's
// networks, best-effort: it continues past individual failures and
// collects them into a *DownError. The realized table is cleared either
// way, so the stack is always ready for a fresh Up. Calling Down on an
// undeployed stack is a no-op success.
func (s *Stack) Down(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.realized) == 0 {
		return nil
	}
	s.log.Info("tearing down stack", "stack", s.name)

	var errs []*ReplicaError

	// Reverse registration order, and within a service reverse creation
	// order, so dependants disappear before their dependencies.
	for _, name := range reverseTeardownOrder(s.order, s.realized) {
		handles := s.realized[name]
		for i := len(handles) - 1; i >= 0; i-- {
			if err := s.removeReplica(ctx, handles[i]); err != nil {
				errs = append(errs, &ReplicaError{Service: name, Replica: handles[i].Name, Err: err})
			}
		}
	}

	// Networks go after containers; the default network is removed last.
	networks := append([]string(nil), s.networks...)
	if !contains(networks, s.defaultNetwork()) {
		networks = append([]string{s.defaultNetwork()}, networks...)
	}
	for i := len(networks) - 1; i >= 0; i-- {
		if err := s.eng.RemoveNetwork(ctx, networks[i]); err != nil {
			errs = append(errs, &ReplicaError{Service: networks[i], Err: err})
		}
	}

	s.realized = make(map[string][]engine.Handle)
	s.nextIndex = make(map[string]int)
	s.networks = nil

	if len(errs) > 0 {
		return &DownError{Stack: s.name, Errors: errs}
	}
	s.log.Info("stack torn down", "stack", s.name)
	return nil
}

// reverseTeardownOrder yields realized service names in reverse
// registration order, followed by realized services that were never
// registered in this process (discovered via Attach), sorted for
// determinism.
func reverseTeardownOrder(order []string, realized map[string][]engine.Handle) []string {
	result := make([]string, 0, len(realized))
	seen := make(map[string]bool, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		name := order[i]
		seen[name] = true
		if len(realized[name]) > 0 {
			result = append(result, name)
		}
	}

	var orphans []string
	for name := range realized {
		if !seen[name] && len(realized[name]) > 0 {
			orphans = append(orphans, name)
		}
	}
	sort.Strings(orphans)
	return append(result, orphans...)
}

// Status inspects every tracked container and returns the aggregate view:
// per-service replica/running/health counts and per-replica detail, plus
// the overall stack state. It performs no mutation and never fails for an
// individual unreachable container; that replica is reported with status
// "unknown" instead.
func (s *Stack) Status(ctx context.Context) (*StackStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := &StackStatus{Name: s.name}
	for _, name := range append(append([]string(nil), s.order...), orphanNames(s.order, s.realized)...) {
		svcStatus := &ServiceStatus{Name: name}
		if svc, ok := s.services[name]; ok {
			svcStatus.Expected = svc.replicas
		} else {
			svcStatus.Expected = len(s.realized[name])
		}

		for _, h := range s.realized[name] {
			replica := ReplicaStatus{ID: h.ID, Name: h.Name}

			state, err := s.eng.InspectContainer(ctx, h)
			if err != nil {
				replica.Status = "unknown"
				replica.Health = engine.HealthNone
				svcStatus.Unknown++
			} else {
				replica.Running = state.Running
				replica.Status = state.Status
				replica.Health = replicaHealth(state)
				if state.Running {
					svcStatus.Running++
				}
				switch replica.Health {
				case engine.HealthHealthy:
					svcStatus.Healthy++
				case engine.HealthUnhealthy:
					svcStatus.Unhealthy++
				default:
					svcStatus.Unknown++
				}
			}
			svcStatus.Containers = append(svcStatus.Containers, replica)
			svcStatus.Replicas++
		}

		status.Services = append(status.Services, svcStatus)
	}

	status.State = overallState(status.Services)
	return status, nil
}

// orphanNames lists realized services that are not registered, sorted.
func orphanNames(order []string, realized map[string][]engine.Handle) []string {
	registered := make(map[string]bool, len(order))
	for _, name := range order {
		registered[name] = true
	}
	var orphans []string
	for name := range realized {
		if !registered[name] && len(realized[name]) > 0 {
			orphans = append(orphans, name)
		}
	}
	sort.Strings(orphans)
	return orphans
}

// Logs concatenates the logs of all tracked containers, optionally
// filtered to the given service names, in registration order of services
// and creation order of replicas. Each replica's output is preceded by a
// "[container-name]" header line. There is no ordering guarantee across
// services' interleaved timestamps; callers needing temporal ordering
// must sort by the per-line timestamps themselves.
//
// Fetching is best-effort per container: an unreachable replica is
// skipped (and logged) rather than failing the whole call.
func (s *Stack) Logs(ctx context.Context, serviceNames ...string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	targets := s.order
	if len(serviceNames) > 0 {
		for _, name := range serviceNames {
			if _, ok := s.services[name]; !ok {
				if len(s.realized[name]) == 0 {
					return "", &UnknownServiceError{Service: name}
				}
			}
		}
		targets = serviceNames
	}

	var b strings.Builder
	for _, name := range targets {
		for _, h := range s.realized[name] {
			out, err := s.eng.ContainerLogs(ctx, h)
			if err != nil {
				s.log.Warn("failed to fetch logs", "stack", s.name, "container", h.Name, "error", err)
				continue
			}
			b.WriteString("[" + h.Name + "]\n")
			b.WriteString(out)
			if !strings.HasSuffix(out, "\n") {
				b.WriteString("\n")
			}
		}
	}
	return b.String(), nil
}

// Attach rebuilds the in-memory realized table by listing the engine's
// containers carrying this stack's labels. A fresh process pointed at an
// existing deployment uses this instead of re-running Up. Returns the
// number of containers discovered.
func (s *Stack) Attach(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summaries, err := s.eng.ListContainers(ctx, stackFilter(s.name))
	if err != nil {
		return 0, err
	}

	type indexed struct {
		handle engine.Handle
		index  int
	}
	byService := make(map[string][]indexed)
	for _, sum := range summaries {
		service, index, err := parseReplicaLabels(sum.Labels)
		if err != nil {
			s.log.Warn("skipping unattributable container", "stack", s.name,
				"container", sum.Handle.Name, "error", err)
			continue
		}
		byService[service] = append(byService[service], indexed{handle: sum.Handle, index: index})
	}

	realized := make(map[string][]engine.Handle, len(byService))
	nextIndex := make(map[string]int, len(byService))
	total := 0
	for service, replicas := range byService {
		sort.Slice(replicas, func(i, j int) bool { return replicas[i].index < replicas[j].index })
		handles := make([]engine.Handle, 0, len(replicas))
		maxIndex := 0
		for _, r := range replicas {
			handles = append(handles, r.handle)
			if r.index > maxIndex {
				maxIndex = r.index
			}
		}
		realized[service] = handles
		nextIndex[service] = maxIndex + 1
		total += len(handles)
	}

	s.realized = realized
	s.nextIndex = nextIndex
	if total > 0 && !contains(s.networks, s.defaultNetwork()) {
		s.networks = append(s.networks, s.defaultNetwork())
	}
	s.log.Info("attached to stack", "stack", s.name, "containers", total)
	return total, nil
}
