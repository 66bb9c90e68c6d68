package stack

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/mmr-tortoise/caravel/engine"
)

// nameRegex validates stack and service names: alphanumeric + hyphens,
// starting and ending with an alphanumeric character. Names feed directly
// into container names, so the engine's naming rules apply transitively.
var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]*[a-zA-Z0-9]$|^[a-zA-Z0-9]$`)

// ValidateName checks that a stack or service name is usable.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name must not be empty")
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("invalid name %q: must contain only alphanumeric characters and hyphens, and start/end with alphanumeric", name)
	}
	return nil
}

// Service is a mutable builder describing the desired configuration of
// one logical service: image, ports, environment, mounts, dependencies,
// replica count, restart policy, and health check. It performs no engine
// interaction: pure data plus fluent mutation.
//
// Every setter returns the receiver for chaining:
//
//	web := stack.NewService("web").
//	    Image("nginx:latest").
//	    Port("8080:80").
//	    DependsOn("db").
//	    Replicas(2)
//
// Setters that parse input record the first structural problem on the
// descriptor instead of panicking; the recorded error surfaces from
// Validate, which Register calls before accepting the descriptor. Once a
// descriptor has been captured by a running stack, further mutation has
// no effect on live containers until the next Up.
type Service struct {
	name        string
	image       string
	hostname    string
	ports       []engine.PortBinding
	env         map[string]string
	mounts      []engine.Mount
	command     []string
	entrypoint  []string
	networks    []string
	dependsOn   []string
	replicas    int
	restart     engine.RestartPolicy
	healthcheck *engine.Healthcheck
	resources   engine.Resources
	labels      map[string]string

	// err is the first structural error recorded by a setter. Sticky:
	// later setters keep working, but Validate reports this first.
	err error
}

// NewService creates a descriptor with the given name, one replica, and
// no restart policy.
func NewService(name string) *Service {
	return &Service{
		name:     name,
		env:      make(map[string]string),
		labels:   make(map[string]string),
		replicas: 1,
		restart:  engine.RestartPolicy{Mode: engine.RestartNone},
	}
}

// Name returns the service's unique name within its stack.
func (s *Service) Name() string { return s.name }

// ImageRef returns the configured image reference.
func (s *Service) ImageRef() string { return s.image }

// ReplicaCount returns the desired number of replicas.
func (s *Service) ReplicaCount() int { return s.replicas }

// Dependencies returns the names of services this one depends on,
// in declaration order.
func (s *Service) Dependencies() []string {
	return append([]string(nil), s.dependsOn...)
}

// Ports returns the configured port bindings in declaration order.
func (s *Service) Ports() []engine.PortBinding {
	return append([]engine.PortBinding(nil), s.ports...)
}

// Environment returns a copy of the configured environment variables.
func (s *Service) Environment() map[string]string {
	env := make(map[string]string, len(s.env))
	for k, v := range s.env {
		env[k] = v
	}
	return env
}

// Mounts returns the configured mounts in declaration order.
func (s *Service) Mounts() []engine.Mount {
	return append([]engine.Mount(nil), s.mounts...)
}

// Networks returns the extra networks this service joins, in declaration
// order. The stack's default network is implicit and not listed.
func (s *Service) Networks() []string {
	return append([]string(nil), s.networks...)
}

// RestartPolicy returns the configured restart policy.
func (s *Service) RestartPolicy() engine.RestartPolicy { return s.restart }

// HealthcheckConfig returns a copy of the configured health check, or nil
// when none is set.
func (s *Service) HealthcheckConfig() *engine.Healthcheck {
	if s.healthcheck == nil {
		return nil
	}
	hc := *s.healthcheck
	hc.Test = append([]string(nil), s.healthcheck.Test...)
	return &hc
}

// ResourceLimits returns the configured resource limits.
func (s *Service) ResourceLimits() engine.Resources { return s.resources }

// Image sets the container image reference (repository[:tag]).
func (s *Service) Image(ref string) *Service {
	s.image = ref
	return s
}

// Hostname sets the container hostname for every replica.
func (s *Service) Hostname(hostname string) *Service {
	s.hostname = hostname
	return s
}

// Port adds a port mapping from a "host:container[/protocol]" spec,
// e.g. "8080:80" or "53:53/udp".
func (s *Service) Port(spec string) *Service {
	binding, err := ParsePortSpec(spec)
	if err != nil {
		s.record(err)
		return s
	}
	s.ports = append(s.ports, binding)
	return s
}

// PortBinding adds an already-parsed port mapping.
func (s *Service) PortBinding(hostPort, containerPort int, protocol string) *Service {
	if hostPort < 1 || hostPort > 65535 {
		s.record(fmt.Errorf("host port %d out of range (1-65535)", hostPort))
		return s
	}
	if containerPort < 1 || containerPort > 65535 {
		s.record(fmt.Errorf("container port %d out of range (1-65535)", containerPort))
		return s
	}
	if protocol == "" {
		protocol = "tcp"
	}
	s.ports = append(s.ports, engine.PortBinding{
		HostPort:      hostPort,
		ContainerPort: containerPort,
		Protocol:      protocol,
	})
	return s
}

// Env sets one environment variable. Keys are unique; setting an existing
// key overwrites its value.
func (s *Service) Env(key, value string) *Service {
	if key == "" {
		s.record(fmt.Errorf("environment variable name must not be empty"))
		return s
	}
	s.env[key] = value
	return s
}

// EnvMap sets multiple environment variables at once.
func (s *Service) EnvMap(vars map[string]string) *Service {
	for k, v := range vars {
		s.Env(k, v)
	}
	return s
}

// Volume adds a mount from a "source:target[:mode]" spec. A source that
// does not look like a filesystem path (no leading "/" or "." and no "/")
// names a volume managed by the engine; anything else is a bind mount.
// Mode "ro" marks the mount read-only.
func (s *Service) Volume(spec string) *Service {
	m, err := ParseVolumeSpec(spec)
	if err != nil {
		s.record(err)
		return s
	}
	s.mounts = append(s.mounts, m)
	return s
}

// Mount adds an already-parsed mount.
func (s *Service) Mount(m engine.Mount) *Service {
	s.mounts = append(s.mounts, m)
	return s
}

// Command overrides the image's default command.
func (s *Service) Command(argv ...string) *Service {
	s.command = append([]string(nil), argv...)
	return s
}

// Entrypoint overrides the image's entrypoint.
func (s *Service) Entrypoint(argv ...string) *Service {
	s.entrypoint = append([]string(nil), argv...)
	return s
}

// Network adds the service to a named network. The stack scopes the name
// at deploy time; every replica additionally joins the stack's default
// network. Duplicate names are ignored.
func (s *Service) Network(name string) *Service {
	for _, n := range s.networks {
		if n == name {
			return s
		}
	}
	s.networks = append(s.networks, name)
	return s
}

// DependsOn declares that this service must not start before the named
// services have reported running. Duplicates are ignored; the targets
// are resolved against the stack at Up time.
func (s *Service) DependsOn(services ...string) *Service {
	for _, dep := range services {
		seen := false
		for _, existing := range s.dependsOn {
			if existing == dep {
				seen = true
				break
			}
		}
		if !seen {
			s.dependsOn = append(s.dependsOn, dep)
		}
	}
	return s
}

// Replicas sets the number of independent containers realizing this
// service. Must be at least 1.
func (s *Service) Replicas(count int) *Service {
	if count < 1 {
		s.record(fmt.Errorf("replica count must be at least 1, got %d", count))
		return s
	}
	s.replicas = count
	return s
}

// Restart sets the restart policy mode (none, always, unless-stopped).
// For on-failure with a retry budget use RestartOnFailure.
func (s *Service) Restart(mode engine.RestartMode) *Service {
	s.restart = engine.RestartPolicy{Mode: mode}
	return s
}

// RestartOnFailure sets the on-failure restart policy with a maximum
// retry count.
func (s *Service) RestartOnFailure(maxRetries int) *Service {
	if maxRetries < 0 {
		s.record(fmt.Errorf("restart max retries must not be negative, got %d", maxRetries))
		return s
	}
	s.restart = engine.RestartPolicy{Mode: engine.RestartOnFailure, MaxRetries: maxRetries}
	return s
}

// Healthcheck configures the engine-side health probe for each replica.
func (s *Service) Healthcheck(hc engine.Healthcheck) *Service {
	if len(hc.Test) == 0 {
		s.record(fmt.Errorf("healthcheck test command must not be empty"))
		return s
	}
	s.healthcheck = &engine.Healthcheck{
		Test:        append([]string(nil), hc.Test...),
		Interval:    hc.Interval,
		Timeout:     hc.Timeout,
		StartPeriod: hc.StartPeriod,
		Retries:     hc.Retries,
	}
	return s
}

// MemoryLimit caps each replica's memory in bytes.
func (s *Service) MemoryLimit(bytes int64) *Service {
	if bytes < 0 {
		s.record(fmt.Errorf("memory limit must not be negative, got %d", bytes))
		return s
	}
	s.resources.MemoryBytes = bytes
	return s
}

// CPULimit caps each replica's CPU usage, e.g. 1.5 for one and a half CPUs.
func (s *Service) CPULimit(cpus float64) *Service {
	if cpus < 0 {
		s.record(fmt.Errorf("cpu limit must not be negative, got %g", cpus))
		return s
	}
	s.resources.NanoCPUs = int64(cpus * 1e9)
	return s
}

// Label sets one user label on every replica. Labels in the stack's own
// namespace are reserved and applied by the orchestrator.
func (s *Service) Label(key, value string) *Service {
	if key == "" {
		s.record(fmt.Errorf("label key must not be empty"))
		return s
	}
	s.labels[key] = value
	return s
}

// CloneWithName produces an independent deep copy of the descriptor under
// a new name, for templating a base configuration into variants.
func (s *Service) CloneWithName(newName string) *Service {
	clone := &Service{
		name:       newName,
		image:      s.image,
		hostname:   s.hostname,
		ports:      append([]engine.PortBinding(nil), s.ports...),
		env:        make(map[string]string, len(s.env)),
		mounts:     append([]engine.Mount(nil), s.mounts...),
		command:    append([]string(nil), s.command...),
		entrypoint: append([]string(nil), s.entrypoint...),
		networks:   append([]string(nil), s.networks...),
		dependsOn:  append([]string(nil), s.dependsOn...),
		replicas:   s.replicas,
		restart:    s.restart,
		resources:  s.resources,
		labels:     make(map[string]string, len(s.labels)),
		err:        s.err,
	}
	for k, v := range s.env {
		clone.env[k] = v
	}
	for k, v := range s.labels {
		clone.labels[k] = v
	}
	if s.healthcheck != nil {
		hc := *s.healthcheck
		hc.Test = append([]string(nil), s.healthcheck.Test...)
		clone.healthcheck = &hc
	}
	return clone
}

// record keeps the first structural error a setter encounters.
func (s *Service) record(err error) {
	if s.err == nil {
		s.err = err
	}
}

// Validate checks the descriptor for structural problems: the sticky
// setter error, name and image requirements, self-dependency, and host
// port collisions between this service's own mappings. Cross-service
// checks (dependency resolution, cycles) happen at Up time.
func (s *Service) Validate() error {
	if s.err != nil {
		return &ValidationError{Service: s.name, Reason: "invalid configuration", Err: s.err}
	}
	if err := ValidateName(s.name); err != nil {
		return &ValidationError{Service: s.name, Reason: "invalid service name", Err: err}
	}
	if s.image == "" {
		return &ValidationError{Service: s.name, Reason: "image reference is required"}
	}
	for _, dep := range s.dependsOn {
		if dep == s.name {
			return &ValidationError{Service: s.name, Reason: "service cannot depend on itself"}
		}
	}

	// Host ports must be unique within the service. The same port on
	// different protocols is fine (e.g. 53/tcp and 53/udp).
	seen := make(map[string]struct{}, len(s.ports))
	for _, p := range s.ports {
		key := fmt.Sprintf("%d/%s", p.HostPort, p.Protocol)
		if _, dup := seen[key]; dup {
			return &ValidationError{
				Service: s.name,
				Reason:  fmt.Sprintf("host port %s is mapped more than once", key),
			}
		}
		seen[key] = struct{}{}
	}

	if s.replicas > 1 && len(s.ports) > 0 {
		return &ValidationError{
			Service: s.name,
			Reason:  "host port mappings cannot be combined with more than one replica",
		}
	}

	return nil
}

// envSlice renders the environment as sorted KEY=value pairs so container
// configuration is deterministic across runs.
func (s *Service) envSlice() []string {
	if len(s.env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(s.env))
	for k := range s.env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+s.env[k])
	}
	return pairs
}

// ParsePortSpec parses "host:container[/protocol]" into a port binding.
func ParsePortSpec(spec string) (engine.PortBinding, error) {
	proto := "tcp"
	mapping := spec
	if idx := strings.LastIndex(spec, "/"); idx >= 0 {
		mapping = spec[:idx]
		proto = spec[idx+1:]
	}
	if proto != "tcp" && proto != "udp" {
		return engine.PortBinding{}, fmt.Errorf("invalid port mapping %q: protocol must be tcp or udp", spec)
	}

	hostStr, containerStr, ok := strings.Cut(mapping, ":")
	if !ok {
		return engine.PortBinding{}, fmt.Errorf("invalid port mapping %q: expected host:container", spec)
	}
	hostPort, err := strconv.Atoi(hostStr)
	if err != nil {
		return engine.PortBinding{}, fmt.Errorf("invalid port mapping %q: bad host port: %w", spec, err)
	}
	containerPort, err := strconv.Atoi(containerStr)
	if err != nil {
		return engine.PortBinding{}, fmt.Errorf("invalid port mapping %q: bad container port: %w", spec, err)
	}
	if hostPort < 1 || hostPort > 65535 || containerPort < 1 || containerPort > 65535 {
		return engine.PortBinding{}, fmt.Errorf("invalid port mapping %q: ports must be in 1-65535", spec)
	}

	return engine.PortBinding{
		HostPort:      hostPort,
		ContainerPort: containerPort,
		Protocol:      proto,
	}, nil
}

// ParseVolumeSpec parses "source:target[:mode]" into a mount. Sources
// that do not look like paths name engine-managed volumes.
func ParseVolumeSpec(spec string) (engine.Mount, error) {
	parts := strings.Split(spec, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return engine.Mount{}, fmt.Errorf("invalid volume spec %q: expected source:target[:mode]", spec)
	}
	source, target := parts[0], parts[1]
	if source == "" || target == "" {
		return engine.Mount{}, fmt.Errorf("invalid volume spec %q: source and target must not be empty", spec)
	}
	if !strings.HasPrefix(target, "/") {
		return engine.Mount{}, fmt.Errorf("invalid volume spec %q: target must be an absolute path", spec)
	}

	readOnly := false
	if len(parts) == 3 {
		switch parts[2] {
		case "ro":
			readOnly = true
		case "rw":
		default:
			return engine.Mount{}, fmt.Errorf("invalid volume spec %q: mode must be ro or rw", spec)
		}
	}

	return engine.Mount{
		Source:   source,
		Target:   target,
		ReadOnly: readOnly,
		Named:    isNamedVolume(source),
	}, nil
}

// isNamedVolume reports whether a mount source names an engine-managed
// volume rather than a host path.
func isNamedVolume(source string) bool {
	return !strings.HasPrefix(source, "/") &&
		!strings.HasPrefix(source, ".") &&
		!strings.Contains(source, "/")
}
