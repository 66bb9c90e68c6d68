package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/volume"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
)

// defaultPingTimeout bounds the daemon liveness probe. 5 seconds is
// generous enough for Docker Desktop environments, which respond slower
// than native Linux daemons.
const defaultPingTimeout = 5 * time.Second

// Docker implements Client against a Docker Engine daemon using the
// official SDK. It wraps rather than embeds the SDK client to keep the
// exposed surface exactly the facade contract.
//
// Usage:
//
//	eng, err := engine.NewDocker()
//	if err != nil { /* handle */ }
//	defer eng.Close()
//	if err := eng.Ping(ctx); err != nil { /* daemon not running */ }
type Docker struct {
	inner *client.Client
}

// compile-time interface check
var _ Client = (*Docker)(nil)

// NewDocker creates a Docker-backed engine client with automatic socket
// detection.
//
// Detection priority:
//  1. DOCKER_HOST environment variable, used as-is when set.
//  2. Platform default socket paths:
//     - Linux: /var/run/docker.sock
//     - macOS: /var/run/docker.sock, then ~/.docker/run/docker.sock
//     - Windows: npipe:////./pipe/docker_engine
func NewDocker() (*Docker, error) {
	if host := os.Getenv("DOCKER_HOST"); host != "" {
		return NewDockerWithHost(host)
	}

	host, err := detectDockerHost()
	if err != nil {
		return nil, wrapErr("detect engine socket", "", err)
	}
	return NewDockerWithHost(host)
}

// NewDockerWithHost creates a Docker-backed engine client connected to the
// given daemon address (e.g. "unix:///var/run/docker.sock").
//
// API version negotiation is enabled so the same binary works across
// daemon versions without pinning a specific API version.
func NewDockerWithHost(host string) (*Docker, error) {
	c, err := client.NewClientWithOpts(
		client.WithHost(host),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, wrapErr("create engine client", host, err)
	}
	return &Docker{inner: c}, nil
}

// detectDockerHost probes known socket locations for the current platform
// and returns the first that exists. Existence is checked rather than
// connectivity because it is fast and needs no running daemon; Ping
// handles connectivity verification.
func detectDockerHost() (string, error) {
	switch runtime.GOOS {
	case "linux":
		return detectUnixSocket([]string{
			"/var/run/docker.sock",
		})

	case "darwin":
		// Docker Desktop either symlinks the standard path or places the
		// socket under the user's home directory.
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return detectUnixSocket([]string{
				"/var/run/docker.sock",
			})
		}
		return detectUnixSocket([]string{
			"/var/run/docker.sock",
			homeDir + "/.docker/run/docker.sock",
		})

	case "windows":
		// Windows uses a named pipe; os.Stat does not work on pipes, so a
		// brief dial probes reachability instead.
		pipePath := `//./pipe/docker_engine`
		conn, err := net.DialTimeout("pipe", pipePath, 1*time.Second)
		if err == nil {
			conn.Close()
			return "npipe://" + pipePath, nil
		}
		return "", fmt.Errorf("Docker named pipe not found at %s: %w", pipePath, err)

	default:
		return "", fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// detectUnixSocket returns the host URI for the first socket path that
// exists, checked in order of preference.
func detectUnixSocket(paths []string) (string, error) {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return "unix://" + path, nil
		}
	}
	return "", fmt.Errorf(
		"Docker socket not found at any of: %v (is Docker running?)",
		paths,
	)
}

// Ping verifies the daemon is reachable and responsive, waiting at most
// defaultPingTimeout.
func (d *Docker) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	if _, err := d.inner.Ping(pingCtx); err != nil {
		return wrapErr("ping engine", "", err)
	}
	return nil
}

// Close releases the underlying SDK client's resources. Safe to call
// multiple times.
func (d *Docker) Close() error {
	if d.inner != nil {
		return d.inner.Close()
	}
	return nil
}

// CreateContainer translates a ContainerSpec into the SDK's Config and
// HostConfig and creates the container without starting it.
func (d *Docker) CreateContainer(ctx context.Context, spec ContainerSpec) (Handle, error) {
	cfg, hostCfg, netCfg, err := dockerCreateConfig(spec)
	if err != nil {
		return Handle{}, wrapErr("create container", spec.Name, err)
	}

	resp, err := d.inner.ContainerCreate(ctx, cfg, hostCfg, netCfg, nil, spec.Name)
	if err != nil {
		return Handle{}, wrapErr("create container", spec.Name, err)
	}
	return Handle{ID: resp.ID, Name: spec.Name}, nil
}

// dockerCreateConfig converts the facade spec into the three SDK config
// structs. Pure mapping; extracted for testability.
func dockerCreateConfig(spec ContainerSpec) (*container.Config, *container.HostConfig, *network.NetworkingConfig, error) {
	exposed, bindings, err := dockerPortMaps(spec.Ports)
	if err != nil {
		return nil, nil, nil, err
	}

	cfg := &container.Config{
		Image:        spec.Image,
		Hostname:     spec.Hostname,
		Env:          spec.Env,
		Cmd:          spec.Command,
		Entrypoint:   spec.Entrypoint,
		Labels:       spec.Labels,
		ExposedPorts: exposed,
	}
	if hc := spec.Healthcheck; hc != nil {
		cfg.Healthcheck = &container.HealthConfig{
			Test:        hc.Test,
			Interval:    hc.Interval,
			Timeout:     hc.Timeout,
			StartPeriod: hc.StartPeriod,
			Retries:     hc.Retries,
		}
	}

	hostCfg := &container.HostConfig{
		PortBindings: bindings,
		Mounts:       dockerMounts(spec.Mounts),
		RestartPolicy: container.RestartPolicy{
			Name:              container.RestartPolicyMode(restartModeOrDefault(spec.RestartPolicy.Mode)),
			MaximumRetryCount: spec.RestartPolicy.MaxRetries,
		},
		Resources: container.Resources{
			Memory:   spec.Resources.MemoryBytes,
			NanoCPUs: spec.Resources.NanoCPUs,
		},
	}

	// Join the primary network at create time so the container's first
	// network interface is the stack network, not the default bridge.
	var netCfg *network.NetworkingConfig
	if spec.Network != "" {
		netCfg = &network.NetworkingConfig{
			EndpointsConfig: map[string]*network.EndpointSettings{
				spec.Network: {},
			},
		}
	}

	return cfg, hostCfg, netCfg, nil
}

// restartModeOrDefault maps a zero-value mode to the engine's "no" policy.
func restartModeOrDefault(mode RestartMode) string {
	if mode == "" {
		return string(RestartNone)
	}
	return string(mode)
}

// dockerPortMaps builds the SDK's exposed-port set and host binding map
// from the facade's port bindings.
func dockerPortMaps(ports []PortBinding) (nat.PortSet, nat.PortMap, error) {
	if len(ports) == 0 {
		return nil, nil, nil
	}

	exposed := make(nat.PortSet, len(ports))
	bindings := make(nat.PortMap, len(ports))
	for _, p := range ports {
		proto := p.Protocol
		if proto == "" {
			proto = "tcp"
		}
		port, err := nat.NewPort(proto, strconv.Itoa(p.ContainerPort))
		if err != nil {
			return nil, nil, fmt.Errorf("invalid container port %d/%s: %w", p.ContainerPort, proto, err)
		}
		exposed[port] = struct{}{}
		bindings[port] = append(bindings[port], nat.PortBinding{
			HostPort: strconv.Itoa(p.HostPort),
		})
	}
	return exposed, bindings, nil
}

// dockerMounts converts facade mounts into SDK mount specs.
func dockerMounts(mounts []Mount) []mount.Mount {
	if len(mounts) == 0 {
		return nil
	}

	result := make([]mount.Mount, 0, len(mounts))
	for _, m := range mounts {
		typ := mount.TypeBind
		if m.Named {
			typ = mount.TypeVolume
		}
		result = append(result, mount.Mount{
			Type:     typ,
			Source:   m.Source,
			Target:   m.Target,
			ReadOnly: m.ReadOnly,
		})
	}
	return result
}

// StartContainer starts a created or stopped container.
func (d *Docker) StartContainer(ctx context.Context, h Handle) error {
	err := d.inner.ContainerStart(ctx, h.ID, container.StartOptions{})
	return wrapErr("start container", h.Name, err)
}

// StopContainer gracefully stops a container. A nil timeout defers to the
// daemon's default grace period (typically 10 seconds).
func (d *Docker) StopContainer(ctx context.Context, h Handle, timeout *time.Duration) error {
	err := d.inner.ContainerStop(ctx, h.ID, container.StopOptions{
		Timeout: timeoutSeconds(timeout),
	})
	return wrapErr("stop container", h.Name, err)
}

// RestartContainer restarts a container in place.
func (d *Docker) RestartContainer(ctx context.Context, h Handle, timeout *time.Duration) error {
	err := d.inner.ContainerRestart(ctx, h.ID, container.StopOptions{
		Timeout: timeoutSeconds(timeout),
	})
	return wrapErr("restart container", h.Name, err)
}

// timeoutSeconds converts an optional duration into the SDK's
// seconds-as-*int representation, rounding sub-second values up so a
// short non-zero timeout is never silently turned into "kill immediately".
func timeoutSeconds(timeout *time.Duration) *int {
	if timeout == nil {
		return nil
	}
	secs := int((*timeout + time.Second - 1) / time.Second)
	return &secs
}

// RemoveContainer deletes a container, killing it first when force is set.
func (d *Docker) RemoveContainer(ctx context.Context, h Handle, force bool) error {
	err := d.inner.ContainerRemove(ctx, h.ID, container.RemoveOptions{
		Force: force,
	})
	return wrapErr("remove container", h.Name, err)
}

// InspectContainer fetches the container's current state and maps it to
// the facade's typed result record.
func (d *Docker) InspectContainer(ctx context.Context, h Handle) (ContainerState, error) {
	resp, err := d.inner.ContainerInspect(ctx, h.ID)
	if err != nil {
		return ContainerState{}, wrapErr("inspect container", h.Name, err)
	}

	state := ContainerState{Health: HealthNone}
	if resp.State != nil {
		state.Running = resp.State.Running
		state.Status = resp.State.Status
		state.ExitCode = resp.State.ExitCode
		if resp.State.Health != nil {
			state.Health = parseHealth(resp.State.Health.Status)
		}
	}
	return state, nil
}

// parseHealth maps the daemon's health status string onto the facade enum.
// Unrecognized values collapse to HealthNone rather than failing, since
// the rollup treats "no information" and "no check" identically.
func parseHealth(s string) Health {
	switch s {
	case string(HealthStarting):
		return HealthStarting
	case string(HealthHealthy):
		return HealthHealthy
	case string(HealthUnhealthy):
		return HealthUnhealthy
	default:
		return HealthNone
	}
}

// ListContainers returns summaries for all containers carrying every one
// of the given labels, including stopped ones. Filtering happens
// daemon-side via the label filter, which is cheaper than listing
// everything and filtering locally.
func (d *Docker) ListContainers(ctx context.Context, labels map[string]string) ([]ContainerSummary, error) {
	filterArgs := filters.NewArgs()
	for k, v := range labels {
		filterArgs.Add("label", k+"="+v)
	}

	containers, err := d.inner.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filterArgs,
	})
	if err != nil {
		return nil, wrapErr("list containers", "", err)
	}

	result := make([]ContainerSummary, 0, len(containers))
	for _, c := range containers {
		name := ""
		if len(c.Names) > 0 {
			// The API reports names with a leading "/" artifact.
			name = strings.TrimPrefix(c.Names[0], "/")
		}
		result = append(result, ContainerSummary{
			Handle: Handle{ID: c.ID, Name: name},
			Labels: c.Labels,
		})
	}
	return result, nil
}

// EnsureNetwork creates a bridge network with the given name unless it
// already exists. A create conflict from a concurrent caller counts as
// success once the network is confirmed present.
func (d *Docker) EnsureNetwork(ctx context.Context, name string, labels map[string]string) error {
	_, err := d.inner.NetworkInspect(ctx, name, network.InspectOptions{})
	if err == nil {
		return nil
	}
	if !IsNotFound(err) {
		return wrapErr("inspect network", name, err)
	}

	_, err = d.inner.NetworkCreate(ctx, name, network.CreateOptions{
		Driver: "bridge",
		Labels: labels,
	})
	if err != nil {
		// Re-check rather than pattern-matching the conflict error: the
		// network may have been created concurrently.
		if _, ie := d.inner.NetworkInspect(ctx, name, network.InspectOptions{}); ie == nil {
			return nil
		}
		return wrapErr("create network", name, err)
	}
	return nil
}

// RemoveNetwork deletes a network; a network that is already gone is
// treated as removed.
func (d *Docker) RemoveNetwork(ctx context.Context, name string) error {
	err := d.inner.NetworkRemove(ctx, name)
	if err != nil && !IsNotFound(err) {
		return wrapErr("remove network", name, err)
	}
	return nil
}

// ConnectNetwork attaches a container to an existing network.
func (d *Docker) ConnectNetwork(ctx context.Context, networkName string, h Handle) error {
	err := d.inner.NetworkConnect(ctx, networkName, h.ID, nil)
	return wrapErr("connect network", networkName, err)
}

// EnsureVolume creates a named volume unless it already exists.
func (d *Docker) EnsureVolume(ctx context.Context, name string, labels map[string]string) error {
	_, err := d.inner.VolumeInspect(ctx, name)
	if err == nil {
		return nil
	}
	if !IsNotFound(err) {
		return wrapErr("inspect volume", name, err)
	}

	_, err = d.inner.VolumeCreate(ctx, volume.CreateOptions{
		Name:   name,
		Labels: labels,
	})
	if err != nil {
		if _, ie := d.inner.VolumeInspect(ctx, name); ie == nil {
			return nil
		}
		return wrapErr("create volume", name, err)
	}
	return nil
}

// EnsureImage pulls an image reference unless it is already present
// locally. The pull stream must be drained for the pull to complete.
func (d *Docker) EnsureImage(ctx context.Context, ref string) error {
	_, _, err := d.inner.ImageInspectWithRaw(ctx, ref)
	if err == nil {
		return nil
	}

	reader, err := d.inner.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return wrapErr("pull image", ref, err)
	}
	defer reader.Close()

	if _, err := io.Copy(io.Discard, reader); err != nil {
		return wrapErr("pull image", ref, err)
	}
	return nil
}

// ContainerLogs fetches the container's accumulated stdout and stderr.
// The daemon multiplexes both streams over one connection; stdcopy demuxes
// them back into a single buffer in arrival order.
func (d *Docker) ContainerLogs(ctx context.Context, h Handle) (string, error) {
	reader, err := d.inner.ContainerLogs(ctx, h.ID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Timestamps: true,
	})
	if err != nil {
		return "", wrapErr("fetch logs", h.Name, err)
	}
	defer reader.Close()

	var buf bytes.Buffer
	if _, err := stdcopy.StdCopy(&buf, &buf, reader); err != nil {
		return "", wrapErr("fetch logs", h.Name, err)
	}
	return buf.String(), nil
}
