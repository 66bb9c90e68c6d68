package stack

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/caravel/engine"
)

func TestValidateName(t *testing.T) {
	for _, name := range []string{"db", "web-1", "a", "my-long-service-name", "A1"} {
		assert.NoError(t, ValidateName(name), "name %q should be valid", name)
	}
	for _, name := range []string{"", "-db", "db-", "my_service", "with space", "café"} {
		assert.Error(t, ValidateName(name), "name %q should be rejected", name)
	}
}

func TestService_FluentBuilder(t *testing.T) {
	svc := NewService("web").
		Image("nginx:1.25").
		Hostname("web").
		Port("8080:80").
		Env("MODE", "production").
		Env("MODE", "staging"). // overwrite, keys are unique
		Volume("./conf:/etc/nginx:ro").
		DependsOn("db", "cache", "db"). // duplicate ignored
		Network("backend").
		Network("backend"). // duplicate ignored
		Label("team", "platform")

	require.NoError(t, svc.Validate())
	assert.Equal(t, "web", svc.Name())
	assert.Equal(t, "nginx:1.25", svc.ImageRef())
	assert.Equal(t, 1, svc.ReplicaCount())
	assert.Equal(t, []string{"db", "cache"}, svc.Dependencies())
	assert.Equal(t, []string{"backend"}, svc.networks)
	assert.Equal(t, []string{"MODE=staging"}, svc.envSlice())

	require.Len(t, svc.mounts, 1)
	assert.False(t, svc.mounts[0].Named, "./conf is a path, not a named volume")
	assert.True(t, svc.mounts[0].ReadOnly)
}

func TestService_Validate(t *testing.T) {
	tests := []struct {
		name   string
		svc    *Service
		reason string
	}{
		{
			name:   "missing image",
			svc:    NewService("web"),
			reason: "image reference is required",
		},
		{
			name:   "invalid name",
			svc:    NewService("-web").Image("nginx"),
			reason: "invalid service name",
		},
		{
			name:   "self dependency",
			svc:    NewService("web").Image("nginx").DependsOn("web"),
			reason: "service cannot depend on itself",
		},
		{
			name:   "duplicate host port",
			svc:    NewService("web").Image("nginx").Port("8080:80").Port("8080:81"),
			reason: "host port 8080/tcp is mapped more than once",
		},
		{
			name:   "replicas with host ports",
			svc:    NewService("web").Image("nginx").Port("8080:80").Replicas(2),
			reason: "host port mappings cannot be combined with more than one replica",
		},
		{
			name:   "sticky setter error",
			svc:    NewService("web").Image("nginx").Port("not-a-port"),
			reason: "invalid configuration",
		},
		{
			name:   "zero replicas recorded",
			svc:    NewService("web").Image("nginx").Replicas(0),
			reason: "invalid configuration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.svc.Validate()
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Error(), tt.reason)
		})
	}
}

func TestService_SamePortDifferentProtocol(t *testing.T) {
	svc := NewService("dns").Image("coredns").Port("53:53").Port("53:53/udp")
	assert.NoError(t, svc.Validate(), "53/tcp and 53/udp do not collide")
}

func TestService_StickyErrorKeepsFirst(t *testing.T) {
	svc := NewService("web").Image("nginx").
		Port("bad-one").
		Port("also-bad")

	err := svc.Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Error(), "bad-one", "the first structural error wins")
}

func TestService_CloneWithName(t *testing.T) {
	base := NewService("worker").
		Image("worker:v2").
		Env("QUEUE", "default").
		Volume("data:/var/data").
		DependsOn("broker").
		Replicas(3).
		RestartOnFailure(5).
		Healthcheck(engine.Healthcheck{
			Test:     []string{"CMD", "probe"},
			Interval: 10 * time.Second,
			Retries:  3,
		}).
		Label("tier", "async")

	clone := base.CloneWithName("worker-priority")
	require.NoError(t, clone.Validate())
	assert.Equal(t, "worker-priority", clone.Name())
	assert.Equal(t, base.ImageRef(), clone.ImageRef())
	assert.Equal(t, base.ReplicaCount(), clone.ReplicaCount())
	assert.Equal(t, base.Dependencies(), clone.Dependencies())

	// The clone is independent: mutating it leaves the base untouched.
	clone.Env("QUEUE", "priority").Replicas(1).Label("tier", "priority")
	assert.Equal(t, []string{"QUEUE=default"}, base.envSlice())
	assert.Equal(t, 3, base.ReplicaCount())
	assert.Equal(t, "async", base.labels["tier"])

	clone.healthcheck.Test[0] = "CMD-SHELL"
	assert.Equal(t, "CMD", base.healthcheck.Test[0])
}

func TestParsePortSpec(t *testing.T) {
	tests := []struct {
		spec string
		want engine.PortBinding
		ok   bool
	}{
		{"8080:80", engine.PortBinding{HostPort: 8080, ContainerPort: 80, Protocol: "tcp"}, true},
		{"53:53/udp", engine.PortBinding{HostPort: 53, ContainerPort: 53, Protocol: "udp"}, true},
		{"1:65535", engine.PortBinding{HostPort: 1, ContainerPort: 65535, Protocol: "tcp"}, true},
		{"8080", engine.PortBinding{}, false},
		{"0:80", engine.PortBinding{}, false},
		{"8080:70000", engine.PortBinding{}, false},
		{"abc:80", engine.PortBinding{}, false},
		{"8080:80/sctp", engine.PortBinding{}, false},
		{"", engine.PortBinding{}, false},
	}

	for _, tt := range tests {
		got, err := ParsePortSpec(tt.spec)
		if tt.ok {
			require.NoError(t, err, "spec %q", tt.spec)
			assert.Equal(t, tt.want, got, "spec %q", tt.spec)
		} else {
			assert.Error(t, err, "spec %q should be rejected", tt.spec)
		}
	}
}

func TestParseVolumeSpec(t *testing.T) {
	tests := []struct {
		spec string
		want engine.Mount
		ok   bool
	}{
		{"pgdata:/var/lib/postgresql/data", engine.Mount{Source: "pgdata", Target: "/var/lib/postgresql/data", Named: true}, true},
		{"/host/dir:/container/dir", engine.Mount{Source: "/host/dir", Target: "/container/dir"}, true},
		{"./relative:/app", engine.Mount{Source: "./relative", Target: "/app"}, true},
		{"cfg:/etc/app:ro", engine.Mount{Source: "cfg", Target: "/etc/app", ReadOnly: true, Named: true}, true},
		{"cfg:/etc/app:rw", engine.Mount{Source: "cfg", Target: "/etc/app", Named: true}, true},
		{"justsource", engine.Mount{}, false},
		{"src:relative-target", engine.Mount{}, false},
		{"src:/target:bogus", engine.Mount{}, false},
		{":/target", engine.Mount{}, false},
	}

	for _, tt := range tests {
		got, err := ParseVolumeSpec(tt.spec)
		if tt.ok {
			require.NoError(t, err, "spec %q", tt.spec)
			assert.Equal(t, tt.want, got, "spec %q", tt.spec)
		} else {
			assert.Error(t, err, "spec %q should be rejected", tt.spec)
		}
	}
}

func TestService_EnvSliceSorted(t *testing.T) {
	svc := NewService("app").Image("app").EnvMap(map[string]string{
		"ZEBRA": "z",
		"ALPHA": "a",
		"MID":   "m",
	})
	assert.Equal(t, []string{"ALPHA=a", "MID=m", "ZEBRA=z"}, svc.envSlice())
}

func TestService_ResourceLimits(t *testing.T) {
	svc := NewService("app").Image("app").MemoryLimit(512 * 1024 * 1024).CPULimit(1.5)
	require.NoError(t, svc.Validate())
	assert.Equal(t, int64(512*1024*1024), svc.resources.MemoryBytes)
	assert.Equal(t, int64(1_500_000_000), svc.resources.NanoCPUs)

	bad := NewService("app").Image("app").CPULimit(-1)
	assert.Error(t, bad.Validate())
}
