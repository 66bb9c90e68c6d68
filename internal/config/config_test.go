package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "caravel.yml", cfg.StackFile)
	assert.Equal(t, 10*time.Second, cfg.StopTimeout)
	assert.Equal(t, 30*time.Second, cfg.ReadyTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CARAVEL_LOG_LEVEL", "debug")
	t.Setenv("CARAVEL_STACK_FILE", "deploy/stack.yml")
	t.Setenv("CARAVEL_STOP_TIMEOUT", "30s")
	t.Setenv("CARAVEL_DOCKER_HOST", "tcp://10.0.0.5:2375")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "deploy/stack.yml", cfg.StackFile)
	assert.Equal(t, 30*time.Second, cfg.StopTimeout)
	assert.Equal(t, "tcp://10.0.0.5:2375", cfg.DockerHost)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("CARAVEL_STOP_TIMEOUT", "soon")
	_, err := Load()
	assert.Error(t, err)
}
