// Package config loads CLI defaults from the process environment.
//
// Every knob has a CARAVEL_-prefixed variable and a sensible default, so
// the CLI works with zero configuration. A .env file in the working
// directory is honored before the environment is read, letting projects
// pin their settings next to the stack file.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config carries the environment-driven CLI settings. Flags override
// these values where a corresponding flag exists.
type Config struct {
	// LogLevel is the minimum level logged to stderr (debug, info, warn, error).
	LogLevel string `env:"CARAVEL_LOG_LEVEL" envDefault:"info"`

	// DockerHost overrides engine endpoint autodetection when set
	// (same format as DOCKER_HOST, e.g. "unix:///var/run/docker.sock").
	DockerHost string `env:"CARAVEL_DOCKER_HOST"`

	// StackFile is the default stack file path for commands that read one.
	StackFile string `env:"CARAVEL_STACK_FILE" envDefault:"caravel.yml"`

	// StopTimeout is the grace period before a container is killed during
	// stop, restart, and teardown.
	StopTimeout time.Duration `env:"CARAVEL_STOP_TIMEOUT" envDefault:"10s"`

	// ReadyTimeout bounds how long a deploy waits for a dependency service
	// to report running.
	ReadyTimeout time.Duration `env:"CARAVEL_READY_TIMEOUT" envDefault:"30s"`

	// PollInterval is the readiness polling cadence during deploys.
	PollInterval time.Duration `env:"CARAVEL_POLL_INTERVAL" envDefault:"250ms"`
}

// Load reads a .env file if present, then parses the environment.
func Load() (Config, error) {
	// Missing .env is the common case, not an error.
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse environment configuration: %w", err)
	}
	return cfg, nil
}
