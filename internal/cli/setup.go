// setup.go builds the shared command environment: configuration, logger,
// engine connection, and the stack assembled from the stack file.
package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/mmr-tortoise/caravel/engine"
	"github.com/mmr-tortoise/caravel/internal/config"
	"github.com/mmr-tortoise/caravel/internal/logging"
	"github.com/mmr-tortoise/caravel/internal/stackfile"
	"github.com/mmr-tortoise/caravel/stack"
)

// commandEnv holds everything a subcommand needs to operate on a stack.
type commandEnv struct {
	cfg  config.Config
	log  *slog.Logger
	eng  *engine.Docker
	st   *stack.Stack
	file *stackfile.File
}

// setupStack loads configuration and the stack file, connects to the
// engine, and assembles the Stack with every service registered. When
// attach is true the stack's realized-container table is rebuilt from the
// engine, so commands operating on an existing deployment (status, scale,
// restart, logs, down) see it.
//
// The returned cleanup function closes the engine connection.
func setupStack(ctx context.Context, attach bool) (*commandEnv, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, wrapCLIError(exitGeneralError, "failed to load configuration", err)
	}

	level := logging.ParseLevel(cfg.LogLevel)
	if verbose {
		level = slog.LevelDebug
	}
	log := logging.New(os.Stderr, level)

	file, err := loadStackFile(cfg)
	if err != nil {
		return nil, nil, err
	}

	eng, err := connectEngine(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { _ = eng.Close() }

	st, err := stack.New(file.Name, eng,
		stack.WithLogger(log),
		stack.WithStopTimeout(cfg.StopTimeout),
		stack.WithReadyTimeout(cfg.ReadyTimeout),
		stack.WithPollInterval(cfg.PollInterval),
	)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	for _, svc := range file.Services {
		if err := st.Register(svc); err != nil {
			cleanup()
			return nil, nil, err
		}
	}

	if attach {
		n, err := st.Attach(ctx)
		if err != nil {
			cleanup()
			return nil, nil, wrapCLIError(exitEngineUnreachable, "failed to discover stack containers", err)
		}
		log.Debug("attached to stack", "stack", file.Name, "containers", n)
	}

	return &commandEnv{cfg: cfg, log: log, eng: eng, st: st, file: file}, cleanup, nil
}

// loadStackFile resolves the stack file path (--file beats the configured
// default) and parses it. Typed descriptor errors keep their class; plain
// read/parse failures are classified as validation errors.
func loadStackFile(cfg config.Config) (*stackfile.File, error) {
	path := stackFilePath
	if path == "" {
		path = cfg.StackFile
	}

	file, err := stackfile.Load(path)
	if err != nil {
		var verr *stack.ValidationError
		var dup *stack.DuplicateServiceError
		if errors.As(err, &verr) || errors.As(err, &dup) {
			return nil, err
		}
		return nil, wrapCLIError(exitValidationError, "failed to load stack file", err)
	}
	return file, nil
}

// connectEngine creates the engine client and verifies the daemon is
// actually reachable before any command logic runs.
func connectEngine(ctx context.Context, cfg config.Config) (*engine.Docker, error) {
	var (
		eng *engine.Docker
		err error
	)
	if cfg.DockerHost != "" {
		eng, err = engine.NewDockerWithHost(cfg.DockerHost)
	} else {
		eng, err = engine.NewDocker()
	}
	if err != nil {
		return nil, wrapCLIError(exitEngineUnreachable, "failed to create engine client", err)
	}

	if err := eng.Ping(ctx); err != nil {
		_ = eng.Close()
		return nil, wrapCLIError(exitEngineUnreachable, "container engine is not reachable", err)
	}
	return eng, nil
}
