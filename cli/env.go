// Package cli implements the linkctl command tree.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/linkforge/apiclient/client"
	"github.com/linkforge/apiclient/http/transport"
	"github.com/linkforge/apiclient/logger"
	"github.com/linkforge/apiclient/shutdown"
	"github.com/linkforge/apiclient/stage"
	"github.com/linkforge/apiclient/telemetry"
)

// AppName is the logging subsystem and default service name.
const AppName = "linkctl"

// Env carries the process-level dependencies of the commands, so tests can
// replace them.
type Env struct {
	Stdout io.Writer
	Stderr io.Writer

	// Setup runs once flags are parsed and the env file is applied.
	// verbose is set by --verbose.
	Setup func(ctx context.Context, verbose bool) error

	// CacheDir is the default directory for persisted verdicts.
	CacheDir string

	ClientOptions []client.Option
}

// DefaultEnv wires the commands to the real process: stdio, logging,
// tracing and the shared DNS cache refresher.
func DefaultEnv() *Env {
	cacheDir := filepath.Join(os.TempDir(), AppName)
	if dir, err := os.UserCacheDir(); err == nil {
		cacheDir = filepath.Join(dir, AppName)
	}

	return &Env{
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		Setup:    setupProcess,
		CacheDir: cacheDir,
	}
}

func setupProcess(ctx context.Context, verbose bool) error {
	var opts []logger.Option
	if verbose {
		opts = append(opts, logger.WithLevel(slog.LevelDebug))
	}

	logger.ConfigureLogging(AppName, opts...)

	cfg, err := telemetry.LoadConfigFromEnv(string(stage.Current()))
	if err != nil {
		return err
	}

	if err := telemetry.Initialize(ctx, cfg); err != nil {
		return err
	}

	shutdown.BeforeShutdown(func() {
		if err := telemetry.Shutdown(context.Background()); err != nil {
			logger.Get(ctx).Warn("error shutting down telemetry", "error", err)
		}
	})

	transport.StartDNSRefresh(ctx)

	return nil
}
