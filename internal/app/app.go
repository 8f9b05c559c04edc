package app

import (
	"io"
	"log/slog"
	"os"

	"github.com/vk/buildall/internal/index"
	"github.com/vk/buildall/internal/proc"
)

// Deps are the external collaborators of a run. Nil fields are replaced by
// the real implementations.
type Deps struct {
	Runner proc.Runner
	// Fetcher defaults to an HTTP fetcher for the settings' base URL and
	// subdir.
	Fetcher index.Fetcher
	// LookPath defaults to exec.LookPath.
	LookPath func(string) (string, error)
	// Environ is in os.Environ form.
	Environ []string
}

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
	deps   Deps
}

// NewApp is the constructor for the main application. It returns an App with
// its own isolated logger.
func NewApp(outW io.Writer, cfg *Config, deps Deps) *App {
	logger := newLogger(cfg.Verbosity, cfg.LogFormat, outW)

	if deps.Runner == nil {
		runner := proc.ExecRunner{}
		if cfg.Verbosity >= 2 {
			runner.Stream = outW
		}
		deps.Runner = runner
	}
	if deps.Environ == nil {
		deps.Environ = os.Environ()
	}
	logger.Debug("Application configured.", "dry_run", cfg.DryRun, "upload_user", cfg.UploadUser, "force", cfg.Force)

	return &App{
		outW:   outW,
		logger: logger,
		config: cfg,
		deps:   deps,
	}
}
