package app

import (
	"errors"
	"fmt"
)

// MaxVerbosity is the highest meaningful -v count. At 1 the log level drops
// to debug, at 2 builder output is streamed, at 3 the builder runs verbose.
const MaxVerbosity = 3

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	RecipePatterns []string
	// SettingsPath is the optional HCL settings file.
	SettingsPath string

	CheckAgainst []string
	DryRun       bool
	// UploadUser enables uploading built artifacts to that account.
	UploadUser string
	Force      bool
	Dev        bool
	NoTest     bool

	// Python and Numpy replace the version lists of the settings axes.
	Python []string
	Numpy  []string

	OutputDir   string
	Blocklist   string
	MetricsFile string

	Verbosity int
	LogFormat string
}

// NewConfig validates cfg and returns a copy with defaults filled in.
func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.RecipePatterns) == 0 {
		return nil, errors.New("at least one recipe path is required")
	}
	if cfg.Dev && !cfg.Force {
		return nil, errors.New("--dev requires --force")
	}
	if cfg.Verbosity < 0 {
		return nil, fmt.Errorf("verbosity must not be negative, got %d", cfg.Verbosity)
	}
	cfg.Verbosity = min(cfg.Verbosity, MaxVerbosity)

	switch cfg.LogFormat {
	case "":
		cfg.LogFormat = "text"
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid log format %q: must be 'text' or 'json'", cfg.LogFormat)
	}
	return &cfg, nil
}
