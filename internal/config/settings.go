package config

import (
	"runtime"
	"slices"
	"time"

	"github.com/vk/buildall/internal/index"
	"github.com/vk/buildall/internal/matrix"
	"github.com/vk/buildall/internal/publish"
)

// TokenEnv is the environment variable holding the uploader token when the
// settings file does not set one.
const TokenEnv = "BINSTAR_TOKEN"

// Settings is the resolved configuration of one run.
type Settings struct {
	// Subdir is the platform subdirectory of the remote index, e.g. "linux-64".
	Subdir string
	// OutputDir overrides the builder's artifact directory.
	OutputDir      string
	ChannelBaseURL string
	CheckAgainst   []string
	MetricsFile    string

	Runtime      matrix.Axis
	NumLib       matrix.Axis
	Incompatible []matrix.PairRule

	Builder  Builder
	Uploader Uploader
}

// Builder configures the external package builder.
type Builder struct {
	Command  string
	Channels []string
}

// Uploader configures the external uploader.
type Uploader struct {
	Command   string
	Token     string
	Attempts  int
	Backoff   time.Duration
	Blocklist string
}

// Default returns the settings used when no file is given.
func Default() *Settings {
	return &Settings{
		Subdir:         DefaultSubdir(runtime.GOOS, runtime.GOARCH),
		ChannelBaseURL: index.DefaultBaseURL,
		Runtime:        matrix.Axis{Component: "python", Tag: "py", Values: []string{"2.7", "3.4", "3.5"}},
		NumLib:         matrix.Axis{Component: "numpy", Tag: "np", Values: []string{"1.8", "1.9", "1.10"}},
		Incompatible:   slices.Clone(matrix.DefaultPairs),
		Builder:        Builder{Command: "conda"},
		Uploader: Uploader{
			Command:  "anaconda",
			Attempts: publish.DefaultRetryPolicy.Attempts,
			Backoff:  publish.DefaultRetryPolicy.Unit,
		},
	}
}

// DefaultSubdir maps a Go platform to the index subdirectory it publishes to.
func DefaultSubdir(goos, goarch string) string {
	plat := map[string]string{"darwin": "osx", "windows": "win"}[goos]
	if plat == "" {
		plat = goos
	}
	switch goarch {
	case "arm64":
		if plat == "linux" {
			return "linux-aarch64"
		}
		return plat + "-arm64"
	case "386":
		return plat + "-32"
	default:
		return plat + "-64"
	}
}

// Rules returns the incompatible pairs as expander rules.
func (s *Settings) Rules() []matrix.Incompatibility {
	return matrix.Rules(s.Incompatible)
}

// RetryPolicy returns the uploader retry policy.
func (s *Settings) RetryPolicy() publish.RetryPolicy {
	return publish.RetryPolicy{Attempts: s.Uploader.Attempts, Unit: s.Uploader.Backoff}
}
