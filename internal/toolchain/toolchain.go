// Package toolchain locates the external builder and uploader once per run.
// The resolved paths are passed down explicitly instead of being looked up
// again by each component.
package toolchain

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/vk/buildall/internal/ctxlog"
	"github.com/vk/buildall/internal/proc"
)

// Toolchain holds the resolved tool locations for a run.
type Toolchain struct {
	Builder  string
	Uploader string
	// OutputDir is where the builder drops finished artifacts.
	OutputDir string
}

// Options selects what to resolve.
type Options struct {
	BuilderCommand  string
	UploaderCommand string
	// NeedUploader is false for runs that never upload.
	NeedUploader bool
	// OutputDir, when set, is used as is. Otherwise it is derived from the
	// builder's base prefix as <base>/conda-bld/<Subdir>.
	OutputDir string
	Subdir    string
}

// Locator resolves a Toolchain.
type Locator struct {
	Runner   proc.Runner
	LookPath func(string) (string, error)
}

// NewLocator returns a Locator. A nil lookPath means exec.LookPath.
func NewLocator(runner proc.Runner, lookPath func(string) (string, error)) *Locator {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	return &Locator{Runner: runner, LookPath: lookPath}
}

// Init resolves every tool opts asks for.
func (l *Locator) Init(ctx context.Context, opts Options) (*Toolchain, error) {
	logger := ctxlog.FromContext(ctx)

	builder, err := l.LookPath(opts.BuilderCommand)
	if err != nil {
		return nil, fmt.Errorf("builder %q not found: %w", opts.BuilderCommand, err)
	}
	tc := &Toolchain{Builder: builder, OutputDir: opts.OutputDir}

	if opts.NeedUploader {
		tc.Uploader, err = l.LookPath(opts.UploaderCommand)
		if err != nil {
			return nil, fmt.Errorf("uploader %q not found: %w", opts.UploaderCommand, err)
		}
	}

	if tc.OutputDir == "" {
		res, err := l.Runner.Run(ctx, builder, "info", "--base")
		if err != nil {
			return nil, fmt.Errorf("failed to query builder base prefix: %w", err)
		}
		base := strings.TrimSpace(res.Output)
		if res.ExitCode != 0 || base == "" {
			return nil, fmt.Errorf("builder base prefix query exited %d: %s", res.ExitCode, base)
		}
		tc.OutputDir = filepath.Join(base, "conda-bld", opts.Subdir)
	}

	logger.Debug("Toolchain resolved.", "builder", tc.Builder, "uploader", tc.Uploader, "output_dir", tc.OutputDir)
	return tc, nil
}
