package publish

import (
	"context"
	"fmt"

	"github.com/vk/buildall/internal/ctxlog"
	"github.com/vk/buildall/internal/proc"
	"github.com/vk/buildall/internal/target"
)

// Builder invokes the external package builder for one target at a time.
type Builder struct {
	Runner  proc.Runner
	Command string
	// Channels are passed as extra -c arguments so dependencies published
	// there resolve during the build.
	Channels []string
	// Verbose drops --quiet.
	Verbose bool
}

// Args returns the builder arguments for t.
func (b *Builder) Args(t target.BuildTarget, noTest bool) []string {
	args := []string{"build"}
	if !b.Verbose {
		args = append(args, "--quiet")
	}
	args = append(args, "--python", t.Combo.Runtime, "--numpy", t.Combo.NumLib)
	if noTest {
		args = append(args, "--no-test")
	}
	for _, ch := range b.Channels {
		args = append(args, "-c", ch)
	}
	return append(args, t.Recipe.Path())
}

// Build runs the builder for t. A non-zero exit is returned as *BuildFailure.
func (b *Builder) Build(ctx context.Context, t target.BuildTarget, noTest bool) error {
	logger := ctxlog.FromContext(ctx)
	logger.Info("🔨 Building target.", "target", t.Filename, "runtime", t.Combo.Runtime, "numlib", t.Combo.NumLib)

	res, err := b.Runner.Run(ctx, b.Command, b.Args(t, noTest)...)
	if err != nil {
		return fmt.Errorf("builder for %s: %w", t.Filename, err)
	}
	if res.ExitCode != 0 {
		return &BuildFailure{Target: t.Filename, ExitCode: res.ExitCode, Output: tail(res.Output, 20)}
	}
	return nil
}
