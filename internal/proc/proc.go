// Package proc runs the external tools (builder and uploader) as
// subprocesses.
package proc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/vk/buildall/internal/ctxlog"
)

// Result is what a finished command left behind. A non-zero ExitCode is a
// normal outcome, not an error.
type Result struct {
	ExitCode int
	Output   string
}

// Runner executes a command and waits for it.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// ExecRunner runs commands with os/exec, capturing combined stdout and
// stderr. When Stream is set, output is also copied there as it arrives.
type ExecRunner struct {
	Stream io.Writer
}

// Run implements Runner. The error is non-nil only when the command could
// not be started or was interrupted by ctx.
func (r ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Running command.", "command", name, "args", args)

	var buf bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	if r.Stream != nil {
		cmd.Stdout = io.MultiWriter(&buf, r.Stream)
	} else {
		cmd.Stdout = &buf
	}
	cmd.Stderr = cmd.Stdout

	err := cmd.Run()
	res := Result{Output: buf.String()}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		res.ExitCode = exitErr.ExitCode()
		logger.Debug("Command exited with non-zero status.", "command", name, "exit_code", res.ExitCode)
		return res, nil
	}
	if ctx.Err() != nil {
		return res, fmt.Errorf("%s interrupted: %w", name, ctx.Err())
	}
	return res, fmt.Errorf("failed to run %s: %w", name, err)
}
