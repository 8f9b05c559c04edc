package publish

import (
	"fmt"
	"strings"
)

// BuildFailure is a failed build of one target. Other targets still run.
type BuildFailure struct {
	Target string
	// ExitCode is -1 when the builder succeeded but left no artifact.
	ExitCode int
	Reason   string
	Output   string
}

func (e *BuildFailure) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("build of %s failed: %s", e.Target, e.Reason)
	}
	return fmt.Sprintf("build of %s failed: exit code %d", e.Target, e.ExitCode)
}

// TransientUploadError is one failed upload attempt that is retried.
type TransientUploadError struct {
	Attempt  int
	ExitCode int
	Output   string
	Err      error
}

func (e *TransientUploadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upload attempt %d: %v", e.Attempt, e.Err)
	}
	return fmt.Sprintf("upload attempt %d: exit code %d", e.Attempt, e.ExitCode)
}

func (e *TransientUploadError) Unwrap() error { return e.Err }

// UploadFailure is an upload that kept failing until the retry ceiling.
type UploadFailure struct {
	Path     string
	Attempts int
	Last     *TransientUploadError
}

func (e *UploadFailure) Error() string {
	return fmt.Sprintf("upload of %s failed after %d attempts: %v", e.Path, e.Attempts, e.Last)
}

func (e *UploadFailure) Unwrap() error { return e.Last }

// tail keeps the last n lines of tool output for reports.
func tail(output string, n int) string {
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
