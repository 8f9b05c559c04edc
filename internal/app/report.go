package app

import (
	"github.com/vk/buildall/internal/evaluator"
	"github.com/vk/buildall/internal/publish"
	"github.com/vk/buildall/internal/recipe"
	"github.com/vk/buildall/internal/target"
)

// MaxExitCode caps the process exit status, which the OS truncates to a byte.
const MaxExitCode = 255

// Failure is a target whose build or upload failed.
type Failure struct {
	Target target.BuildTarget
	Err    error
}

// Report is what one run decided and did.
type Report struct {
	DryRun bool
	// ParseErrors are the recipes left out of the run. They do not count
	// towards the exit code.
	ParseErrors []*recipe.ParseError
	Evaluations []evaluator.Evaluation
	Scheduled   []target.BuildTarget
	Outcomes    []publish.Outcome
	Failures    []Failure
}

// ExitCode is the number of scheduled targets for a dry run and the number
// of failed targets otherwise, capped at MaxExitCode.
func (r *Report) ExitCode() int {
	n := len(r.Failures)
	if r.DryRun {
		n = len(r.Scheduled)
	}
	return min(n, MaxExitCode)
}

// FailedTargets lists the failed targets for display.
func (r *Report) FailedTargets() []string {
	out := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		out = append(out, f.Target.String())
	}
	return out
}

// Skipped counts evaluations that were not scheduled.
func (r *Report) Skipped() int {
	return len(r.Evaluations) - len(r.Scheduled)
}
