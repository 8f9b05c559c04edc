// Package evaluator decides, per build target, whether it has to be built.
package evaluator

import (
	"context"
	"os"
	"path/filepath"

	"github.com/vk/buildall/internal/ctxlog"
	"github.com/vk/buildall/internal/index"
	"github.com/vk/buildall/internal/target"
)

// Decision is the outcome of evaluating one target.
type Decision int

const (
	Build Decision = iota
	ForceScheduled
	SkipLocalExists
	SkipRemoteExists
	SkipUnsupported
	// SkipDuplicate collapses a target whose artifact equals the previous
	// target's of the same recipe. It is not reported as a skip.
	SkipDuplicate
)

func (d Decision) String() string {
	switch d {
	case Build:
		return "build"
	case ForceScheduled:
		return "force"
	case SkipLocalExists:
		return "skip-local-exists"
	case SkipRemoteExists:
		return "skip-remote-exists"
	case SkipUnsupported:
		return "skip-unsupported"
	case SkipDuplicate:
		return "skip-duplicate"
	default:
		return "unknown"
	}
}

// Scheduled reports whether the target goes on to the build pipeline.
func (d Decision) Scheduled() bool {
	return d == Build || d == ForceScheduled
}

// LocalStore answers whether an artifact is already in the local build
// output directory.
type LocalStore interface {
	Exists(filename string) bool
}

// DirStore is a LocalStore over a directory.
type DirStore string

func (d DirStore) Exists(filename string) bool {
	if d == "" {
		return false
	}
	info, err := os.Stat(filepath.Join(string(d), filename))
	return err == nil && !info.IsDir()
}

// NeedsBuild applies the decision precedence to one target. prevFilename is
// the artifact of the target evaluated just before it for the same recipe,
// or "" for the first. It has no side effects.
func NeedsBuild(t target.BuildTarget, prevFilename string, local LocalStore, snap *index.Snapshot, force bool) Decision {
	switch {
	case t.Recipe.ForceUpload():
		return ForceScheduled
	case prevFilename != "" && t.Filename == prevFilename:
		return SkipDuplicate
	case local != nil && local.Exists(t.Filename):
		return SkipLocalExists
	case t.Recipe.Skip():
		return SkipUnsupported
	case !force && snap.Contains(t.Filename):
		return SkipRemoteExists
	default:
		return Build
	}
}

// Evaluation pairs a target with its decision.
type Evaluation struct {
	Target   target.BuildTarget
	Decision Decision
}

// Evaluator evaluates targets against one local store and one snapshot.
type Evaluator struct {
	local LocalStore
	snap  *index.Snapshot
	force bool
}

// New creates an Evaluator. The snapshot is read, never refreshed.
func New(local LocalStore, snap *index.Snapshot, force bool) *Evaluator {
	return &Evaluator{local: local, snap: snap, force: force}
}

// EvaluateRecipe evaluates one recipe's targets in expansion order. Duplicate
// collapses are dropped from the result.
func (e *Evaluator) EvaluateRecipe(ctx context.Context, targets []target.BuildTarget) []Evaluation {
	logger := ctxlog.FromContext(ctx)

	out := make([]Evaluation, 0, len(targets))
	prev := ""
	for _, t := range targets {
		d := NeedsBuild(t, prev, e.local, e.snap, e.force)
		prev = t.Filename
		if d == SkipDuplicate {
			continue
		}
		if d == SkipRemoteExists {
			logger.Debug("Target evaluated.", "target", t.Filename, "decision", d.String(), "channels", channels(e.snap.Lookup(t.Filename)))
		} else {
			logger.Debug("Target evaluated.", "target", t.Filename, "decision", d.String())
		}
		out = append(out, Evaluation{Target: t, Decision: d})
	}
	return out
}

func channels(entries []index.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Channel)
	}
	return out
}
