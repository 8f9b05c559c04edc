package publish

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vk/buildall/internal/matrix"
	"github.com/vk/buildall/internal/proc"
	"github.com/vk/buildall/internal/recipe"
	"github.com/vk/buildall/internal/target"
)

// scriptedRunner replays canned results per command and records every call.
type scriptedRunner struct {
	mu      sync.Mutex
	results map[string][]proc.Result
	// onRun, when set, runs before the result is returned.
	onRun func(name string, args []string)
	calls []string
}

func (s *scriptedRunner) Run(_ context.Context, name string, args ...string) (proc.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, name+" "+strings.Join(args, " "))
	if s.onRun != nil {
		s.onRun(name, args)
	}
	queue := s.results[name]
	if len(queue) == 0 {
		return proc.Result{}, nil
	}
	res := queue[0]
	if len(queue) > 1 {
		s.results[name] = queue[1:]
	}
	return res, nil
}

func (s *scriptedRunner) callsTo(name string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, c := range s.calls {
		if strings.HasPrefix(c, name+" ") {
			out = append(out, c)
		}
	}
	return out
}

func repeat(res proc.Result, n int) []proc.Result {
	out := make([]proc.Result, n)
	for i := range out {
		out[i] = res
	}
	return out
}

var testFactory = target.Factory{
	Runtime: matrix.Axis{Component: "python", Tag: "py", Values: []string{"3.5"}},
	NumLib:  matrix.Axis{Component: "numpy", Tag: "np", Values: []string{"1.10"}},
}

func testTarget(spec recipe.Spec) target.BuildTarget {
	if spec.Name == "" {
		spec.Name = "mdtraj"
	}
	if spec.Version == "" {
		spec.Version = "1.5"
	}
	if spec.Path == "" {
		spec.Path = "/recipes/" + spec.Name
	}
	if spec.Build == nil {
		spec.Build = []string{"python", "numpy"}
	}
	return testFactory.New(recipe.New(spec), matrix.Combo{Runtime: "3.5", NumLib: "1.10"})
}

// recordSleeps replaces the uploader's sleep with a recorder.
func recordSleeps(u *Uploader) *[]time.Duration {
	var slept []time.Duration
	u.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return &slept
}

// producingBuilder writes the expected artifact into dir whenever the
// builder command runs.
func producingBuilder(t *testing.T, runner *scriptedRunner, dir string, tgt target.BuildTarget) {
	t.Helper()
	runner.onRun = func(name string, _ []string) {
		if name == "conda" {
			require.NoError(t, os.WriteFile(filepath.Join(dir, tgt.Filename), []byte("pkg"), 0o644))
		}
	}
}

func joinArgs(args []string) string {
	return strings.Join(args, " ")
}
