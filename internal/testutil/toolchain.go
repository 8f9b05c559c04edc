package testutil

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/vk/buildall/internal/config"
	"github.com/vk/buildall/internal/matrix"
	"github.com/vk/buildall/internal/proc"
	"github.com/vk/buildall/internal/recipe"
	"github.com/vk/buildall/internal/target"
)

// FakeTools stands in for the builder ("conda") and the uploader
// ("anaconda"). A build writes the artifact the real builder would produce
// into OutputDir; uploads replay UploadResults.
type FakeTools struct {
	OutputDir string
	// BaseDir is printed for "conda info --base".
	BaseDir string
	// FailBuilds holds recipe directory names whose build exits 1.
	FailBuilds []string
	// NoArtifact holds recipe directory names whose build exits 0 but
	// writes nothing.
	NoArtifact []string
	// UploadResults are replayed in order; the last one repeats. Empty means
	// every upload succeeds.
	UploadResults []proc.Result

	mu    sync.Mutex
	calls [][]string
}

// LookPath resolves every tool to its own name.
func (f *FakeTools) LookPath(name string) (string, error) {
	return name, nil
}

// Run implements proc.Runner.
func (f *FakeTools) Run(_ context.Context, name string, args ...string) (proc.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string{name}, args...))

	switch {
	case name == "conda" && slices.Equal(args, []string{"info", "--base"}):
		return proc.Result{Output: f.BaseDir + "\n"}, nil
	case name == "conda" && len(args) > 0 && args[0] == "build":
		return f.build(args)
	case name == "anaconda":
		if len(f.UploadResults) == 0 {
			return proc.Result{Output: "Upload complete\n"}, nil
		}
		res := f.UploadResults[0]
		if len(f.UploadResults) > 1 {
			f.UploadResults = f.UploadResults[1:]
		}
		return res, nil
	}
	return proc.Result{ExitCode: 127, Output: name + ": command not found"}, nil
}

func (f *FakeTools) build(args []string) (proc.Result, error) {
	dir := args[len(args)-1]
	base := filepath.Base(dir)
	if slices.Contains(f.FailBuilds, base) {
		return proc.Result{ExitCode: 1, Output: "build failed for " + base + "\n"}, nil
	}
	if slices.Contains(f.NoArtifact, base) {
		return proc.Result{}, nil
	}

	r, err := recipe.NewLoader(recipe.Platform{OS: "linux"}).Load(context.Background(), dir)
	if err != nil {
		return proc.Result{ExitCode: 1, Output: err.Error()}, nil
	}
	def := config.Default()
	factory := target.Factory{Runtime: def.Runtime, NumLib: def.NumLib}
	combo := matrix.Combo{Runtime: flagValue(args, "--python"), NumLib: flagValue(args, "--numpy")}
	t := factory.New(r, combo)

	if err := os.MkdirAll(f.OutputDir, 0o755); err != nil {
		return proc.Result{}, err
	}
	if err := os.WriteFile(filepath.Join(f.OutputDir, t.Filename), []byte("artifact"), 0o644); err != nil {
		return proc.Result{}, err
	}
	return proc.Result{Output: "Built " + t.Filename + "\n"}, nil
}

func flagValue(args []string, flag string) string {
	if i := slices.Index(args, flag); i >= 0 && i+1 < len(args) {
		return args[i+1]
	}
	return ""
}

// Calls returns every recorded invocation of the named tool.
func (f *FakeTools) Calls(name string) [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out [][]string
	for _, c := range f.calls {
		if c[0] == name {
			out = append(out, slices.Clone(c[1:]))
		}
	}
	return out
}

// Builds returns the arguments of every build invocation.
func (f *FakeTools) Builds() [][]string {
	var out [][]string
	for _, c := range f.Calls("conda") {
		if len(c) > 0 && c[0] == "build" {
			out = append(out, c)
		}
	}
	return out
}
