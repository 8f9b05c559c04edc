package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/buildall/internal/app"
	"github.com/vk/buildall/internal/cli"
	"github.com/vk/buildall/internal/testutil"
)

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	// The "-h" (help) flag should cause cli.Parse to return `shouldExit=true`.
	out := &bytes.Buffer{}
	code, err := run(context.Background(), out, []string{"-h"}, app.Deps{})

	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Zero(t, code)
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	_, err := run(context.Background(), out, []string{"--dev", "recipes"}, app.Deps{})

	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 2, exitErr.Code)
}

func TestRun_DryRunExitCodeIsScheduledCount(t *testing.T) {
	t.Parallel()

	root := testutil.WriteRecipes(t, map[string]string{
		"alpha": testutil.Meta("alpha", "1.0", []string{"python"}, nil),
		"beta":  testutil.Meta("beta", "1.0", nil, []string{"alpha"}),
	})
	tools := &testutil.FakeTools{OutputDir: t.TempDir()}
	deps := app.Deps{Runner: tools, LookPath: tools.LookPath, Environ: []string{}}

	out := &testutil.SafeBuffer{}
	code, err := run(context.Background(), out, []string{
		"--dry-run", "--python", "2.7,3.5", "--output-dir", tools.OutputDir, filepath.Join(root, "*"),
	}, deps)

	require.NoError(t, err)
	require.Equal(t, 3, code, "two alpha targets and one beta target")
	require.Empty(t, tools.Builds())
}

func TestRun_ExecuteExitCodeIsFailedCount(t *testing.T) {
	t.Parallel()

	root := testutil.WriteRecipes(t, map[string]string{
		"alpha": testutil.Meta("alpha", "1.0", nil, nil),
		"beta":  testutil.Meta("beta", "1.0", nil, nil),
	})
	tools := &testutil.FakeTools{OutputDir: t.TempDir(), FailBuilds: []string{"beta"}}
	deps := app.Deps{Runner: tools, LookPath: tools.LookPath, Environ: []string{}}

	code, err := run(context.Background(), &testutil.SafeBuffer{}, []string{"--output-dir", tools.OutputDir, root}, deps)

	require.NoError(t, err)
	require.Equal(t, 1, code)
	require.Len(t, tools.Builds(), 2)
}

func TestRun_FatalError(t *testing.T) {
	t.Parallel()

	root := testutil.WriteRecipes(t, map[string]string{
		"a": testutil.Meta("a", "1.0", []string{"b"}, nil),
		"b": testutil.Meta("b", "1.0", []string{"a"}, nil),
	})
	tools := &testutil.FakeTools{OutputDir: t.TempDir()}
	deps := app.Deps{Runner: tools, LookPath: tools.LookPath, Environ: []string{}}

	_, err := run(context.Background(), &testutil.SafeBuffer{}, []string{"--dry-run", root}, deps)

	require.ErrorContains(t, err, "cycle detected among recipes: a, b")
}
