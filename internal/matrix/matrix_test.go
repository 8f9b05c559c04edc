package matrix

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/buildall/internal/recipe"
)

var (
	pythonAxis = Axis{Component: "python", Tag: "py", Values: []string{"2.7", "3.4", "3.5"}}
	numpyAxis  = Axis{Component: "numpy", Tag: "np", Values: []string{"1.8", "1.9", "1.10"}}
)

func rec(build ...string) *recipe.Descriptor {
	return recipe.New(recipe.Spec{Name: "pkg", Version: "1.0", Build: build})
}

func TestNew_ValidatesAxes(t *testing.T) {
	_, err := New(Axis{Component: "python"}, numpyAxis)
	assert.ErrorContains(t, err, "runtime axis")

	_, err = New(pythonAxis, Axis{Values: []string{"1.9"}})
	assert.ErrorContains(t, err, "numeric-library axis")
}

func TestExpand(t *testing.T) {
	ctx := context.Background()
	e, err := New(pythonAxis, numpyAxis)
	require.NoError(t, err)

	t.Run("no varying dependency collapses to one combination", func(t *testing.T) {
		got := e.Expand(ctx, rec("setuptools", "numpy-like"))
		assert.Equal(t, []Combo{{Runtime: "2.7", NumLib: "1.8"}}, got)
	})

	t.Run("numlib dependency varies over the numlib axis only", func(t *testing.T) {
		got := e.Expand(ctx, rec("numpy >=1.8"))
		want := []Combo{
			{Runtime: "2.7", NumLib: "1.8"},
			{Runtime: "2.7", NumLib: "1.9"},
			{Runtime: "2.7", NumLib: "1.10"},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Expand() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("runtime dependency varies over the runtime axis only", func(t *testing.T) {
		got := e.Expand(ctx, rec("python"))
		assert.Len(t, got, len(pythonAxis.Values))
		for i, c := range got {
			assert.Equal(t, pythonAxis.Values[i], c.Runtime)
			assert.Equal(t, "1.8", c.NumLib)
		}
	})
}

func TestExpand_AxisCollapseIgnoresLength(t *testing.T) {
	long := Axis{Component: "numpy", Values: []string{"1.6", "1.7", "1.8", "1.9", "1.10", "1.11"}}
	e, err := New(pythonAxis, long)
	require.NoError(t, err)

	got := e.Expand(context.Background(), rec("python"))
	for _, c := range got {
		assert.Equal(t, "1.6", c.NumLib)
	}
	assert.Len(t, got, 3)
}

func TestExpand_Substitution(t *testing.T) {
	ctx := context.Background()

	t.Run("unsupported pair takes the next numlib version", func(t *testing.T) {
		e, err := New(pythonAxis, numpyAxis, Rules(DefaultPairs)...)
		require.NoError(t, err)

		got := e.Expand(ctx, rec("python", "numpy"))
		want := []Combo{
			{Runtime: "2.7", NumLib: "1.8"},
			{Runtime: "2.7", NumLib: "1.9"},
			{Runtime: "2.7", NumLib: "1.10"},
			{Runtime: "3.4", NumLib: "1.8"},
			{Runtime: "3.4", NumLib: "1.9"},
			{Runtime: "3.4", NumLib: "1.10"},
			{Runtime: "3.5", NumLib: "1.9", Substituted: true},
			{Runtime: "3.5", NumLib: "1.9"},
			{Runtime: "3.5", NumLib: "1.10"},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Expand() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("pair rules ignore an axis the recipe does not vary over", func(t *testing.T) {
		e, err := New(pythonAxis, numpyAxis, Rules(DefaultPairs)...)
		require.NoError(t, err)

		got := e.Expand(ctx, rec("python"))
		assert.Equal(t, Combo{Runtime: "3.5", NumLib: "1.8"}, got[2])

		got = e.Expand(ctx, rec("numpy"))
		assert.Equal(t, []Combo{{Runtime: "2.7", NumLib: "1.8"}, {Runtime: "2.7", NumLib: "1.9"}, {Runtime: "2.7", NumLib: "1.10"}}, got)
	})

	t.Run("pure runtime recipe keeps every runtime on a pinned numlib axis", func(t *testing.T) {
		e, err := New(Axis{Component: "python", Values: []string{"2.7", "3.5"}}, Axis{Component: "numpy", Values: []string{"1.8"}}, Rules(DefaultPairs)...)
		require.NoError(t, err)

		got := e.Expand(ctx, rec("python"))
		assert.Equal(t, []Combo{{Runtime: "2.7", NumLib: "1.8"}, {Runtime: "3.5", NumLib: "1.8"}}, got)
	})

	t.Run("rules compose and exhaust the axis", func(t *testing.T) {
		rules := []Incompatibility{
			PairRule{Runtime: "3.5", NumLib: "1.8"},
			PairRule{Runtime: "3.5", NumLib: "1.9"},
			PairRule{Runtime: "3.5", NumLib: "1.10"},
		}
		e, err := New(Axis{Component: "python", Values: []string{"3.5"}}, numpyAxis, rules...)
		require.NoError(t, err)

		assert.Empty(t, e.Expand(ctx, rec("python", "numpy")))
	})

	t.Run("custom predicate", func(t *testing.T) {
		e, err := New(pythonAxis, numpyAxis, noPy2{})
		require.NoError(t, err)

		got := e.Expand(ctx, rec("python"))
		assert.Equal(t, []Combo{{Runtime: "3.4", NumLib: "1.8"}, {Runtime: "3.5", NumLib: "1.8"}}, got)
	})
}

// noPy2 rejects every python 2 pair so substitution can never succeed.
type noPy2 struct{}

func (noPy2) Incompatible(runtime, _ string) bool { return runtime == "2.7" }
