package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vk/buildall/internal/matrix"
	"github.com/vk/buildall/internal/recipe"
)

var factory = Factory{
	Runtime: matrix.Axis{Component: "python", Tag: "py", Values: []string{"2.7", "3.5"}},
	NumLib:  matrix.Axis{Component: "numpy", Tag: "np", Values: []string{"1.9", "1.10"}},
}

func TestFactory_Filename(t *testing.T) {
	combo := matrix.Combo{Runtime: "3.5", NumLib: "1.10"}
	testCases := []struct {
		name string
		spec recipe.Spec
		want string
	}{
		{
			name: "numpy and python",
			spec: recipe.Spec{Name: "mdtraj", Version: "1.5.1", BuildNumber: 2, Build: []string{"python", "numpy >=1.9"}},
			want: "mdtraj-1.5.1-np110py35_2.tar.bz2",
		},
		{
			name: "python only",
			spec: recipe.Spec{Name: "parmed", Version: "2.0", Build: []string{"python"}},
			want: "parmed-2.0-py35_0.tar.bz2",
		},
		{
			name: "no axis dependency",
			spec: recipe.Spec{Name: "fftw3f", Version: "3.3.4", BuildNumber: 1, Build: []string{"gcc"}},
			want: "fftw3f-3.3.4-1.tar.bz2",
		},
		{
			name: "explicit build string",
			spec: recipe.Spec{Name: "openmm", Version: "6.3", BuildString: "cuda75_0", Build: []string{"python"}},
			want: "openmm-6.3-cuda75_0.tar.bz2",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := factory.New(recipe.New(tc.spec), combo)
			assert.Equal(t, tc.want, got.Filename)
			assert.Equal(t, combo, got.Combo)
		})
	}
}

func TestFactory_Expand(t *testing.T) {
	r := recipe.New(recipe.Spec{Name: "pkg", Version: "1", Build: []string{"python"}})
	targets := factory.Expand(r, []matrix.Combo{
		{Runtime: "2.7", NumLib: "1.9"},
		{Runtime: "3.5", NumLib: "1.9"},
	})

	assert.Len(t, targets, 2)
	assert.Equal(t, "pkg-1-py27_0.tar.bz2", targets[0].Filename)
	assert.Equal(t, "pkg-1-py35_0.tar.bz2", targets[1].Filename)
	assert.Equal(t, "pkg (runtime 3.5, numlib 1.9)", targets[1].String())
}
