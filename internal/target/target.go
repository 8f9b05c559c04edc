// Package target defines the unit of scheduling: one recipe built for one
// (runtime, numeric-library) combination, together with the artifact file
// that build produces.
package target

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vk/buildall/internal/matrix"
	"github.com/vk/buildall/internal/recipe"
)

// ArtifactExt is the extension of built package archives.
const ArtifactExt = ".tar.bz2"

// BuildTarget is a recipe paired with the versions it is built against.
type BuildTarget struct {
	Recipe   *recipe.Descriptor
	Combo    matrix.Combo
	Filename string
}

// String identifies the target in logs and reports.
func (t BuildTarget) String() string {
	return fmt.Sprintf("%s (runtime %s, numlib %s)", t.Recipe.Name(), t.Combo.Runtime, t.Combo.NumLib)
}

// Factory derives targets for the axes an Expander works with.
type Factory struct {
	Runtime matrix.Axis
	NumLib  matrix.Axis
}

// New builds the target for r and c, deriving the artifact filename from the
// combination actually used, so substituted pairs name the substitute.
func (f Factory) New(r *recipe.Descriptor, c matrix.Combo) BuildTarget {
	return BuildTarget{
		Recipe:   r,
		Combo:    c,
		Filename: fmt.Sprintf("%s-%s-%s%s", r.Name(), r.Version(), f.BuildString(r, c), ArtifactExt),
	}
}

// Expand turns a recipe's combinations into targets, preserving order.
func (f Factory) Expand(r *recipe.Descriptor, combos []matrix.Combo) []BuildTarget {
	out := make([]BuildTarget, 0, len(combos))
	for _, c := range combos {
		out = append(out, f.New(r, c))
	}
	return out
}

// BuildString returns the recipe's explicit build string, or the default
// "<np tag><py tag>_<number>" with a tag present only for axes the recipe
// builds against.
func (f Factory) BuildString(r *recipe.Descriptor, c matrix.Combo) string {
	if s := r.BuildString(); s != "" {
		return s
	}
	var prefix strings.Builder
	if r.BuildsAgainst(f.NumLib.Component) {
		prefix.WriteString(tag(f.NumLib.Tag, c.NumLib))
	}
	if r.BuildsAgainst(f.Runtime.Component) {
		prefix.WriteString(tag(f.Runtime.Tag, c.Runtime))
	}
	number := strconv.Itoa(r.BuildNumber())
	if prefix.Len() == 0 {
		return number
	}
	return prefix.String() + "_" + number
}

func tag(prefix, version string) string {
	return prefix + strings.ReplaceAll(version, ".", "")
}
