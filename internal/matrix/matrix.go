// Package matrix expands a recipe into the (runtime, numeric-library)
// version combinations that have to be evaluated for it.
package matrix

import (
	"context"
	"fmt"
	"slices"

	"github.com/vk/buildall/internal/ctxlog"
	"github.com/vk/buildall/internal/recipe"
)

// Axis is an ordered set of candidate versions for one varying build
// dimension. A recipe varies over the axis only when Component is one of its
// build dependencies; otherwise it is pinned to the first value.
type Axis struct {
	Component string
	// Tag prefixes the version in build strings, e.g. "py" gives "py35".
	Tag    string
	Values []string
}

// Validate checks that the axis can be expanded.
func (a Axis) Validate() error {
	if a.Component == "" {
		return fmt.Errorf("axis component must not be empty")
	}
	if len(a.Values) == 0 {
		return fmt.Errorf("axis %q has no versions", a.Component)
	}
	return nil
}

// Combo is one (runtime, numeric-library) pair to evaluate.
type Combo struct {
	Runtime string
	NumLib  string
	// Substituted marks a pair whose numeric-library version was replaced
	// because the requested pair is unsupported.
	Substituted bool
}

// Incompatibility reports version pairs that cannot be built. A version on an
// axis the recipe does not vary over is passed as "", since the recipe never
// links against it.
type Incompatibility interface {
	Incompatible(runtime, numlib string) bool
}

// PairRule rejects exactly one (runtime, numlib) pair.
type PairRule struct {
	Runtime string
	NumLib  string
}

func (r PairRule) Incompatible(runtime, numlib string) bool {
	return r.Runtime == runtime && r.NumLib == numlib
}

// DefaultPairs holds the pair known to be unbuildable: numpy 1.8 never
// supported python 3.5.
var DefaultPairs = []PairRule{{Runtime: "3.5", NumLib: "1.8"}}

// Rules converts pair rules to the predicate list an Expander takes.
func Rules(pairs []PairRule) []Incompatibility {
	rules := make([]Incompatibility, 0, len(pairs))
	for _, p := range pairs {
		rules = append(rules, p)
	}
	return rules
}

// Expander turns recipes into version combinations.
type Expander struct {
	Runtime Axis
	NumLib  Axis
	Rules   []Incompatibility
}

// New validates both axes and returns an Expander.
func New(runtime, numlib Axis, rules ...Incompatibility) (*Expander, error) {
	if err := runtime.Validate(); err != nil {
		return nil, fmt.Errorf("runtime axis: %w", err)
	}
	if err := numlib.Validate(); err != nil {
		return nil, fmt.Errorf("numeric-library axis: %w", err)
	}
	return &Expander{Runtime: runtime, NumLib: numlib, Rules: rules}, nil
}

func (e *Expander) incompatible(runtime, numlib string) bool {
	for _, rule := range e.Rules {
		if rule.Incompatible(runtime, numlib) {
			return true
		}
	}
	return false
}

// values returns the axis values a recipe varies over.
func values(a Axis, varies bool) []string {
	if varies {
		return slices.Clone(a.Values)
	}
	return a.Values[:1]
}

// ruleValue is the version rules see for v on an axis.
func ruleValue(v string, varies bool) string {
	if varies {
		return v
	}
	return ""
}

// Expand lists the combinations to evaluate for r, runtime-major. An
// unsupported pair is replaced by the next numeric-library version on the
// full axis that no rule rejects; with no such version the pair is dropped.
func (e *Expander) Expand(ctx context.Context, r *recipe.Descriptor) []Combo {
	logger := ctxlog.FromContext(ctx)
	rtVaries := r.BuildsAgainst(e.Runtime.Component)
	nlVaries := r.BuildsAgainst(e.NumLib.Component)

	var combos []Combo
	for _, rt := range values(e.Runtime, rtVaries) {
		for _, nl := range values(e.NumLib, nlVaries) {
			if !e.incompatible(ruleValue(rt, rtVaries), ruleValue(nl, nlVaries)) {
				combos = append(combos, Combo{Runtime: rt, NumLib: nl})
				continue
			}
			if !nlVaries {
				logger.Debug("Dropping unsupported combination.", "runtime", rt)
				continue
			}
			sub, ok := e.substitute(ruleValue(rt, rtVaries), nl)
			if !ok {
				logger.Debug("Dropping unsupported combination.", "runtime", rt, "numlib", nl)
				continue
			}
			logger.Debug("Substituting unsupported combination.", "runtime", rt, "numlib", nl, "substitute", sub)
			combos = append(combos, Combo{Runtime: rt, NumLib: sub, Substituted: true})
		}
	}
	return combos
}

func (e *Expander) substitute(runtime, numlib string) (string, bool) {
	idx := slices.Index(e.NumLib.Values, numlib)
	if idx < 0 {
		return "", false
	}
	for _, candidate := range e.NumLib.Values[idx+1:] {
		if !e.incompatible(runtime, candidate) {
			return candidate, true
		}
	}
	return "", false
}
