package dag

import (
	"context"

	"github.com/vk/buildall/internal/ctxlog"
	"github.com/vk/buildall/internal/recipe"
)

// FromRecipes builds the graph induced by the loaded recipes. Dependencies on
// names outside the set, and a recipe naming itself, add no edge.
func FromRecipes(recipes []*recipe.Descriptor) *Graph {
	g := New()
	for _, r := range recipes {
		g.AddNode(r.Name())
	}
	for _, r := range recipes {
		for _, dep := range r.Dependencies() {
			if dep == r.Name() || !g.Has(dep) {
				continue
			}
			// Both nodes exist and differ, so AddEdge cannot fail.
			_ = g.AddEdge(dep, r.Name())
		}
	}
	return g
}

// Resolve returns recipes ordered so that every recipe follows all of its
// in-scope dependencies. It fails with *CycleError, emitting nothing, when
// the in-scope dependencies contain a cycle.
func Resolve(ctx context.Context, recipes []*recipe.Descriptor) ([]*recipe.Descriptor, error) {
	logger := ctxlog.FromContext(ctx)

	g := FromRecipes(recipes)
	tiers, err := g.Tiers()
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*recipe.Descriptor, len(recipes))
	for _, r := range recipes {
		byName[r.Name()] = r
	}

	ordered := make([]*recipe.Descriptor, 0, len(recipes))
	for i, tier := range tiers {
		logger.Debug("Resolved build tier.", "tier", i, "recipes", tier)
		for _, name := range tier {
			if deps, _ := g.Dependencies(name); len(deps) > 0 {
				logger.Debug("Recipe ordered after its dependencies.", "recipe", name, "deps", deps)
			}
			ordered = append(ordered, byName[name])
		}
	}
	return ordered, nil
}
