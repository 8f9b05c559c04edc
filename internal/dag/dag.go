package dag

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// CycleError reports the recipes left over when no further tier could be
// emitted. None of them are scheduled.
type CycleError struct {
	Remaining []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected among recipes: %s", strings.Join(e.Remaining, ", "))
}

// Graph maps each node to the set of nodes it depends on. Insertion order is
// kept so that resolution is deterministic.
type Graph struct {
	order []string
	deps  map[string]map[string]struct{}
}

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		deps: make(map[string]map[string]struct{}),
	}
}

// AddNode adds a new node with the given ID to the graph. If a node with
// the same ID already exists, the function does nothing.
func (g *Graph) AddNode(id string) {
	if _, ok := g.deps[id]; ok {
		return
	}
	g.order = append(g.order, id)
	g.deps[id] = make(map[string]struct{})
}

// AddEdge records that `id` depends on `dep`. Both nodes must exist and
// self-references are rejected.
func (g *Graph) AddEdge(dep, id string) error {
	if dep == id {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", id, id)
	}
	if _, ok := g.deps[dep]; !ok {
		return fmt.Errorf("source node not found: %s", dep)
	}
	deps, ok := g.deps[id]
	if !ok {
		return fmt.Errorf("destination node not found: %s", id)
	}
	deps[dep] = struct{}{}
	return nil
}

// Has reports whether id is a node of the graph.
func (g *Graph) Has(id string) bool {
	_, ok := g.deps[id]
	return ok
}

// Nodes returns the node IDs in insertion order.
func (g *Graph) Nodes() []string {
	return slices.Clone(g.order)
}

// Dependencies returns the sorted IDs the given node depends on.
func (g *Graph) Dependencies(id string) ([]string, error) {
	deps, ok := g.deps[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	out := make([]string, 0, len(deps))
	for dep := range deps {
		out = append(out, dep)
	}
	sort.Strings(out)
	return out, nil
}

// Tiers peels the graph into dependency-free layers. Within a tier nodes keep
// insertion order. The graph itself is not modified.
func (g *Graph) Tiers() ([][]string, error) {
	remaining := make(map[string]map[string]struct{}, len(g.deps))
	for id, deps := range g.deps {
		cp := make(map[string]struct{}, len(deps))
		for dep := range deps {
			cp[dep] = struct{}{}
		}
		remaining[id] = cp
	}

	var tiers [][]string
	for len(remaining) > 0 {
		var tier []string
		for _, id := range g.order {
			if deps, ok := remaining[id]; ok && len(deps) == 0 {
				tier = append(tier, id)
			}
		}
		if len(tier) == 0 {
			left := make([]string, 0, len(remaining))
			for id := range remaining {
				left = append(left, id)
			}
			sort.Strings(left)
			return nil, &CycleError{Remaining: left}
		}
		for _, id := range tier {
			delete(remaining, id)
		}
		for _, deps := range remaining {
			for _, id := range tier {
				delete(deps, id)
			}
		}
		tiers = append(tiers, tier)
	}
	return tiers, nil
}
