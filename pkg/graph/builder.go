package graph

import (
	"sort"

	"github.com/stackforge/stackctl/pkg/errors"
	"github.com/stackforge/stackctl/pkg/stack"
)

// Build constructs the full project graph from every stack known to the
// project, not just the command scope: cross-scope dependency targets must
// validate against the whole project.
//
// It fails fast on a dependency naming no known stack and on any cycle,
// before any operation runs.
func Build(stacks []*stack.Stack) (*Graph, error) {
	g := NewGraph()

	for _, s := range stacks {
		if err := g.AddNode(&Node{Name: s.Name, Stack: s}); err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfig, "duplicate stack name "+s.Name, err)
		}
	}

	// Deterministic edge insertion keeps error messages stable.
	names := g.Names()
	for _, name := range names {
		node := g.Nodes[name]
		deps := node.Stack.Dependencies()
		sort.Strings(deps)
		for _, dep := range deps {
			if _, known := g.Nodes[dep]; !known {
				return nil, errors.UnknownDependency(name, dep)
			}
			if err := g.AddEdge(name, dep); err != nil {
				return nil, err
			}
		}
	}

	if cycle := g.findCycle(); cycle != nil {
		return nil, errors.CircularDependency(cycle)
	}

	return g, nil
}
