package graph

import (
	"fmt"
	"sort"

	"github.com/stackforge/stackctl/pkg/errors"
)

// FilterOptions control how a command scope becomes an executable sub-graph.
type FilterOptions struct {
	// Scope names the stacks the invocation targets. Empty means every
	// stack in the project (a bulk operation).
	Scope []string

	// IgnoreDependencies restricts execution to the exact named scope.
	// Missing prerequisites become the caller's responsibility.
	IgnoreDependencies bool

	// Reverse expands the scope through dependents instead of
	// dependencies, for destructive operations.
	Reverse bool

	// Prune includes stacks flagged obsolete.
	Prune bool
}

// Filter computes the executable sub-graph for a command scope.
//
// The scope expands to include all transitive dependencies (or dependents,
// for reverse operations) so the full causal chain is present. Stacks
// flagged ignore, and obsolete stacks outside a prune, are dropped unless
// named explicitly; a dropped stack that a kept stack still needs is a
// fatal configuration error rather than a silent inclusion.
//
// The returned graph keeps dependency orientation. Callers running a
// destructive operation reverse it afterwards.
func (g *Graph) Filter(opts FilterOptions) (*Graph, error) {
	explicit := make(map[string]bool, len(opts.Scope))
	for _, name := range opts.Scope {
		if _, known := g.Nodes[name]; !known {
			return nil, errors.New(errors.ErrCodeNotFound, fmt.Sprintf("stack %q not found in project", name))
		}
		explicit[name] = true
	}

	seed := opts.Scope
	if len(seed) == 0 {
		seed = g.Names()
	}

	kept := make(map[string]bool)
	var expand func(name string)
	expand = func(name string) {
		if kept[name] {
			return
		}
		kept[name] = true
		if opts.IgnoreDependencies {
			return
		}
		for _, next := range g.prerequisites(name, opts.Reverse) {
			expand(next)
		}
	}
	for _, name := range seed {
		expand(name)
	}

	// Drop ignored and (outside a prune) obsolete stacks, unless the caller
	// named them directly.
	skipped := make(map[string]bool)
	for name := range kept {
		if explicit[name] {
			continue
		}
		s := g.Nodes[name].Stack
		if s == nil {
			continue
		}
		if s.Ignore || (s.Obsolete && !opts.Prune) {
			skipped[name] = true
			delete(kept, name)
		}
	}

	// A skipped stack that something kept still needs cannot be silently
	// included or silently skipped.
	for _, name := range sortedNames(kept) {
		for _, pre := range g.prerequisites(name, opts.Reverse) {
			if skipped[pre] {
				return nil, errors.New(errors.ErrCodeConfig,
					fmt.Sprintf("cannot skip stack %q: stack %q depends on it", pre, name)).
					WithDetail("skipped", pre).
					WithDetail("dependent", name)
			}
		}
	}

	sub := NewGraph()
	for name := range kept {
		sub.Nodes[name] = &Node{Name: name, Stack: g.Nodes[name].Stack}
	}
	for name := range kept {
		for _, dep := range g.Nodes[name].DependsOn {
			if kept[dep] {
				sub.Nodes[name].AddDependency(dep)
				sub.Nodes[dep].AddDependent(name)
			}
		}
	}

	return sub, nil
}

// prerequisites returns the direction-appropriate causal predecessors of a
// node: dependencies for forward operations, dependents for reverse ones.
func (g *Graph) prerequisites(name string, reverse bool) []string {
	if reverse {
		return g.Dependents(name)
	}
	return g.Dependencies(name)
}

func sortedNames(set map[string]bool) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
