// Package graph provides dependency graph construction and traversal for stackctl.
package graph

import (
	"fmt"
	"sort"

	"github.com/stackforge/stackctl/pkg/stack"
)

// Node represents a stack in the dependency graph. Edges point at what must
// finish first: DependsOn lists prerequisites, DependedOnBy the reverse.
type Node struct {
	Name  string
	Stack *stack.Stack

	DependsOn    []string
	DependedOnBy []string
}

// AddDependency adds a dependency edge to this node.
func (n *Node) AddDependency(name string) {
	for _, dep := range n.DependsOn {
		if dep == name {
			return
		}
	}
	n.DependsOn = append(n.DependsOn, name)
}

// AddDependent adds a dependent edge to this node.
func (n *Node) AddDependent(name string) {
	for _, dep := range n.DependedOnBy {
		if dep == name {
			return
		}
	}
	n.DependedOnBy = append(n.DependedOnBy, name)
}

// Graph is a directed acyclic graph over stack identities. Once built it is
// read-only for the duration of an engine run.
type Graph struct {
	Nodes map[string]*Node
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{Nodes: make(map[string]*Node)}
}

// AddNode adds a node to the graph.
func (g *Graph) AddNode(node *Node) error {
	if _, exists := g.Nodes[node.Name]; exists {
		return fmt.Errorf("node %s already exists", node.Name)
	}
	g.Nodes[node.Name] = node
	return nil
}

// GetNode returns a node by name.
func (g *Graph) GetNode(name string) *Node {
	return g.Nodes[name]
}

// AddEdge adds a dependency edge from dependent to dependency.
func (g *Graph) AddEdge(dependent, dependency string) error {
	from := g.GetNode(dependent)
	if from == nil {
		return fmt.Errorf("dependent node %s not found", dependent)
	}
	to := g.GetNode(dependency)
	if to == nil {
		return fmt.Errorf("dependency node %s not found", dependency)
	}

	from.AddDependency(dependency)
	to.AddDependent(dependent)
	return nil
}

// Dependencies returns the direct dependencies of a node.
func (g *Graph) Dependencies(name string) []string {
	if n := g.GetNode(name); n != nil {
		out := make([]string, len(n.DependsOn))
		copy(out, n.DependsOn)
		return out
	}
	return nil
}

// Dependents returns the direct dependents of a node.
func (g *Graph) Dependents(name string) []string {
	if n := g.GetNode(name); n != nil {
		out := make([]string, len(n.DependedOnBy))
		copy(out, n.DependedOnBy)
		return out
	}
	return nil
}

// Names returns all node names, sorted.
func (g *Graph) Names() []string {
	names := make([]string, 0, len(g.Nodes))
	for name := range g.Nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reverse returns a new graph with every edge flipped. Destructive
// operations walk the reversed graph so a stack is torn down only after
// everything that depends on it is gone.
func (g *Graph) Reverse() *Graph {
	out := NewGraph()
	for name, node := range g.Nodes {
		out.Nodes[name] = &Node{Name: name, Stack: node.Stack}
	}
	for name, node := range g.Nodes {
		for _, dep := range node.DependsOn {
			// dep must now wait for name
			out.Nodes[dep].AddDependency(name)
			out.Nodes[name].AddDependent(dep)
		}
	}
	return out
}

// TopologicalSort returns nodes in topological order (dependencies first)
// using Kahn's algorithm, with deterministic tie-breaking.
func (g *Graph) TopologicalSort() ([]*Node, error) {
	inDegree := make(map[string]int)
	for name, node := range g.Nodes {
		inDegree[name] = len(node.DependsOn)
	}

	var queue []string
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	var result []*Node
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]

		node := g.Nodes[name]
		result = append(result, node)

		for _, dependent := range node.DependedOnBy {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
				sort.Strings(queue)
			}
		}
	}

	if len(result) != len(g.Nodes) {
		if cycle := g.findCycle(); cycle != nil {
			return nil, fmt.Errorf("dependency cycle: %v", cycle)
		}
		return nil, fmt.Errorf("dependency cycle detected")
	}

	return result, nil
}

// findCycle locates one cycle via depth-first search and returns its member
// names in dependency order, or nil if the graph is acyclic.
func (g *Graph) findCycle() []string {
	const (
		white = 0 // unvisited
		grey  = 1 // on the recursion stack
		black = 2 // fully explored
	)

	color := make(map[string]int, len(g.Nodes))
	var path []string
	var cycle []string

	var visit func(name string) bool
	visit = func(name string) bool {
		color[name] = grey
		path = append(path, name)

		deps := append([]string(nil), g.Nodes[name].DependsOn...)
		sort.Strings(deps)
		for _, dep := range deps {
			if _, known := g.Nodes[dep]; !known {
				continue
			}
			switch color[dep] {
			case grey:
				// Slice the current path from the first occurrence of dep.
				for i, p := range path {
					if p == dep {
						cycle = append([]string(nil), path[i:]...)
						return true
					}
				}
			case white:
				if visit(dep) {
					return true
				}
			}
		}

		path = path[:len(path)-1]
		color[name] = black
		return false
	}

	for _, name := range g.Names() {
		if color[name] == white && visit(name) {
			return cycle
		}
	}
	return nil
}
