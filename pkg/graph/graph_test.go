package graph

import (
	"strings"
	"testing"

	"github.com/stackforge/stackctl/pkg/stack"
)

func newTestStack(name string, deps ...string) *stack.Stack {
	return stack.New(stack.Config{Name: name, DependsOn: deps})
}

func TestGraph_AddNode(t *testing.T) {
	g := NewGraph()

	err := g.AddNode(&Node{Name: "a"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(g.Nodes) != 1 {
		t.Errorf("expected 1 node, got %d", len(g.Nodes))
	}

	// Adding duplicate should fail
	err = g.AddNode(&Node{Name: "a"})
	if err == nil {
		t.Error("expected error for duplicate node")
	}
}

func TestGraph_AddEdge(t *testing.T) {
	g := NewGraph()
	_ = g.AddNode(&Node{Name: "a"})
	_ = g.AddNode(&Node{Name: "b"})

	// a depends on b
	if err := g.AddEdge("a", "b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(g.Dependencies("a")) != 1 {
		t.Errorf("expected 1 dependency, got %d", len(g.Dependencies("a")))
	}
	if len(g.Dependents("b")) != 1 {
		t.Errorf("expected 1 dependent, got %d", len(g.Dependents("b")))
	}

	// Duplicate edges collapse
	_ = g.AddEdge("a", "b")
	if len(g.Dependencies("a")) != 1 {
		t.Errorf("expected duplicate edge to collapse, got %v", g.Dependencies("a"))
	}

	// Edge to non-existent node should fail
	if err := g.AddEdge("a", "nonexistent"); err == nil {
		t.Error("expected error for non-existent node")
	}
}

func TestGraph_TopologicalSort(t *testing.T) {
	g := NewGraph()
	for _, name := range []string{"a", "b", "c"} {
		_ = g.AddNode(&Node{Name: name})
	}
	// c -> b -> a
	_ = g.AddEdge("b", "a")
	_ = g.AddEdge("c", "b")

	sorted, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var order []string
	for _, n := range sorted {
		order = append(order, n.Name)
	}
	if strings.Join(order, ",") != "a,b,c" {
		t.Errorf("expected a,b,c got %v", order)
	}
}

func TestGraph_TopologicalSort_Cycle(t *testing.T) {
	g := NewGraph()
	_ = g.AddNode(&Node{Name: "a"})
	_ = g.AddNode(&Node{Name: "b"})
	_ = g.AddEdge("a", "b")
	_ = g.AddEdge("b", "a")

	if _, err := g.TopologicalSort(); err == nil {
		t.Fatal("expected cycle error")
	}
}

func TestGraph_Reverse(t *testing.T) {
	g := NewGraph()
	for _, name := range []string{"a", "b", "c"} {
		_ = g.AddNode(&Node{Name: name})
	}
	_ = g.AddEdge("b", "a")
	_ = g.AddEdge("c", "b")

	r := g.Reverse()

	// In the reversed graph a waits for b, b waits for c.
	if deps := r.Dependencies("a"); len(deps) != 1 || deps[0] != "b" {
		t.Errorf("expected a to depend on b, got %v", deps)
	}
	if deps := r.Dependencies("b"); len(deps) != 1 || deps[0] != "c" {
		t.Errorf("expected b to depend on c, got %v", deps)
	}
	if deps := r.Dependencies("c"); len(deps) != 0 {
		t.Errorf("expected c to have no dependencies, got %v", deps)
	}

	sorted, err := r.TopologicalSort()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sorted[0].Name != "c" {
		t.Errorf("expected c first in reversed order, got %s", sorted[0].Name)
	}
}
