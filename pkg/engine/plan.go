// Package engine decides what runs, in what order, and how failures
// propagate. The Plan pairs an operation with its executable sub-graph;
// the Executor walks the graph breadth-by-readiness.
package engine

import (
	"github.com/stackforge/stackctl/pkg/graph"
)

// Operation is a verb applied to a stack.
type Operation string

const (
	OperationLaunch   Operation = "launch"
	OperationCreate   Operation = "create"
	OperationUpdate   Operation = "update"
	OperationDelete   Operation = "delete"
	OperationDescribe Operation = "describe"
	OperationOutputs  Operation = "outputs"
	OperationValidate Operation = "validate"
	OperationDiff     Operation = "diff"
)

// Destructive reports whether the operation tears infrastructure down and
// therefore walks the reversed graph.
func (op Operation) Destructive() bool {
	return op == OperationDelete
}

// Plan is an operation bound to the sub-graph it will execute over. The
// graph must already be filtered to the command scope and oriented for the
// operation (reversed for destructive operations).
type Plan struct {
	Operation Operation
	Graph     *graph.Graph
}

// NewPlan validates the sub-graph orders correctly and returns a plan.
func NewPlan(op Operation, g *graph.Graph) (*Plan, error) {
	if _, err := g.TopologicalSort(); err != nil {
		return nil, err
	}
	return &Plan{Operation: op, Graph: g}, nil
}

// IsEmpty returns true if the plan has nothing to execute.
func (p *Plan) IsEmpty() bool {
	return len(p.Graph.Nodes) == 0
}

// Size returns the number of stacks in the plan.
func (p *Plan) Size() int {
	return len(p.Graph.Nodes)
}
