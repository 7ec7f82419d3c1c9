package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackforge/stackctl/pkg/graph"
)

func TestNewPlan(t *testing.T) {
	g, err := graph.Build(nil)
	require.NoError(t, err)

	plan, err := NewPlan(OperationLaunch, g)
	require.NoError(t, err)
	assert.True(t, plan.IsEmpty())
	assert.Equal(t, 0, plan.Size())
}

func TestNewPlan_RejectsUnorderableGraph(t *testing.T) {
	g := graph.NewGraph()
	_ = g.AddNode(&graph.Node{Name: "a"})
	_ = g.AddNode(&graph.Node{Name: "b"})
	_ = g.AddEdge("a", "b")
	_ = g.AddEdge("b", "a")

	_, err := NewPlan(OperationLaunch, g)
	require.Error(t, err)
}

func TestOperation_Destructive(t *testing.T) {
	assert.True(t, OperationDelete.Destructive())

	for _, op := range []Operation{
		OperationLaunch, OperationCreate, OperationUpdate,
		OperationDescribe, OperationOutputs, OperationValidate, OperationDiff,
	} {
		assert.False(t, op.Destructive(), string(op))
	}
}
