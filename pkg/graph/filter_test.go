package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackforge/stackctl/pkg/errors"
	"github.com/stackforge/stackctl/pkg/stack"
)

// a <- b <- c, d independent
func chainGraph(t *testing.T) *Graph {
	t.Helper()
	g, err := Build([]*stack.Stack{
		newTestStack("a"),
		newTestStack("b", "a"),
		newTestStack("c", "b"),
		newTestStack("d"),
	})
	require.NoError(t, err)
	return g
}

func TestFilter_ExpandsDependencies(t *testing.T) {
	g := chainGraph(t)

	sub, err := g.Filter(FilterOptions{Scope: []string{"c"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, sub.Names())
	assert.Equal(t, []string{"b"}, sub.Dependencies("c"))
}

func TestFilter_ExpandsDependents(t *testing.T) {
	g := chainGraph(t)

	sub, err := g.Filter(FilterOptions{Scope: []string{"a"}, Reverse: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, sub.Names())
}

func TestFilter_IgnoreDependencies(t *testing.T) {
	g := chainGraph(t)

	sub, err := g.Filter(FilterOptions{Scope: []string{"c"}, IgnoreDependencies: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"c"}, sub.Names())
	assert.Empty(t, sub.Dependencies("c"))
}

func TestFilter_EmptyScopeIsEverything(t *testing.T) {
	g := chainGraph(t)

	sub, err := g.Filter(FilterOptions{})
	require.NoError(t, err)
	assert.Len(t, sub.Nodes, 4)
}

func TestFilter_UnknownScope(t *testing.T) {
	g := chainGraph(t)

	_, err := g.Filter(FilterOptions{Scope: []string{"nope"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
}

func TestFilter_SkipsIgnoredInBulk(t *testing.T) {
	g, err := Build([]*stack.Stack{
		newTestStack("a"),
		stack.New(stack.Config{Name: "b", Ignore: true}),
	})
	require.NoError(t, err)

	sub, err := g.Filter(FilterOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, sub.Names())
}

func TestFilter_ExplicitScopeOverridesIgnore(t *testing.T) {
	g, err := Build([]*stack.Stack{
		stack.New(stack.Config{Name: "b", Ignore: true}),
	})
	require.NoError(t, err)

	sub, err := g.Filter(FilterOptions{Scope: []string{"b"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, sub.Names())
}

func TestFilter_SkippedWithLiveDependentFails(t *testing.T) {
	// b is ignored but a kept stack depends on it.
	g, err := Build([]*stack.Stack{
		stack.New(stack.Config{Name: "b", Ignore: true}),
		newTestStack("c", "b"),
	})
	require.NoError(t, err)

	_, err = g.Filter(FilterOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeConfig))
	assert.Contains(t, err.Error(), `"b"`)
	assert.Contains(t, err.Error(), `"c"`)
}

func TestFilter_ObsoleteExcludedUnlessPrune(t *testing.T) {
	g, err := Build([]*stack.Stack{
		newTestStack("a"),
		stack.New(stack.Config{Name: "old", Obsolete: true}),
	})
	require.NoError(t, err)

	sub, err := g.Filter(FilterOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, sub.Names())

	sub, err = g.Filter(FilterOptions{Prune: true, Reverse: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "old"}, sub.Names())
}
