package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackforge/stackctl/pkg/stack"
)

type countingResolver struct {
	base
	value interface{}
	calls int
}

func (r *countingResolver) Resolve(ctx context.Context, rc *stack.ResolveContext) (interface{}, error) {
	r.calls++
	return r.value, nil
}

func TestMaterialize_LiteralsPassThrough(t *testing.T) {
	attrs := map[string]interface{}{
		"name":  "api",
		"count": 3,
		"tags":  []interface{}{"a", "b"},
	}

	out, err := Materialize(context.Background(), &stack.ResolveContext{}, attrs)
	require.NoError(t, err)
	assert.Equal(t, attrs, out)
}

func TestMaterialize_ResolvesNested(t *testing.T) {
	out, err := Materialize(context.Background(), &stack.ResolveContext{}, map[string]interface{}{
		"parameters": map[string]interface{}{
			"Key": &countingResolver{value: "resolved"},
		},
		"list": []interface{}{&countingResolver{value: 42}},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{
		"parameters": map[string]interface{}{"Key": "resolved"},
		"list":       []interface{}{42},
	}, out)
}

func TestMaterialize_NoValueOmitsMapKey(t *testing.T) {
	out, err := Materialize(context.Background(), &stack.ResolveContext{}, map[string]interface{}{
		"kept":    "x",
		"dropped": &NoValueResolver{},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{"kept": "x"}, out)
	_, exists := out["dropped"]
	assert.False(t, exists, "the key must be absent, not nil")
}

func TestMaterialize_NoValueShrinksList(t *testing.T) {
	// A three-item list with one NoValue materializes to two items.
	out, err := Materialize(context.Background(), &stack.ResolveContext{}, map[string]interface{}{
		"items": []interface{}{"a", &NoValueResolver{}, "c"},
	})
	require.NoError(t, err)

	assert.Equal(t, []interface{}{"a", "c"}, out["items"])
}

func TestMaterialize_ResolverResultIsMaterialized(t *testing.T) {
	// A resolver returning a structure that itself contains a resolver.
	inner := &countingResolver{value: "deep"}
	outer := &countingResolver{value: map[string]interface{}{"nested": inner}}

	out, err := Materialize(context.Background(), &stack.ResolveContext{}, map[string]interface{}{
		"cfg": outer,
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{
		"cfg": map[string]interface{}{"nested": "deep"},
	}, out)
}

func TestMaterialize_ResolverInvokedOncePerPass(t *testing.T) {
	r := &countingResolver{value: "shared"}

	out, err := Materialize(context.Background(), &stack.ResolveContext{}, map[string]interface{}{
		"a": r,
		"b": r,
		"c": []interface{}{r},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, r.calls)
	assert.Equal(t, "shared", out["a"])
	assert.Equal(t, "shared", out["b"])
}

func TestMaterializeValue_NoValue(t *testing.T) {
	_, ok, err := MaterializeValue(context.Background(), &stack.ResolveContext{}, &NoValueResolver{})
	require.NoError(t, err)
	assert.False(t, ok)

	v, ok, err := MaterializeValue(context.Background(), &stack.ResolveContext{}, "plain")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "plain", v)
}
