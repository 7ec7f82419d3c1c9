package resolver

import (
	"context"

	"github.com/stackforge/stackctl/pkg/stack"
)

// Materialize resolves every resolver reachable from attrs, depth-first
// through nested mappings and sequences, and returns the fully-literal
// structure. Each resolver is invoked at most once per pass; a resolver
// yielding NoValue causes its entry to be omitted entirely from the
// materialized container rather than replaced with a placeholder.
func Materialize(ctx context.Context, rc *stack.ResolveContext, attrs map[string]interface{}) (map[string]interface{}, error) {
	pass := &materializePass{rc: rc, cache: map[stack.Resolver]cached{}}
	out, omit, err := pass.value(ctx, attrs)
	if err != nil {
		return nil, err
	}
	if omit {
		return map[string]interface{}{}, nil
	}
	return out.(map[string]interface{}), nil
}

// MaterializeValue resolves a single value, which may be a resolver, a
// literal, or a nested structure. Used for hook arguments. The second
// return is false when the value resolved to NoValue.
func MaterializeValue(ctx context.Context, rc *stack.ResolveContext, v interface{}) (interface{}, bool, error) {
	pass := &materializePass{rc: rc, cache: map[stack.Resolver]cached{}}
	out, omit, err := pass.value(ctx, v)
	if err != nil {
		return nil, false, err
	}
	return out, !omit, nil
}

type cached struct {
	value interface{}
	omit  bool
}

type materializePass struct {
	rc    *stack.ResolveContext
	cache map[stack.Resolver]cached
}

// value materializes one value. The second return is true when the value
// resolved to NoValue and its entry must be dropped from the container.
func (p *materializePass) value(ctx context.Context, v interface{}) (interface{}, bool, error) {
	switch t := v.(type) {
	case stack.Resolver:
		if c, ok := p.cache[t]; ok {
			return c.value, c.omit, nil
		}
		resolved, err := t.Resolve(ctx, p.rc)
		if err != nil {
			return nil, false, err
		}
		if resolved == stack.NoValue {
			p.cache[t] = cached{omit: true}
			return nil, true, nil
		}
		// A resolver may return a structure that itself contains resolvers.
		out, omit, err := p.value(ctx, resolved)
		if err != nil {
			return nil, false, err
		}
		p.cache[t] = cached{value: out, omit: omit}
		return out, omit, nil

	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			m, omit, err := p.value(ctx, e)
			if err != nil {
				return nil, false, err
			}
			if omit {
				continue
			}
			out[k] = m
		}
		return out, false, nil

	case []interface{}:
		out := make([]interface{}, 0, len(t))
		for _, e := range t {
			m, omit, err := p.value(ctx, e)
			if err != nil {
				return nil, false, err
			}
			if omit {
				continue
			}
			out = append(out, m)
		}
		return out, false, nil

	default:
		return v, false, nil
	}
}
