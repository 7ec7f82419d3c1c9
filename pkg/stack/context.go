package stack

import "context"

type resolveContextKey struct{}

// WithResolveContext attaches the run's resolution settings to ctx so that
// hooks, which only receive a context, can resolve their arguments.
func WithResolveContext(ctx context.Context, rc *ResolveContext) context.Context {
	return context.WithValue(ctx, resolveContextKey{}, rc)
}

// ResolveContextFrom returns the resolution settings attached to ctx, or a
// zero-value context when none was attached.
func ResolveContextFrom(ctx context.Context) *ResolveContext {
	if rc, ok := ctx.Value(resolveContextKey{}).(*ResolveContext); ok {
		return rc
	}
	return &ResolveContext{}
}
