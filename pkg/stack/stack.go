// Package stack defines the unit-of-work model for stackctl.
//
// A Stack is one independently deployable piece of infrastructure: an
// identity, an open attribute map whose values may be deferred Resolvers,
// and a derived dependency set. Stacks are constructed once per invocation
// and are immutable afterwards; only resolver resolution happens later.
package stack

import (
	"context"
	"sort"
	"time"
)

// NoValue is the sentinel a Resolver returns to mean "this entry has no
// value": the key or element holding it is omitted entirely from the
// materialized structure.
var NoValue = noValue{}

type noValue struct{}

// Resolver is a deferred-computation placeholder for a configuration value.
//
// Bind attaches the owning stack before any dependency query; resolvers
// that contribute graph dependencies must be able to report them from
// Dependencies immediately after Bind returns.
type Resolver interface {
	Bind(s *Stack)
	Dependencies() []string
	Resolve(ctx context.Context, rc *ResolveContext) (interface{}, error)
}

// Hook is a side-effecting action bracketing an operation on a stack.
// Hooks run synchronously in configured order and do not influence the
// dependency graph unless they also implement DependencyReporter.
type Hook interface {
	Bind(s *Stack)
	Run(ctx context.Context) error
}

// DependencyReporter is optionally implemented by hooks whose argument
// carries a resolver that references another stack.
type DependencyReporter interface {
	Dependencies() []string
}

// OutputFetcher retrieves a deployed stack's output value. Implementations
// wrap the external provider client.
type OutputFetcher interface {
	GetOutput(ctx context.Context, stack, key string) (string, error)
}

// ResolveContext carries the per-run settings resolvers see.
type ResolveContext struct {
	// Outputs fetches other stacks' outputs for cross-stack references.
	Outputs OutputFetcher

	// Placeholders enables best-effort placeholder substitution when a
	// cross-stack reference cannot be resolved yet. Set explicitly by the
	// caller per command, never inferred.
	Placeholders bool

	// RunID identifies the invocation. Exported to hook environments.
	RunID string
}

// Config is the fully-merged per-stack configuration handed to New by the
// configuration loader.
type Config struct {
	Name              string
	Attributes        map[string]interface{}
	DependsOn         []string
	Hooks             map[string][]Hook
	Template          string
	Ignore            bool
	Obsolete          bool
	Timeout           time.Duration
	RollbackOnFailure bool
}

// Stack is the node type of the dependency graph.
type Stack struct {
	// Name is the unique, hierarchical identity (e.g. "network/vpc").
	Name string

	// Attributes holds configuration keys whose values may be literals,
	// Resolvers, or nested mappings/sequences containing either.
	Attributes map[string]interface{}

	// Template references the payload source for deploy-type operations.
	Template string

	// Ignore excludes the stack from bulk operations.
	Ignore bool

	// Obsolete marks the stack for pruning.
	Obsolete bool

	// Timeout bounds a single operation on this stack. Zero means no limit.
	Timeout time.Duration

	// RollbackOnFailure requests a compensating delete when a create
	// times out or fails partway.
	RollbackOnFailure bool

	hooks        map[string][]Hook
	dependencies []string
}

// New constructs a stack, binds every resolver and hook reachable from its
// configuration, and collects the dependency set: the explicit DependsOn
// list unioned with whatever the resolvers and hooks report. Collection is
// deterministic (sorted key order) and self-references are stripped.
func New(cfg Config) *Stack {
	s := &Stack{
		Name:              cfg.Name,
		Attributes:        cfg.Attributes,
		Template:          cfg.Template,
		Ignore:            cfg.Ignore,
		Obsolete:          cfg.Obsolete,
		Timeout:           cfg.Timeout,
		RollbackOnFailure: cfg.RollbackOnFailure,
		hooks:             cfg.Hooks,
	}
	if s.Attributes == nil {
		s.Attributes = map[string]interface{}{}
	}
	if s.hooks == nil {
		s.hooks = map[string][]Hook{}
	}

	deps := map[string]bool{}
	for _, d := range cfg.DependsOn {
		deps[d] = true
	}

	WalkResolvers(s.Attributes, func(r Resolver) {
		r.Bind(s)
		for _, d := range r.Dependencies() {
			deps[d] = true
		}
	})

	for _, point := range sortedKeys(s.hooks) {
		for _, h := range s.hooks[point] {
			h.Bind(s)
			if dr, ok := h.(DependencyReporter); ok {
				for _, d := range dr.Dependencies() {
					deps[d] = true
				}
			}
		}
	}

	delete(deps, s.Name)
	s.dependencies = make([]string, 0, len(deps))
	for d := range deps {
		s.dependencies = append(s.dependencies, d)
	}
	sort.Strings(s.dependencies)

	return s
}

// Dependencies returns the derived dependency identities, sorted.
func (s *Stack) Dependencies() []string {
	out := make([]string, len(s.dependencies))
	copy(out, s.dependencies)
	return out
}

// HooksFor returns the hooks configured for a hook point such as
// "before_create", in configured order.
func (s *Stack) HooksFor(point string) []Hook {
	return s.hooks[point]
}

// WalkResolvers visits every Resolver reachable from v, depth-first through
// nested mappings and sequences. Map keys are visited in sorted order so
// binding and dependency collection are deterministic.
func WalkResolvers(v interface{}, fn func(Resolver)) {
	switch t := v.(type) {
	case Resolver:
		fn(t)
	case map[string]interface{}:
		for _, k := range sortedMapKeys(t) {
			WalkResolvers(t[k], fn)
		}
	case []interface{}:
		for _, e := range t {
			WalkResolvers(e, fn)
		}
	}
}

func sortedKeys(m map[string][]Hook) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedMapKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
