// Package resolver implements the value-resolution protocol: a registry of
// tag-keyed resolver factories, the built-in resolvers, and materialization
// of stack attributes into plain values.
package resolver

import (
	"fmt"
	"sort"
	"sync"

	"github.com/stackforge/stackctl/pkg/stack"
)

// Factory produces a resolver bound to a parsed configuration argument.
// The argument may be a literal, a mapping, or a sequence, and may itself
// contain nested resolvers.
type Factory func(arg interface{}) (stack.Resolver, error)

// Registry maps resolver tags to factories. Built-ins and user extensions
// register through the same table; no reflection, no inheritance.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under a tag, replacing any previous registration.
func (r *Registry) Register(tag string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[tag] = f
}

// Create instantiates the resolver registered under tag.
func (r *Registry) Create(tag string, arg interface{}) (stack.Resolver, error) {
	r.mu.RLock()
	f, ok := r.factories[tag]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown resolver %q", tag)
	}
	return f(arg)
}

// Tags returns the registered tags, sorted.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.factories))
	for tag := range r.factories {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// DefaultRegistry returns a registry with the resolvers that need no
// external clients: env, file, stack_output, no_value. Cloud-backed
// resolvers are registered by the caller with their session cache.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("env", NewEnvVar)
	r.Register("file", NewFileContents)
	r.Register("stack_output", NewStackOutput)
	r.Register("no_value", NewNoValue)
	return r
}
