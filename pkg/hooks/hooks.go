// Package hooks implements action hooks: side-effecting work bracketing an
// operation on a stack, registered by tag the same way resolvers are.
package hooks

import (
	"fmt"
	"sort"
	"sync"

	"github.com/stackforge/stackctl/pkg/stack"
)

// Factory produces a hook bound to a parsed configuration argument. The
// argument may contain nested resolvers.
type Factory func(arg interface{}) (stack.Hook, error)

// Registry maps hook tags to factories.
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

// Create instantiates the hook registered under tag.
func (r *Registry) Create(tag string, arg interface{}) (stack.Hook, error) {
	r.mu.RLock()
	f, ok := r.factories[tag]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown hook %q", tag)
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

// DefaultRegistry returns a registry with the built-in hooks.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("cmd", NewCmd)
	return r
}
