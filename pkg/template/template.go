// Package template fetches the opaque infrastructure-description payload a
// deploy-type operation submits to the provider. Only source handling lives
// here; what the payload means is the provider's business.
package template

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Source fetches a payload from one kind of reference.
type Source interface {
	// Fetch returns the payload bytes for a reference.
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// Registry dispatches a template reference to the matching source by
// scheme: "git::..." to git, "s3://..." to s3, everything else to file.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]Source
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]Source)}
}

// Register adds a source under a scheme name.
func (r *Registry) Register(scheme string, s Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[scheme] = s
}

// Fetch resolves ref through the source matching its scheme.
func (r *Registry) Fetch(ctx context.Context, ref string) ([]byte, error) {
	scheme := DetectScheme(ref)
	r.mu.RLock()
	s, ok := r.sources[scheme]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no template source registered for %q (available: %v)", scheme, r.schemes())
	}
	return s.Fetch(ctx, ref)
}

func (r *Registry) schemes() []string {
	out := make([]string, 0, len(r.sources))
	for scheme := range r.sources {
		out = append(out, scheme)
	}
	sort.Strings(out)
	return out
}

// DetectScheme determines which source a template reference belongs to.
func DetectScheme(ref string) string {
	switch {
	case strings.HasPrefix(ref, "git::"):
		return "git"
	case strings.HasPrefix(ref, "s3://"):
		return "s3"
	default:
		return "file"
	}
}
