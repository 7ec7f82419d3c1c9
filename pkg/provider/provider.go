// Package provider defines the boundary contract with the external
// infrastructure API. The engine calls these operations but does not
// implement the wire protocol; production clients live behind this
// interface and every call is synchronous from the worker's perspective.
package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrNotFound is returned by Describe and Outputs when the stack does not
// exist remotely.
var ErrNotFound = errors.New("stack not found")

// ErrNoChanges is returned by Update when the submitted configuration
// matches what is deployed. Idempotent launch-style operations treat it as
// success.
var ErrNoChanges = errors.New("no changes to deploy")

// Description is the remote view of a deployed stack.
type Description struct {
	Name      string
	Status    string
	Outputs   map[string]string
	UpdatedAt time.Time
}

// Provider is the capability set the operation runner consumes. Calls may
// poll internally; they return only once the remote operation has reached a
// terminal state. Implementations must be safe for concurrent use.
type Provider interface {
	Create(ctx context.Context, name string, payload []byte, params map[string]interface{}) error
	Update(ctx context.Context, name string, payload []byte, params map[string]interface{}) error
	Delete(ctx context.Context, name string) error
	Describe(ctx context.Context, name string) (*Description, error)
	Outputs(ctx context.Context, name string) (map[string]string, error)
	Validate(ctx context.Context, payload []byte) error
	Diff(ctx context.Context, name string, payload []byte, params map[string]interface{}) (string, error)
}

// FactoryFunc constructs a provider from flat configuration.
type FactoryFunc func(config map[string]string) (Provider, error)

var (
	registryMu sync.RWMutex
	factories  = make(map[string]FactoryFunc)
)

// Register makes a provider implementation available by name. Called from
// implementation package init functions.
func Register(name string, f FactoryFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = f
}

// New constructs the provider registered under name.
func New(name string, config map[string]string) (Provider, error) {
	registryMu.RLock()
	f, ok := factories[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (available: %v)", name, names())
	}
	return f(config)
}

func names() []string {
	out := make([]string, 0, len(factories))
	for name := range factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
