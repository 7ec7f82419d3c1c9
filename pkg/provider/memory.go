package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

func init() {
	Register("memory", func(config map[string]string) (Provider, error) {
		return NewMemory(), nil
	})
}

// Memory is an in-process provider used for tests and local dry runs. It
// records payloads and derives outputs from string-valued parameters.
type Memory struct {
	mu     sync.Mutex
	stacks map[string]*memoryStack
}

type memoryStack struct {
	id        string
	payload   []byte
	params    map[string]interface{}
	outputs   map[string]string
	updatedAt time.Time
}

// NewMemory creates an empty in-memory provider.
func NewMemory() *Memory {
	return &Memory{stacks: make(map[string]*memoryStack)}
}

func (m *Memory) Create(ctx context.Context, name string, payload []byte, params map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.stacks[name]; exists {
		return fmt.Errorf("stack %q already exists", name)
	}
	m.stacks[name] = &memoryStack{
		id:        uuid.NewString(),
		payload:   payload,
		params:    params,
		outputs:   outputsFromParams(params),
		updatedAt: time.Now(),
	}
	return nil
}

func (m *Memory) Update(ctx context.Context, name string, payload []byte, params map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, exists := m.stacks[name]
	if !exists {
		return ErrNotFound
	}
	if string(s.payload) == string(payload) && fmt.Sprint(s.params) == fmt.Sprint(params) {
		return ErrNoChanges
	}
	s.payload = payload
	s.params = params
	s.outputs = outputsFromParams(params)
	s.updatedAt = time.Now()
	return nil
}

func (m *Memory) Delete(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.stacks[name]; !exists {
		return ErrNotFound
	}
	delete(m.stacks, name)
	return nil
}

func (m *Memory) Describe(ctx context.Context, name string) (*Description, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, exists := m.stacks[name]
	if !exists {
		return nil, ErrNotFound
	}
	return &Description{
		Name:      name,
		Status:    "DEPLOYED",
		Outputs:   copyOutputs(s.outputs),
		UpdatedAt: s.updatedAt,
	}, nil
}

func (m *Memory) Outputs(ctx context.Context, name string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, exists := m.stacks[name]
	if !exists {
		return nil, ErrNotFound
	}
	return copyOutputs(s.outputs), nil
}

func (m *Memory) Validate(ctx context.Context, payload []byte) error {
	if len(payload) == 0 {
		return fmt.Errorf("empty template payload")
	}
	return nil
}

func (m *Memory) Diff(ctx context.Context, name string, payload []byte, params map[string]interface{}) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, exists := m.stacks[name]
	if !exists {
		return fmt.Sprintf("stack %q would be created", name), nil
	}
	if string(s.payload) == string(payload) && fmt.Sprint(s.params) == fmt.Sprint(params) {
		return "no changes", nil
	}
	return fmt.Sprintf("stack %q would be updated", name), nil
}

// SetOutputs overrides a deployed stack's outputs; test helper.
func (m *Memory) SetOutputs(name string, outputs map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, exists := m.stacks[name]; exists {
		s.outputs = copyOutputs(outputs)
	}
}

func outputsFromParams(params map[string]interface{}) map[string]string {
	out := make(map[string]string, len(params))
	for k, v := range params {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

func copyOutputs(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
