package store

import (
	"context"
	"sync"

	"infometis/internal/api"
)

// StackStore persists stack deployments. Implementations return copies;
// callers own what they get back and must Save to publish changes.
type StackStore interface {
	// Save inserts or replaces the stack with the same ID.
	Save(ctx context.Context, stack *api.StackDeployment) error
	// Get returns api.StackNotFoundError for unknown ids.
	Get(ctx context.Context, id string) (*api.StackDeployment, error)
	// List returns stacks in the order they were first saved.
	List(ctx context.Context) ([]*api.StackDeployment, error)
	// Delete removes the stack; unknown ids return api.StackNotFoundError.
	Delete(ctx context.Context, id string) error
	Close() error
}

// MemoryStore keeps stacks in process memory. Everything is lost on exit.
type MemoryStore struct {
	mu     sync.RWMutex
	stacks map[string]*api.StackDeployment
	order  []string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{stacks: make(map[string]*api.StackDeployment)}
}

func (m *MemoryStore) Save(ctx context.Context, stack *api.StackDeployment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.stacks[stack.ID]; !exists {
		m.order = append(m.order, stack.ID)
	}
	m.stacks[stack.ID] = Clone(stack)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*api.StackDeployment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stack, ok := m.stacks[id]
	if !ok {
		return nil, &api.StackNotFoundError{ID: id}
	}
	return Clone(stack), nil
}

func (m *MemoryStore) List(ctx context.Context) ([]*api.StackDeployment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*api.StackDeployment, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, Clone(m.stacks[id]))
	}
	return out, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.stacks[id]; !ok {
		return &api.StackNotFoundError{ID: id}
	}
	delete(m.stacks, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemoryStore) Close() error { return nil }

// Clone copies a stack deployment deeply enough that mutating component
// records of the copy never affects the original. Spec maps are shared;
// they are immutable once a deployment starts.
func Clone(s *api.StackDeployment) *api.StackDeployment {
	if s == nil {
		return nil
	}
	c := *s
	c.Components = make([]*api.ComponentDeployment, len(s.Components))
	for i, comp := range s.Components {
		cc := *comp
		if comp.Result != nil {
			r := *comp.Result
			r.Warnings = append([]string(nil), comp.Result.Warnings...)
			cc.Result = &r
		}
		c.Components[i] = &cc
	}
	return &c
}
