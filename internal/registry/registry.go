package registry

import (
	"fmt"
	"sync"

	"infometis/internal/api"
)

// Registry maps component names to deployer factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]api.DeployerFactory
	order     []string
}

// New creates an empty component registry.
func New() *Registry {
	return &Registry{
		factories: make(map[string]api.DeployerFactory),
	}
}

// Register adds a factory under name. Registering the same name twice fails
// with api.DuplicateComponentError.
func (r *Registry) Register(name string, factory api.DeployerFactory) error {
	if name == "" {
		return fmt.Errorf("component has empty name")
	}
	if factory == nil {
		return fmt.Errorf("cannot register nil factory for component %s", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return &api.DuplicateComponentError{Name: name}
	}

	r.factories[name] = factory
	r.order = append(r.order, name)
	return nil
}

// Resolve builds a deployer for name. Factory errors are returned as is.
func (r *Registry) Resolve(name string, env api.Environment, cfg map[string]any) (api.Deployer, error) {
	r.mu.RLock()
	factory, exists := r.factories[name]
	r.mu.RUnlock()

	if !exists {
		return nil, &api.UnknownComponentError{Name: name}
	}
	// The factory runs outside the lock; factories may be slow to build clients.
	return factory(env, cfg)
}

// List returns the registered names in registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.factories[name]
	return exists
}
