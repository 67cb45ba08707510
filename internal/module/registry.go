package module

import (
	"fmt"
	"sync"

	"mixdown/internal/services"
)

// Registry maps module identifiers to registered modules. It is populated at
// startup and append-only afterwards, so reads on the dispatch path never
// contend with registration.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	modules map[string]*Module
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]*Module)}
}

// Register adds a module. Identifiers are unique; registering the same id
// twice fails.
func (r *Registry) Register(desc Descriptor) error {
	mod, err := newModule(desc)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.modules[mod.ID]; exists {
		return services.Wrap(services.ErrDuplicateModule, "module", "register",
			fmt.Sprintf("module %s already registered", mod.ID), nil)
	}
	r.modules[mod.ID] = mod
	r.order = append(r.order, mod.ID)
	return nil
}

// Get resolves a module by id.
func (r *Registry) Get(id string) (*Module, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mod, ok := r.modules[id]
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "module", "get",
			fmt.Sprintf("module %s", id), nil)
	}
	return mod, nil
}

// List returns every module in registration order.
func (r *Registry) List() []*Module {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Module, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.modules[id])
	}
	return out
}

// Len returns the number of registered modules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
