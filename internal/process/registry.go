package process

import (
	"fmt"
	"sort"
	"sync"
)

// Builder constructs a process instance on demand.
type Builder func() (Process, error)

// Registry maintains known process builders.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: map[string]Builder{}}
}

// Register installs a process builder. Returns an error if the ID exists.
func (r *Registry) Register(id string, builder Builder) error {
	if id == "" {
		return fmt.Errorf("process: id is required")
	}
	if builder == nil {
		return fmt.Errorf("process: builder is required for %s", id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.builders[id]; exists {
		return fmt.Errorf("process: %s already registered", id)
	}
	r.builders[id] = builder
	return nil
}

// MustRegister panics if registration fails.
func (r *Registry) MustRegister(id string, builder Builder) {
	if err := r.Register(id, builder); err != nil {
		panic(err)
	}
}

// Resolve constructs a process by ID and validates its info block.
func (r *Registry) Resolve(id string) (Process, error) {
	r.mu.RLock()
	builder, ok := r.builders[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("process: unknown id %s", id)
	}
	proc, err := builder()
	if err != nil {
		return nil, err
	}
	if err := proc.Info().Validate(); err != nil {
		return nil, err
	}
	return proc, nil
}

// IDs returns a sorted list of registered process identifiers.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.builders))
	for id := range r.builders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
