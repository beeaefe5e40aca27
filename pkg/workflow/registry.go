package workflow

import (
	"slices"
	"sync"
)

// Registry maps node identifiers to behaviors. It is safe for concurrent
// use and read-mostly.
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]Behavior
	fallback Behavior
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Behavior)}
}

// Register adds or replaces the behavior for id.
func (r *Registry) Register(id string, b Behavior) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = b
	return r
}

// Lookup returns the behavior registered under exactly id.
func (r *Registry) Lookup(id string) (Behavior, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.entries[id]
	return b, ok
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.Lookup(id)
	return ok
}

// IDs returns the registered identifiers, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Len returns the number of registered identifiers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// SetDefault sets the behavior of the single-node pipeline used when a
// document yields no registered nodes.
func (r *Registry) SetDefault(b Behavior) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = b
	return r
}

// Default returns the behavior set by SetDefault.
func (r *Registry) Default() (Behavior, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fallback, r.fallback != nil
}
