// Package presence tracks the set of currently connected clients and
// reports the global presence count.
package presence

import (
	"sync"

	"github.com/samber/lo"
)

// Registry records open connections by identifier. It is safe for
// concurrent use.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]struct{}
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]struct{})}
}

// Add records a connection and returns the updated presence count.
func (r *Registry) Add(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[id] = struct{}{}
	return len(r.conns)
}

// Remove forgets a connection and returns the updated presence count.
// Removing an unknown connection is a no-op.
func (r *Registry) Remove(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.conns, id)
	return len(r.conns)
}

// Count returns the number of tracked connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Contains reports whether the connection is currently tracked.
func (r *Registry) Contains(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.conns[id]
	return ok
}

// IDs returns a snapshot of all tracked connection identifiers in no
// particular order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Keys(r.conns)
}
