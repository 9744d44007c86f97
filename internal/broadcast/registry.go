package broadcast

import (
	"sync"

	"github.com/google/uuid"
)

// Registry is the set of connections the bus fans out to.
type Registry struct {
	mu    sync.RWMutex
	conns map[uuid.UUID]*Conn
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[uuid.UUID]*Conn)}
}

func (r *Registry) Add(c *Conn) {
	r.mu.Lock()
	r.conns[c.ID()] = c
	r.mu.Unlock()
}

// Remove reports whether id was present. Removing an unknown id is a no-op.
func (r *Registry) Remove(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[id]; !ok {
		return false
	}
	delete(r.conns, id)
	return true
}

// Snapshot returns the membership at call time. Later Add/Remove calls do not
// affect the returned slice.
func (r *Registry) Snapshot() []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Conn, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}

func (r *Registry) Get(id uuid.UUID) (*Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	return c, ok
}

func (r *Registry) Contains(id uuid.UUID) bool {
	_, ok := r.Get(id)
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
