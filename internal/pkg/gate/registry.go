package gate

import (
	"sync"
	"time"
)

// Registry keeps one Gate per browser session id.
type Registry struct {
	checker Checker

	mu    sync.Mutex
	gates map[string]*Gate
}

func NewRegistry(checker Checker) *Registry {
	return &Registry{checker: checker, gates: make(map[string]*Gate)}
}

// Get returns the gate for sessionID, creating an empty one if needed. Every
// Get counts as activity for Sweep.
func (r *Registry) Get(sessionID string) *Gate {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.gates[sessionID]
	if !ok {
		g = New(r.checker)
		r.gates[sessionID] = g
		return g
	}
	g.touch()
	return g
}

// Lookup returns the gate for sessionID without creating one.
func (r *Registry) Lookup(sessionID string) (*Gate, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.gates[sessionID]
	return g, ok
}

// Remove clears and forgets the gate for sessionID.
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	g, ok := r.gates[sessionID]
	delete(r.gates, sessionID)
	r.mu.Unlock()
	if ok {
		g.SessionCleared()
	}
}

// Sweep drops gates untouched for longer than maxIdle and returns how many.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, g := range r.gates {
		if g.lastTouched().Before(cutoff) {
			delete(r.gates, id)
			n++
		}
	}
	return n
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.gates)
}
