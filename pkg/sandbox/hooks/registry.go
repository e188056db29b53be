package hooks

import (
	"fmt"
	"sync"
)

// Registry resolves the sandbox ID in a receiver expression to its runtime.
// Callers construct and own registries; there is no package-level instance.
type Registry struct {
	mu       sync.RWMutex
	runtimes map[string]*Runtime
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{runtimes: make(map[string]*Runtime)}
}

// Register adds a runtime. IDs must be unique.
func (g *Registry) Register(rt *Runtime) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.runtimes[rt.ID()]; exists {
		return fmt.Errorf("sandbox %s is already registered", rt.ID())
	}
	g.runtimes[rt.ID()] = rt
	return nil
}

// Get returns the runtime of a sandbox ID.
func (g *Registry) Get(id string) (*Runtime, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	rt, ok := g.runtimes[id]
	return rt, ok
}

// Remove unregisters a sandbox ID.
func (g *Registry) Remove(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.runtimes, id)
}

// Len returns the number of registered runtimes.
func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.runtimes)
}
