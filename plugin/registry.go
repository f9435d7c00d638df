package plugin

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds registered plugins by ID.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]*Plugin
}

// DefaultRegistry is the global plugin registry. Publisher packages add to
// it from init.
var DefaultRegistry = NewRegistry()

// NewRegistry creates an empty plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		plugins: make(map[string]*Plugin),
	}
}

// Register adds a plugin. Registering an ID twice panics, since it means two
// packages claim the same publisher.
func (r *Registry) Register(p *Plugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == "" {
		panic("plugin: registering plugin without ID")
	}
	if _, dup := r.plugins[p.ID]; dup {
		panic(fmt.Sprintf("plugin: %q registered twice", p.ID))
	}
	r.plugins[p.ID] = p
}

// Get retrieves a plugin by ID.
func (r *Registry) Get(id string) (*Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlugin, id)
	}
	return p, nil
}

// MustGet is like Get but panics.
func (r *Registry) MustGet(id string) *Plugin {
	p, err := r.Get(id)
	if err != nil {
		panic(err)
	}
	return p
}

// List returns all registered plugin IDs, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.plugins))
	for id := range r.plugins {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Register adds a plugin to the default registry.
func Register(p *Plugin) {
	DefaultRegistry.Register(p)
}

// Get retrieves a plugin from the default registry.
func Get(id string) (*Plugin, error) {
	return DefaultRegistry.Get(id)
}

// MustGet retrieves a plugin from the default registry or panics.
func MustGet(id string) *Plugin {
	return DefaultRegistry.MustGet(id)
}

// List returns the IDs in the default registry.
func List() []string {
	return DefaultRegistry.List()
}
