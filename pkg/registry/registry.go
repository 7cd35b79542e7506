// SPDX-License-Identifier: Apache-2.0
// Package registry holds the catalog of registered capabilities.
package registry

import (
	"sync"

	"github.com/jllopis/telos/pkg/core"
	"github.com/jllopis/telos/pkg/errors"
	"github.com/jllopis/telos/pkg/store"
)

// Registry is the capability catalog. Registration order is significant:
// it is the deterministic tie-break used when the resolver must order
// otherwise incomparable capabilities.
type Registry struct {
	mu    sync.RWMutex
	byID  map[string]core.Capability
	order []string
	// providers maps a context type to capability ids in registration order.
	providers map[store.TypeName][]string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		byID:      make(map[string]core.Capability),
		providers: make(map[store.TypeName][]string),
	}
}

// Register adds a capability to the catalog. A duplicate id is a
// configuration error, fatal at setup.
func (r *Registry) Register(c core.Capability) error {
	if c == nil || c.ID() == "" {
		return errors.New(errors.CodeRegistration, "capability id is required", nil)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[c.ID()]; exists {
		return errors.Newf(errors.CodeRegistration, "capability %q already registered", c.ID())
	}
	r.byID[c.ID()] = c
	r.order = append(r.order, c.ID())
	for _, typ := range c.Provides() {
		r.providers[typ] = append(r.providers[typ], c.ID())
	}
	return nil
}

// MustRegister registers a capability and panics on error. Intended for
// static setup code where a duplicate id is a programming mistake.
func (r *Registry) MustRegister(c core.Capability) {
	if err := r.Register(c); err != nil {
		panic(err)
	}
}

// Get looks up a capability by id.
func (r *Registry) Get(id string) (core.Capability, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	if !ok {
		return nil, errors.Newf(errors.CodeNotFound, "capability %q not found", id)
	}
	return c, nil
}

// ProvidersOf returns the capabilities declared to produce a context type,
// in registration order.
func (r *Registry) ProvidersOf(typ store.TypeName) []core.Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.providers[typ]
	out := make([]core.Capability, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.byID[id])
	}
	return out
}

// Index returns the registration position of a capability id, or -1.
// The resolver uses it for stable ordering.
func (r *Registry) Index(id string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i, existing := range r.order {
		if existing == id {
			return i
		}
	}
	return -1
}

// Capabilities returns all registered capabilities in registration order.
func (r *Registry) Capabilities() []core.Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.Capability, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Len returns the number of registered capabilities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
