// Copyright 2026 © The Telos Authors
// SPDX-License-Identifier: Apache-2.0

package testing

import (
	stdtesting "testing"

	"github.com/jllopis/telos/pkg/core"
	"github.com/jllopis/telos/pkg/registry"
	"github.com/jllopis/telos/pkg/store"
)

// World is a pre-wired registry and store for orchestration tests.
type World struct {
	t   *stdtesting.T
	Reg *registry.Registry
	St  *store.Store
}

// NewWorld creates an empty world.
func NewWorld(t *stdtesting.T) *World {
	t.Helper()
	return &World{t: t, Reg: registry.New(), St: store.New()}
}

// Type registers a context type with a single free-form "v" field.
func (w *World) Type(name store.TypeName, scope store.Scope) *World {
	w.t.Helper()
	err := w.St.RegisterType(store.ContextType{
		Name:   name,
		Scope:  scope,
		Schema: store.Schema{Fields: map[string]store.FieldKind{"v": store.FieldAny}},
	})
	if err != nil {
		w.t.Fatalf("register type %s: %v", name, err)
	}
	return w
}

// Capability registers a capability, failing the test on conflicts.
func (w *World) Capability(c core.Capability) *World {
	w.t.Helper()
	if err := w.Reg.Register(c); err != nil {
		w.t.Fatalf("register capability %s: %v", c.ID(), err)
	}
	return w
}

// Seed writes an initial context value into the given scope.
func (w *World) Seed(name store.TypeName, scope store.Scope, value any) *World {
	w.t.Helper()
	_, err := w.St.Put(store.Context{Type: name, Payload: map[string]any{"v": value}}, scope)
	if err != nil {
		w.t.Fatalf("seed %s: %v", name, err)
	}
	return w
}
