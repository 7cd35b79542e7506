// SPDX-License-Identifier: Apache-2.0

package store

import "time"

// Scope is the lifetime partition of a context instance.
type Scope string

const (
	// ScopeTurn contexts are cleared at the start of each conversation turn.
	ScopeTurn Scope = "turn"

	// ScopeSession contexts survive across turns until the session ends.
	ScopeSession Scope = "session"
)

// Valid reports whether the scope is one of the known partitions.
func (s Scope) Valid() bool {
	return s == ScopeTurn || s == ScopeSession
}

// Context is a typed, immutable-once-produced data record.
// Version is assigned by the store on write and increases monotonically
// per type and scope, across turn clears.
type Context struct {
	Type       TypeName       `json:"type"`
	Scope      Scope          `json:"scope"`
	Version    int            `json:"version"`
	Payload    map[string]any `json:"payload"`
	ProducedBy string         `json:"produced_by,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Clone returns a copy with its own payload map. Nested values are shared;
// producers must not mutate payloads after handing them to the store.
func (c Context) Clone() Context {
	out := c
	out.Payload = make(map[string]any, len(c.Payload))
	for k, v := range c.Payload {
		out.Payload[k] = v
	}
	return out
}

// Ref identifies a concrete context version, used in plan step records
// and execution history.
type Ref struct {
	Type    TypeName `json:"type"`
	Scope   Scope    `json:"scope"`
	Version int      `json:"version"`
}

// RefOf returns the reference for a context instance.
func RefOf(c Context) Ref {
	return Ref{Type: c.Type, Scope: c.Scope, Version: c.Version}
}
