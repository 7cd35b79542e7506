// SPDX-License-Identifier: Apache-2.0

package resolve

import "github.com/jllopis/telos/pkg/store"

// Entry records one executed capability and the context versions it wrote.
type Entry struct {
	Capability string      `json:"capability"`
	Produced   []store.Ref `json:"produced,omitempty"`
}

// History is the ordered record of capabilities executed during a run.
// The reactive resolver consults it so a capability is selected at most
// once per run and refresh demands can tell stale writes from new ones.
type History []Entry

// Ran reports whether the capability already executed this run.
func (h History) Ran(id string) bool {
	for _, e := range h {
		if e.Capability == id {
			return true
		}
	}
	return false
}

// Produced reports whether any executed capability wrote the given type
// during this run.
func (h History) Produced(t store.TypeName) bool {
	for _, e := range h {
		for _, ref := range e.Produced {
			if ref.Type == t {
				return true
			}
		}
	}
	return false
}

// Capabilities returns the executed capability ids in order.
func (h History) Capabilities() []string {
	out := make([]string, len(h))
	for i, e := range h {
		out[i] = e.Capability
	}
	return out
}
