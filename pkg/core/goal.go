// SPDX-License-Identifier: Apache-2.0

package core

import "github.com/jllopis/telos/pkg/store"

// Goal is what an orchestrator run must achieve: a set of context types
// that have to be present when the run ends.
type Goal struct {
	// Require lists the context types the run must produce or find.
	Require []store.TypeName

	// Refresh lists types that must be re-produced during this run even if
	// an instance is already in the store.
	Refresh []store.TypeName

	// Terminal optionally names a capability to run last, once its own
	// requirements resolve. Terminal capabilities may provide nothing;
	// they typically hand the final answer to the host.
	Terminal string
}

// Empty reports whether the goal demands nothing.
func (g Goal) Empty() bool {
	return len(g.Require) == 0 && len(g.Refresh) == 0 && g.Terminal == ""
}

// Wants returns the union of Require and Refresh, deduplicated, in
// declaration order.
func (g Goal) Wants() []store.TypeName {
	seen := make(map[store.TypeName]bool, len(g.Require)+len(g.Refresh))
	out := make([]store.TypeName, 0, len(g.Require)+len(g.Refresh))
	for _, t := range g.Require {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	for _, t := range g.Refresh {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// NeedsRefresh reports whether the goal demands a fresh instance of the type.
func (g Goal) NeedsRefresh(t store.TypeName) bool {
	for _, r := range g.Refresh {
		if r == t {
			return true
		}
	}
	return false
}
