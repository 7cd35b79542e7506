// SPDX-License-Identifier: Apache-2.0

// Package resolve turns goals into executable capability orderings.
//
// Resolution works backward from the goal: every wanted context type that
// the store cannot already satisfy needs a provider, every provider's
// unmet requirements need providers of their own, and so on until the
// frontier is fully grounded in the store. The resulting capability graph
// is checked for cycles and ordered into levels; capabilities within a
// level share no dependency edge and may run concurrently.
//
// Both orchestration modes use the same resolver. Plan computes the whole
// ordering up front; Next picks a single runnable capability against the
// live store and the run history.
package resolve

import (
	"github.com/jllopis/telos/pkg/core"
	"github.com/jllopis/telos/pkg/errors"
	"github.com/jllopis/telos/pkg/registry"
	"github.com/jllopis/telos/pkg/store"
)

// Resolver resolves goals against a capability registry and a context store.
type Resolver struct {
	reg *registry.Registry
	st  *store.Store
	tie TieBreaker
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTieBreaker installs the provider selection policy used when more
// than one capability provides a contested type.
func WithTieBreaker(tb TieBreaker) Option {
	return func(r *Resolver) { r.tie = tb }
}

// New creates a resolver over the given registry and store.
func New(reg *registry.Registry, st *store.Store, opts ...Option) *Resolver {
	r := &Resolver{reg: reg, st: st}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolution is a complete ordered answer to a goal. Order is a valid
// topological ordering of Levels flattened front to back.
type Resolution struct {
	Order  []core.Capability
	Levels [][]core.Capability
}

// Empty reports whether the goal needed no capability at all.
func (r *Resolution) Empty() bool {
	return len(r.Order) == 0
}

// IDs returns the ordered capability ids, mostly for logs and tests.
func (r *Resolution) IDs() []string {
	return capabilityIDs(r.Order)
}

// Plan resolves the goal into a full execution ordering. A goal that the
// store already satisfies yields an empty resolution. Types named in the
// goal's Refresh list are treated as missing even when present, so their
// providers are always scheduled.
func (r *Resolver) Plan(goal core.Goal) (*Resolution, error) {
	satisfied := func(t store.TypeName) bool {
		return !goal.NeedsRefresh(t) && r.st.Has(t)
	}
	g, err := r.chain(goal, satisfied)
	if err != nil {
		return nil, err
	}
	if err := g.checkAcyclic(); err != nil {
		return nil, err
	}

	levels := g.levels(r.reg.Index)

	// A terminal capability runs last, alone, once everything else in
	// the plan had its chance to write. When the terminal was also
	// selected as a provider it must keep its topological position:
	// holding it back would order it after its own dependents.
	if goal.Terminal != "" && !g.providers[goal.Terminal] {
		levels = moveToTail(levels, goal.Terminal)
	}

	res := &Resolution{Levels: levels}
	for _, level := range levels {
		res.Order = append(res.Order, level...)
	}
	return res, nil
}

// Next selects the single capability to run now, given what the store
// holds and what already executed this run. It returns nil when the goal
// is satisfied, and a stalled resolution error when the goal is unmet but
// no registered capability can advance it.
func (r *Resolver) Next(goal core.Goal, h History) (core.Capability, error) {
	if r.Satisfied(goal, h) {
		return nil, nil
	}

	satisfied := func(t store.TypeName) bool {
		if !r.st.Has(t) {
			return false
		}
		if goal.NeedsRefresh(t) && !h.Produced(t) {
			return false
		}
		return true
	}
	g, err := r.chain(goal, satisfied)
	if err != nil {
		return nil, err
	}
	if err := g.checkAcyclic(); err != nil {
		return nil, err
	}

	wantsMet := true
	for _, t := range goal.Wants() {
		if !satisfied(t) {
			wantsMet = false
			break
		}
	}

	var best core.Capability
	for id, c := range g.nodes {
		if h.Ran(id) {
			continue
		}
		if goal.Terminal != "" && id == goal.Terminal && !wantsMet && !g.providers[id] {
			continue
		}
		if !runnable(c, satisfied) {
			continue
		}
		if best == nil || r.reg.Index(id) < r.reg.Index(best.ID()) {
			best = c
		}
	}
	if best != nil {
		return best, nil
	}

	return nil, errors.New(errors.CodeStalled,
		"goal is unmet but no capability can make progress", nil).
		WithContext("missing", missingTypes(goal, satisfied)).
		WithContext("executed", h.Capabilities())
}

// Satisfied reports whether the goal needs no further execution: every
// wanted type is present (and refreshed, where demanded) and the terminal
// capability, if any, already ran.
func (r *Resolver) Satisfied(goal core.Goal, h History) bool {
	for _, t := range goal.Wants() {
		if !r.st.Has(t) {
			return false
		}
		if goal.NeedsRefresh(t) && !h.Produced(t) {
			return false
		}
	}
	if goal.Terminal != "" && !h.Ran(goal.Terminal) {
		return false
	}
	return true
}

// chain performs the backward pass: it selects a provider for every
// unsatisfied type reachable from the goal and records the dependency
// edges between the selected capabilities. Provider selection is memoized
// per type, so a cyclic requirement closes an edge loop in the graph
// instead of recursing forever; the DFS pass reports it afterwards.
func (r *Resolver) chain(goal core.Goal, satisfied func(store.TypeName) bool) (*depGraph, error) {
	g := newDepGraph()
	selected := make(map[store.TypeName]string)

	var resolveType func(t store.TypeName) (string, error)
	var expand func(c core.Capability) error

	resolveType = func(t store.TypeName) (string, error) {
		if id, ok := selected[t]; ok {
			return id, nil
		}
		candidates := r.reg.ProvidersOf(t)
		var chosen core.Capability
		switch {
		case len(candidates) == 0:
			return "", errors.Newf(errors.CodeUnsatisfiable,
				"no capability provides %q and the context store does not hold it", t)
		case len(candidates) == 1:
			chosen = candidates[0]
		case r.tie != nil:
			c, err := r.tie.Pick(t, candidates)
			if err != nil {
				return "", err
			}
			chosen = c
		default:
			return "", errors.Newf(errors.CodeAmbiguous,
				"%d capabilities provide %q and no tie-break policy is configured",
				len(candidates), t).
				WithContext("candidates", capabilityIDs(candidates))
		}
		selected[t] = chosen.ID()
		g.providers[chosen.ID()] = true
		if err := expand(chosen); err != nil {
			return "", err
		}
		return chosen.ID(), nil
	}

	expand = func(c core.Capability) error {
		if _, ok := g.nodes[c.ID()]; ok {
			return nil
		}
		g.addNode(c)
		for _, req := range c.Requires() {
			if satisfied(req) {
				continue
			}
			provider, err := resolveType(req)
			if err != nil {
				if te := errors.AsError(err); te != nil {
					return te.WithContext("required_by", c.ID())
				}
				return err
			}
			g.addEdge(provider, c.ID())
		}
		return nil
	}

	for _, t := range goal.Wants() {
		if satisfied(t) {
			continue
		}
		if _, err := resolveType(t); err != nil {
			return nil, err
		}
	}

	if goal.Terminal != "" {
		c, err := r.reg.Get(goal.Terminal)
		if err != nil {
			return nil, err
		}
		if err := expand(c); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func runnable(c core.Capability, satisfied func(store.TypeName) bool) bool {
	for _, req := range c.Requires() {
		if !satisfied(req) {
			return false
		}
	}
	return true
}

func missingTypes(goal core.Goal, satisfied func(store.TypeName) bool) []string {
	var out []string
	for _, t := range goal.Wants() {
		if !satisfied(t) {
			out = append(out, string(t))
		}
	}
	return out
}

// moveToTail pulls a capability out of its level and appends it as a
// final single-capability level, preserving everything else.
func moveToTail(levels [][]core.Capability, id string) [][]core.Capability {
	var tail core.Capability
	out := levels[:0]
	for _, level := range levels {
		kept := level[:0]
		for _, c := range level {
			if c.ID() == id {
				tail = c
				continue
			}
			kept = append(kept, c)
		}
		if len(kept) > 0 {
			out = append(out, kept)
		}
	}
	if tail != nil {
		out = append(out, []core.Capability{tail})
	}
	return out
}
