// SPDX-License-Identifier: Apache-2.0

package resolve

import (
	"github.com/jllopis/telos/pkg/core"
	"github.com/jllopis/telos/pkg/errors"
	"github.com/jllopis/telos/pkg/store"
)

// TieBreaker selects one provider when several capabilities declare the
// same context type. With no TieBreaker configured, the resolver refuses
// to guess and fails with an ambiguous resolution error.
type TieBreaker interface {
	Pick(typ store.TypeName, candidates []core.Capability) (core.Capability, error)
}

// Priority breaks ties with an explicit ordered list of capability ids.
// The first listed id present among the candidates wins.
type Priority struct {
	// Order is the preference list, most preferred first.
	Order []string

	// Permissive falls back to registration order when no listed id
	// matches. The default strict mode fails instead.
	Permissive bool
}

// Pick implements TieBreaker.
func (p Priority) Pick(typ store.TypeName, candidates []core.Capability) (core.Capability, error) {
	for _, id := range p.Order {
		for _, c := range candidates {
			if c.ID() == id {
				return c, nil
			}
		}
	}
	if p.Permissive && len(candidates) > 0 {
		return candidates[0], nil
	}
	return nil, errors.Newf(errors.CodeAmbiguous,
		"no priority entry matches the %d providers of %q", len(candidates), typ).
		WithContext("candidates", capabilityIDs(candidates))
}

// DecisionFunc adapts a host-supplied decision function to the TieBreaker
// interface. The function receives the contested type and the candidate
// ids in registration order and must return one of them.
type DecisionFunc func(typ store.TypeName, candidates []string) (string, error)

// Pick implements TieBreaker.
func (f DecisionFunc) Pick(typ store.TypeName, candidates []core.Capability) (core.Capability, error) {
	ids := capabilityIDs(candidates)
	chosen, err := f(typ, ids)
	if err != nil {
		return nil, errors.New(errors.CodeAmbiguous, "tie-break decision failed", err).
			WithContext("type", string(typ))
	}
	for _, c := range candidates {
		if c.ID() == chosen {
			return c, nil
		}
	}
	return nil, errors.Newf(errors.CodeAmbiguous,
		"tie-break chose %q, which is not a provider of %q", chosen, typ)
}

func capabilityIDs(caps []core.Capability) []string {
	out := make([]string, len(caps))
	for i, c := range caps {
		out[i] = c.ID()
	}
	return out
}
