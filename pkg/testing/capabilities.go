// Copyright 2026 © The Telos Authors
// SPDX-License-Identifier: Apache-2.0

// Package testing provides capability stubs and fixture builders for
// exercising the orchestration engine in tests.
package testing

import (
	"context"
	"sync/atomic"

	"github.com/jllopis/telos/pkg/core"
	"github.com/jllopis/telos/pkg/errors"
	"github.com/jllopis/telos/pkg/store"
)

// Producer returns a capability that always writes the same payload for
// one context type.
func Producer(id string, requires []store.TypeName, typ store.TypeName, payload map[string]any) core.Capability {
	return core.NewFunc(id, requires, []store.TypeName{typ},
		func(_ context.Context, _ map[store.TypeName]store.Context) (core.Result, error) {
			return core.Produce(typ, payload), nil
		})
}

// Failing returns a capability that fails recoverably the first n
// invocations and then produces the payload. With n < 0 it always fails.
func Failing(id string, typ store.TypeName, payload map[string]any, n int) *CountingCapability {
	c := &CountingCapability{}
	c.Capability = core.NewFunc(id, nil, []store.TypeName{typ},
		func(_ context.Context, _ map[store.TypeName]store.Context) (core.Result, error) {
			calls := int(c.Calls())
			if n < 0 || calls <= n {
				return core.Result{}, errors.Newf(errors.CodeCapability, "%s is down", id).
					WithRecoverable(true)
			}
			return core.Produce(typ, payload), nil
		})
	return c
}

// Terminator returns a capability that ends the run once its requirements
// are bound.
func Terminator(id string, requires []store.TypeName) core.Capability {
	return core.NewFunc(id, requires, nil,
		func(_ context.Context, _ map[store.TypeName]store.Context) (core.Result, error) {
			return core.Terminal(), nil
		})
}

// CountingCapability wraps a capability and counts invocations.
type CountingCapability struct {
	core.Capability
	calls atomic.Int64
}

// Count wraps an existing capability with an invocation counter.
func Count(c core.Capability) *CountingCapability {
	return &CountingCapability{Capability: c}
}

// Invoke implements core.Capability.
func (c *CountingCapability) Invoke(ctx context.Context, bound map[store.TypeName]store.Context) (core.Result, error) {
	c.calls.Add(1)
	return c.Capability.Invoke(ctx, bound)
}

// Calls returns the number of invocations so far.
func (c *CountingCapability) Calls() int64 {
	return c.calls.Load()
}
