// SPDX-License-Identifier: Apache-2.0
// Package core defines the shared kernel of the Telos orchestration engine:
// the capability contract, goals, run identity, and semantic events.
package core

import (
	"context"
	"time"

	"github.com/jllopis/telos/pkg/store"
)

// Result is what a capability hands back to the execution engine.
type Result struct {
	// Contexts are the produced records. Scope is taken from the record if
	// set, otherwise from the context type declaration.
	Contexts []store.Context

	// Terminal signals that the run is complete. Remaining plan steps are
	// skipped and the reactive loop exits.
	Terminal bool
}

// Capability is a registered unit of work. Implementations are stateless
// with respect to the engine and treated as side-effecting and fallible.
type Capability interface {
	// ID returns the unique capability identifier.
	ID() string

	// Requires lists the context types that must be bound before Invoke.
	Requires() []store.TypeName

	// Provides lists the context types this capability can produce.
	Provides() []store.TypeName

	// Invoke runs the capability with exactly the required types bound.
	Invoke(ctx context.Context, bound map[store.TypeName]store.Context) (Result, error)
}

// Limits carries per-capability execution bounds. Zero values fall back to
// the engine defaults.
type Limits struct {
	// Timeout bounds a single invocation attempt.
	Timeout time.Duration

	// Retries is how many times a failed invocation is re-attempted before
	// the error is declared fatal.
	Retries int
}

// Limiter is an optional interface a capability can implement to override
// the engine's default timeout and retry count.
type Limiter interface {
	Limits() Limits
}

// InvokeFunc is the signature of a function-backed capability.
type InvokeFunc func(ctx context.Context, bound map[store.TypeName]store.Context) (Result, error)

// Func adapts a plain function to the Capability interface.
type Func struct {
	id       string
	requires []store.TypeName
	provides []store.TypeName
	limits   Limits
	fn       InvokeFunc
}

// FuncOption configures a Func capability.
type FuncOption func(*Func)

// WithTimeout sets the per-invocation timeout for a Func capability.
func WithTimeout(d time.Duration) FuncOption {
	return func(f *Func) { f.limits.Timeout = d }
}

// WithRetries sets the retry count for a Func capability.
func WithRetries(n int) FuncOption {
	return func(f *Func) { f.limits.Retries = n }
}

// NewFunc creates a function-backed capability.
func NewFunc(id string, requires, provides []store.TypeName, fn InvokeFunc, opts ...FuncOption) *Func {
	f := &Func{
		id:       id,
		requires: append([]store.TypeName(nil), requires...),
		provides: append([]store.TypeName(nil), provides...),
		fn:       fn,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ID implements Capability.
func (f *Func) ID() string { return f.id }

// Requires implements Capability.
func (f *Func) Requires() []store.TypeName { return f.requires }

// Provides implements Capability.
func (f *Func) Provides() []store.TypeName { return f.provides }

// Limits implements Limiter.
func (f *Func) Limits() Limits { return f.limits }

// Invoke implements Capability.
func (f *Func) Invoke(ctx context.Context, bound map[store.TypeName]store.Context) (Result, error) {
	return f.fn(ctx, bound)
}

// Produce is a convenience for capabilities returning a single context.
func Produce(typ store.TypeName, payload map[string]any) Result {
	return Result{Contexts: []store.Context{{Type: typ, Payload: payload}}}
}

// Terminal is a convenience for capabilities that end the run, optionally
// producing contexts first.
func Terminal(contexts ...store.Context) Result {
	return Result{Contexts: contexts, Terminal: true}
}
