// SPDX-License-Identifier: Apache-2.0
// Package engine executes single capabilities: it binds required contexts,
// enforces timeout and retry bounds, and commits produced contexts back to
// the store.
package engine

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/telos/pkg/core"
	"github.com/jllopis/telos/pkg/errors"
	"github.com/jllopis/telos/pkg/resilience"
	"github.com/jllopis/telos/pkg/store"
)

// Engine invokes capabilities against a context store.
type Engine struct {
	st       *store.Store
	tracer   trace.Tracer
	defaults core.Limits
	retry    resilience.RetryConfig
}

// Option configures an Engine.
type Option func(*Engine)

// WithDefaults sets the limits applied when a capability declares none.
func WithDefaults(l core.Limits) Option {
	return func(e *Engine) { e.defaults = l }
}

// WithRetryConfig sets the backoff behavior between attempts. The attempt
// count itself comes from the effective limits, not from this config.
func WithRetryConfig(rc resilience.RetryConfig) Option {
	return func(e *Engine) { e.retry = rc }
}

// New creates an engine over the given store.
func New(st *store.Store, opts ...Option) *Engine {
	e := &Engine{
		st:     st,
		tracer: otel.Tracer("telos/engine"),
		retry:  resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Invocation describes one completed capability execution.
type Invocation struct {
	Capability string        `json:"capability"`
	Bound      []store.Ref   `json:"bound,omitempty"`
	Produced   []store.Ref   `json:"produced,omitempty"`
	Terminal   bool          `json:"terminal,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// Invoke runs one capability: binds its required context types from the
// store, executes it under the effective timeout and retry bounds, and
// commits whatever it produced. Produced records keep their own scope when
// set; otherwise the scope declared by their context type applies.
func (e *Engine) Invoke(ctx context.Context, c core.Capability) (Invocation, error) {
	ctx, runID := core.EnsureRunID(ctx)
	inv := Invocation{Capability: c.ID()}
	log := slog.Default()

	ctx, span := e.tracer.Start(ctx, "Engine.Invoke", trace.WithAttributes(
		attribute.String("capability.id", c.ID()),
		attribute.String("run.id", runID),
	))
	defer span.End()

	bound := make(map[store.TypeName]store.Context, len(c.Requires()))
	for _, req := range c.Requires() {
		rec, ok := e.st.Lookup(req)
		if !ok {
			return inv, errors.Newf(errors.CodeInternal,
				"required context %q missing at invocation of %q", req, c.ID())
		}
		bound[req] = rec
		inv.Bound = append(inv.Bound, store.RefOf(rec))
	}

	limits := e.limitsFor(c)
	log.Info("engine.invoke.start",
		slog.String("capability", c.ID()),
		slog.String("run_id", runID),
	)
	started := time.Now()

	var result core.Result
	rc := e.retry.WithMaxAttempts(limits.Retries + 1)
	err := rc.Do(ctx, func() error {
		var attemptErr error
		result, attemptErr = resilience.WithTimeoutResult(ctx, limits.Timeout,
			func(ctx context.Context) (core.Result, error) {
				return c.Invoke(ctx, bound)
			})
		return attemptErr
	})
	inv.Duration = time.Since(started)

	if err != nil {
		err = wrapInvokeError(err, c.ID())
		log.Error("engine.invoke.error",
			slog.String("capability", c.ID()),
			slog.String("run_id", runID),
			slog.Float64("duration_ms", float64(inv.Duration.Microseconds())/1000),
			slog.String("error", err.Error()),
		)
		return inv, err
	}

	inv.Terminal = result.Terminal
	for _, rec := range result.Contexts {
		rec.ProducedBy = c.ID()
		committed, err := e.st.Put(rec, e.scopeFor(rec))
		if err != nil {
			return inv, err
		}
		inv.Produced = append(inv.Produced, store.RefOf(committed))
	}

	log.Info("engine.invoke.complete",
		slog.String("capability", c.ID()),
		slog.String("run_id", runID),
		slog.Int("produced", len(inv.Produced)),
		slog.Float64("duration_ms", float64(inv.Duration.Microseconds())/1000),
	)
	return inv, nil
}

func (e *Engine) limitsFor(c core.Capability) core.Limits {
	limits := e.defaults
	if lim, ok := c.(core.Limiter); ok {
		own := lim.Limits()
		if own.Timeout > 0 {
			limits.Timeout = own.Timeout
		}
		if own.Retries > 0 {
			limits.Retries = own.Retries
		}
	}
	return limits
}

func (e *Engine) scopeFor(rec store.Context) store.Scope {
	if rec.Scope.Valid() {
		return rec.Scope
	}
	if ct, ok := e.st.Type(rec.Type); ok {
		return ct.Scope
	}
	return store.ScopeTurn
}

// wrapInvokeError normalizes a failed invocation. Timeouts keep their
// code; everything else surfaces as a capability error around the cause.
func wrapInvokeError(err error, capability string) error {
	if errors.Is(err, errors.CodeTimeout) {
		return errors.AsError(err).WithContext("capability", capability)
	}
	recoverable := false
	if te := errors.AsError(err); te != nil {
		recoverable = te.Recoverable
	}
	return errors.New(errors.CodeCapability, "capability "+capability+" failed", err).
		WithContext("capability", capability).
		WithRecoverable(recoverable)
}
