// SPDX-License-Identifier: Apache-2.0
// Package orchestrate drives goal runs end to end. Two modes share the
// same resolver and execution engine: plan-first computes the complete
// ordering up front and executes it level by level, reactive re-resolves
// a single step at a time against the live store.
package orchestrate

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/telos/pkg/core"
	"github.com/jllopis/telos/pkg/engine"
	"github.com/jllopis/telos/pkg/errors"
	"github.com/jllopis/telos/pkg/resolve"
)

// Mode selects the orchestration strategy.
type Mode string

const (
	ModePlanFirst Mode = "plan_first"
	ModeReactive  Mode = "reactive"
)

// Valid reports whether the mode is one of the known strategies.
func (m Mode) Valid() bool {
	return m == ModePlanFirst || m == ModeReactive
}

const (
	// DefaultMaxSteps bounds a reactive run.
	DefaultMaxSteps = 16

	// DefaultMaxParallel bounds in-flight capabilities inside one level.
	DefaultMaxParallel = 4
)

// Orchestrator runs goals to completion.
type Orchestrator struct {
	resolver    *resolve.Resolver
	engine      *engine.Engine
	mode        Mode
	maxSteps    int
	maxParallel int
	runTimeout  time.Duration
	emitter     core.EventEmitter
	audit       AuditStore
	tracer      trace.Tracer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMode selects the strategy used by Run.
func WithMode(m Mode) Option {
	return func(o *Orchestrator) { o.mode = m }
}

// WithMaxSteps bounds the number of capability invocations in a reactive run.
func WithMaxSteps(n int) Option {
	return func(o *Orchestrator) { o.maxSteps = n }
}

// WithMaxParallel bounds concurrent invocations within a plan level.
func WithMaxParallel(n int) Option {
	return func(o *Orchestrator) { o.maxParallel = n }
}

// WithRunTimeout bounds the whole run.
func WithRunTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.runTimeout = d }
}

// WithEmitter installs the semantic event sink.
func WithEmitter(e core.EventEmitter) Option {
	return func(o *Orchestrator) { o.emitter = e }
}

// WithAuditStore installs the audit persistence backend.
func WithAuditStore(a AuditStore) Option {
	return func(o *Orchestrator) { o.audit = a }
}

// New creates an orchestrator over a resolver and an engine.
func New(r *resolve.Resolver, e *engine.Engine, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		resolver:    r,
		engine:      e,
		mode:        ModePlanFirst,
		maxSteps:    DefaultMaxSteps,
		maxParallel: DefaultMaxParallel,
		emitter:     core.NoopEventEmitter{},
		audit:       NewMemoryAuditStore(),
		tracer:      otel.Tracer("telos/orchestrate"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run resolves and executes the goal using the configured mode.
func (o *Orchestrator) Run(ctx context.Context, goal core.Goal) (*RunResult, error) {
	switch o.mode {
	case ModeReactive:
		return o.RunReactive(ctx, goal)
	default:
		return o.RunPlanFirst(ctx, goal)
	}
}

// beginRun sets up run identity, deadline, tracing and the run.started
// event. The returned finish func closes the run symmetrically.
func (o *Orchestrator) beginRun(ctx context.Context, mode Mode) (context.Context, context.CancelFunc, *RunResult, func(err error)) {
	ctx, runID := core.EnsureRunID(ctx)
	cancel := context.CancelFunc(func() {})
	if o.runTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, o.runTimeout)
	}

	ctx, span := o.tracer.Start(ctx, "Orchestrator.Run", trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.String("run.mode", string(mode)),
	))

	result := &RunResult{RunID: runID, Mode: mode}
	started := time.Now()
	o.emitter.Emit(ctx, core.NewEvent(core.EventRunStarted, runID, "", "", nil))
	slog.Default().Info("orchestrate.run.start",
		slog.String("run_id", runID),
		slog.String("mode", string(mode)),
	)

	finish := func(err error) {
		result.Duration = time.Since(started)
		status := "completed"
		event := core.EventRunCompleted
		if err != nil {
			status = "failed"
			event = core.EventRunFailed
		}
		o.emitter.Emit(ctx, core.NewEvent(event, runID, "", "", map[string]any{
			"satisfied": result.Satisfied,
			"steps":     len(result.Steps),
		}))
		o.recordAudit(ctx, AuditEvent{
			RunID:      runID,
			Status:     status,
			Error:      errString(err),
			StartedAt:  started,
			FinishedAt: time.Now(),
		})
		slog.Default().Info("orchestrate.run.finish",
			slog.String("run_id", runID),
			slog.String("status", status),
			slog.Bool("satisfied", result.Satisfied),
			slog.Float64("duration_ms", float64(result.Duration.Microseconds())/1000),
		)
		span.End()
	}
	return ctx, cancel, result, finish
}

// runStep executes one step and records its outcome. The returned error
// is the invocation error, already normalized by the engine.
func (o *Orchestrator) runStep(ctx context.Context, runID string, step *Step, c core.Capability) error {
	step.Status = StatusRunning
	step.StartedAt = time.Now()
	o.emitter.Emit(ctx, core.NewEvent(core.EventStepStarted, runID, step.Capability, step.ID, nil))

	inv, err := o.engine.Invoke(ctx, c)
	step.Bound = inv.Bound
	step.Produced = inv.Produced
	step.Terminal = inv.Terminal
	step.FinishedAt = time.Now()

	if err != nil {
		step.Status = StatusFailed
		step.Error = err.Error()
		o.emitter.Emit(ctx, core.NewEvent(core.EventStepFailed, runID, step.Capability, step.ID,
			map[string]any{"error": err.Error()}))
	} else {
		step.Status = StatusSucceeded
		o.emitter.Emit(ctx, core.NewEvent(core.EventStepSucceeded, runID, step.Capability, step.ID, nil))
	}

	o.recordAudit(ctx, AuditEvent{
		RunID:      runID,
		StepID:     step.ID,
		Capability: step.Capability,
		Status:     string(step.Status),
		Output:     step.Produced,
		Error:      step.Error,
		StartedAt:  step.StartedAt,
		FinishedAt: step.FinishedAt,
	})
	return err
}

func (o *Orchestrator) skipStep(ctx context.Context, runID string, step *Step) {
	if step.Status != StatusPending {
		return
	}
	step.Status = StatusSkipped
	o.emitter.Emit(ctx, core.NewEvent(core.EventStepSkipped, runID, step.Capability, step.ID, nil))
}

func (o *Orchestrator) recordAudit(ctx context.Context, event AuditEvent) {
	// Audit failures never fail the run.
	if err := o.audit.Record(ctx, event); err != nil {
		slog.Default().Error("orchestrate.audit.record",
			slog.String("run_id", event.RunID),
			slog.String("error", err.Error()),
		)
	}
}

func canceled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.New(errors.CodeTimeout, "run canceled", err)
	}
	return nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
