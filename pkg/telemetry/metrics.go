// SPDX-License-Identifier: Apache-2.0
// Package telemetry provides tracing, metrics, and trace-aware logging
// for the orchestration engine.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jllopis/telos/pkg/core"
	"github.com/jllopis/telos/pkg/errors"
)

// RunMetrics tracks orchestration health: step outcomes, run durations,
// and resolution failures.
type RunMetrics struct {
	// stepCounter tracks steps by event type (succeeded, failed, skipped)
	stepCounter metric.Int64Counter

	// runCounter tracks completed and failed runs
	runCounter metric.Int64Counter

	// resolutionFailures tracks resolver errors by code
	resolutionFailures metric.Int64Counter

	// storeWrites tracks context records produced per capability
	storeWrites metric.Int64Counter
}

// NewRunMetrics creates the orchestration metric set on the global meter.
func NewRunMetrics() (*RunMetrics, error) {
	meter := otel.Meter("telos/orchestrate")

	stepCounter, err := meter.Int64Counter(
		"telos.steps.total",
		metric.WithDescription("Capability steps by outcome"),
	)
	if err != nil {
		return nil, err
	}

	runCounter, err := meter.Int64Counter(
		"telos.runs.total",
		metric.WithDescription("Runs by outcome"),
	)
	if err != nil {
		return nil, err
	}

	resolutionFailures, err := meter.Int64Counter(
		"telos.resolution.failures",
		metric.WithDescription("Resolution failures by error code"),
	)
	if err != nil {
		return nil, err
	}

	storeWrites, err := meter.Int64Counter(
		"telos.store.writes",
		metric.WithDescription("Context records committed by capability"),
	)
	if err != nil {
		return nil, err
	}

	return &RunMetrics{
		stepCounter:        stepCounter,
		runCounter:         runCounter,
		resolutionFailures: resolutionFailures,
		storeWrites:        storeWrites,
	}, nil
}

// Emitter adapts the metric set to the orchestrator's event stream, so
// wiring metrics is just another event sink.
func (m *RunMetrics) Emitter() core.EventEmitter {
	return core.EmitterFunc(func(ctx context.Context, ev core.Event) {
		if m == nil {
			return
		}
		switch ev.Type {
		case core.EventStepSucceeded, core.EventStepFailed, core.EventStepSkipped:
			m.stepCounter.Add(ctx, 1, metric.WithAttributes(
				attribute.String("outcome", string(ev.Type)),
				attribute.String("capability", ev.Capability),
			))
		case core.EventRunCompleted, core.EventRunFailed:
			m.runCounter.Add(ctx, 1, metric.WithAttributes(
				attribute.String("outcome", string(ev.Type)),
			))
		}
	})
}

// RecordResolutionFailure counts a resolver error by its code.
func (m *RunMetrics) RecordResolutionFailure(ctx context.Context, err error) {
	if m == nil || err == nil {
		return
	}
	m.resolutionFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("error.code", string(errors.CodeOf(err))),
	))
}

// RecordStoreWrite counts committed context records for a capability.
func (m *RunMetrics) RecordStoreWrite(ctx context.Context, capability string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.storeWrites.Add(ctx, int64(count), metric.WithAttributes(
		attribute.String("capability", capability),
	))
}
