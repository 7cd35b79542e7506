// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"time"
)

// EventType identifies a semantic event emitted during orchestration.
type EventType string

const (
	EventRunStarted    EventType = "run.started"
	EventRunCompleted  EventType = "run.completed"
	EventRunFailed     EventType = "run.failed"
	EventStepStarted   EventType = "step.started"
	EventStepSucceeded EventType = "step.succeeded"
	EventStepFailed    EventType = "step.failed"
	EventStepSkipped   EventType = "step.skipped"
	EventTurnCleared   EventType = "turn.cleared"
)

// Event captures a semantic orchestration event for streaming or logging.
type Event struct {
	Type       EventType
	RunID      string
	Capability string
	StepID     string
	Timestamp  time.Time
	Payload    map[string]any
}

// EventEmitter receives semantic events. Implementations must not block.
type EventEmitter interface {
	Emit(ctx context.Context, event Event)
}

// NoopEventEmitter is the default no-op implementation.
type NoopEventEmitter struct{}

// Emit implements EventEmitter.
func (NoopEventEmitter) Emit(_ context.Context, _ Event) {}

// EmitterFunc adapts a function to the EventEmitter interface.
type EmitterFunc func(ctx context.Context, event Event)

// Emit implements EventEmitter.
func (f EmitterFunc) Emit(ctx context.Context, event Event) { f(ctx, event) }

// NewEvent builds an event with a UTC timestamp.
func NewEvent(eventType EventType, runID, capability, stepID string, payload map[string]any) Event {
	return Event{
		Type:       eventType,
		RunID:      runID,
		Capability: capability,
		StepID:     stepID,
		Timestamp:  time.Now().UTC(),
		Payload:    payload,
	}
}
