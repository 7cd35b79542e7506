// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"testing"
	"time"

	"github.com/jllopis/telos/pkg/store"
)

func TestFuncCapability(t *testing.T) {
	cap := NewFunc("extract-location",
		nil,
		[]store.TypeName{"LocationContext"},
		func(_ context.Context, _ map[store.TypeName]store.Context) (Result, error) {
			return Produce("LocationContext", map[string]any{"city": "Oslo"}), nil
		},
		WithTimeout(2*time.Second),
		WithRetries(1),
	)

	if cap.ID() != "extract-location" {
		t.Fatalf("unexpected id: %s", cap.ID())
	}
	if len(cap.Requires()) != 0 || len(cap.Provides()) != 1 {
		t.Fatal("unexpected requires/provides")
	}
	limits := cap.Limits()
	if limits.Timeout != 2*time.Second || limits.Retries != 1 {
		t.Fatalf("unexpected limits: %+v", limits)
	}

	res, err := cap.Invoke(context.Background(), nil)
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if len(res.Contexts) != 1 || res.Contexts[0].Type != "LocationContext" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Terminal {
		t.Fatal("Produce must not be terminal")
	}
	if !Terminal().Terminal {
		t.Fatal("Terminal must set the flag")
	}
}

func TestGoalWants(t *testing.T) {
	g := Goal{
		Require: []store.TypeName{"A", "B"},
		Refresh: []store.TypeName{"B", "C"},
	}
	wants := g.Wants()
	if len(wants) != 3 {
		t.Fatalf("expected 3 types, got %v", wants)
	}
	if wants[0] != "A" || wants[1] != "B" || wants[2] != "C" {
		t.Fatalf("unexpected order: %v", wants)
	}
	if !g.NeedsRefresh("C") || g.NeedsRefresh("A") {
		t.Fatal("refresh membership wrong")
	}
	if g.Empty() {
		t.Fatal("goal is not empty")
	}
	if !(Goal{}).Empty() {
		t.Fatal("zero goal should be empty")
	}
}

func TestRunIDHelpers(t *testing.T) {
	ctx := context.Background()
	if _, ok := RunID(ctx); ok {
		t.Fatal("no run id expected")
	}
	ctx, id := EnsureRunID(ctx)
	if id == "" {
		t.Fatal("expected generated run id")
	}
	got, ok := RunID(ctx)
	if !ok || got != id {
		t.Fatalf("run id not propagated: %q", got)
	}
	ctx2, id2 := EnsureRunID(ctx)
	if id2 != id || ctx2 != ctx {
		t.Fatal("EnsureRunID must be idempotent")
	}
}

func TestEventEmitter(t *testing.T) {
	var got []Event
	emitter := EmitterFunc(func(_ context.Context, ev Event) {
		got = append(got, ev)
	})
	ev := NewEvent(EventStepStarted, "run-1", "fetch-weather", "step-1", nil)
	emitter.Emit(context.Background(), ev)
	if len(got) != 1 || got[0].Type != EventStepStarted {
		t.Fatalf("unexpected events: %+v", got)
	}
	if got[0].Timestamp.IsZero() {
		t.Fatal("timestamp should be set")
	}
	NoopEventEmitter{}.Emit(context.Background(), ev)
}
