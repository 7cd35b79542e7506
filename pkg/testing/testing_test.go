// Copyright 2026 © The Telos Authors
// SPDX-License-Identifier: Apache-2.0

package testing

import (
	"context"
	stdtesting "testing"

	"github.com/jllopis/telos/pkg/core"
	"github.com/jllopis/telos/pkg/engine"
	"github.com/jllopis/telos/pkg/errors"
	"github.com/jllopis/telos/pkg/orchestrate"
	"github.com/jllopis/telos/pkg/resilience"
	"github.com/jllopis/telos/pkg/resolve"
	"github.com/jllopis/telos/pkg/store"
)

func TestWorldRunsGoal(t *stdtesting.T) {
	w := NewWorld(t).
		Type("LocationContext", store.ScopeTurn).
		Type("WeatherContext", store.ScopeTurn).
		Capability(Producer("extract-location", nil, "LocationContext", map[string]any{"v": "Oslo"})).
		Capability(Producer("fetch-weather", []store.TypeName{"LocationContext"}, "WeatherContext", map[string]any{"v": "overcast"})).
		Capability(Terminator("respond", []store.TypeName{"WeatherContext"}))

	o := orchestrate.New(resolve.New(w.Reg, w.St), engine.New(w.St))
	result, err := o.Run(context.Background(), core.Goal{
		Require:  []store.TypeName{"WeatherContext"},
		Terminal: "respond",
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.Satisfied || !result.Terminal {
		t.Fatalf("unexpected result: %+v", result)
	}
	if !w.St.Has("WeatherContext") {
		t.Fatal("weather context missing")
	}
}

func TestFailingRecoversAfterRetries(t *stdtesting.T) {
	w := NewWorld(t).Type("A", store.ScopeTurn)
	flaky := Failing("make-a", "A", map[string]any{"v": 1}, 2)
	w.Capability(flaky)

	e := engine.New(w.St,
		engine.WithDefaults(core.Limits{Retries: 3}),
		engine.WithRetryConfig(resilience.DefaultRetryConfig().WithInitialDelay(1)))
	if _, err := e.Invoke(context.Background(), flaky); err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if flaky.Calls() != 3 {
		t.Fatalf("expected 3 calls, got %d", flaky.Calls())
	}
}

func TestFailingAlwaysDown(t *stdtesting.T) {
	w := NewWorld(t).Type("A", store.ScopeTurn)
	down := Failing("make-a", "A", map[string]any{"v": 1}, -1)
	w.Capability(down)

	e := engine.New(w.St,
		engine.WithDefaults(core.Limits{Retries: 1}),
		engine.WithRetryConfig(resilience.DefaultRetryConfig().WithInitialDelay(1)))
	if _, err := e.Invoke(context.Background(), down); !errors.Is(err, errors.CodeCapability) {
		t.Fatalf("expected capability error, got %v", err)
	}
	if down.Calls() != 2 {
		t.Fatalf("expected 2 calls, got %d", down.Calls())
	}
}

func TestCountWrapsAnyCapability(t *stdtesting.T) {
	counted := Count(Producer("p", nil, "A", map[string]any{"v": true}))
	if _, err := counted.Invoke(context.Background(), nil); err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if counted.Calls() != 1 {
		t.Fatalf("expected 1 call, got %d", counted.Calls())
	}
}

func TestAssertions(t *stdtesting.T) {
	r := Require(t)
	r.NoError(nil, "nil error")
	r.ErrorCode(errors.New(errors.CodeStalled, "stuck", nil), errors.CodeStalled, "code match")
	r.Equal([]string{"a"}, []string{"a"}, "deep equal")
	r.True(true, "holds")
}
