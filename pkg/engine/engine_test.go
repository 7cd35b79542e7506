// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"testing"
	"time"

	"github.com/jllopis/telos/pkg/core"
	"github.com/jllopis/telos/pkg/errors"
	"github.com/jllopis/telos/pkg/resilience"
	"github.com/jllopis/telos/pkg/store"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	st := store.New()
	types := []store.ContextType{
		{Name: "LocationContext", Scope: store.ScopeTurn,
			Schema: store.Schema{Fields: map[string]store.FieldKind{"city": store.FieldString}}},
		{Name: "PreferenceContext", Scope: store.ScopeSession,
			Schema: store.Schema{Fields: map[string]store.FieldKind{"units": store.FieldString}}},
	}
	for _, ct := range types {
		if err := st.RegisterType(ct); err != nil {
			t.Fatalf("register type: %v", err)
		}
	}
	return st
}

func TestInvokeBindsAndCommits(t *testing.T) {
	st := newStore(t)
	if _, err := st.Put(store.Context{Type: "LocationContext", Payload: map[string]any{"city": "Oslo"}}, store.ScopeTurn); err != nil {
		t.Fatalf("seed: %v", err)
	}

	cap := core.NewFunc("prefs-from-location",
		[]store.TypeName{"LocationContext"},
		[]store.TypeName{"PreferenceContext"},
		func(_ context.Context, bound map[store.TypeName]store.Context) (core.Result, error) {
			if bound["LocationContext"].Payload["city"] != "Oslo" {
				t.Fatal("wrong binding")
			}
			return core.Produce("PreferenceContext", map[string]any{"units": "metric"}), nil
		})

	inv, err := New(st).Invoke(context.Background(), cap)
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if len(inv.Bound) != 1 || inv.Bound[0].Type != "LocationContext" {
		t.Fatalf("unexpected bound refs: %+v", inv.Bound)
	}
	if len(inv.Produced) != 1 || inv.Produced[0].Scope != store.ScopeSession {
		t.Fatalf("produced record should land in its type's declared scope: %+v", inv.Produced)
	}

	rec, ok := st.Get("PreferenceContext", store.ScopeSession)
	if !ok || rec.ProducedBy != "prefs-from-location" {
		t.Fatalf("commit missing provenance: %+v", rec)
	}
}

func TestInvokeMissingRequirement(t *testing.T) {
	st := newStore(t)
	cap := core.NewFunc("needs-location", []store.TypeName{"LocationContext"}, nil,
		func(_ context.Context, _ map[store.TypeName]store.Context) (core.Result, error) {
			return core.Result{}, nil
		})
	_, err := New(st).Invoke(context.Background(), cap)
	if !errors.Is(err, errors.CodeInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestInvokeWrapsCapabilityFailure(t *testing.T) {
	st := newStore(t)
	boom := core.NewFunc("boom", nil, nil,
		func(_ context.Context, _ map[store.TypeName]store.Context) (core.Result, error) {
			return core.Result{}, errors.New(errors.CodeValidation, "bad input", nil)
		})
	_, err := New(st).Invoke(context.Background(), boom)
	if !errors.Is(err, errors.CodeCapability) {
		t.Fatalf("expected capability error, got %v", err)
	}
	te := errors.AsError(err)
	if te.Context["capability"] != "boom" {
		t.Fatalf("missing capability context: %+v", te.Context)
	}
}

func TestInvokeRetriesRecoverableFailures(t *testing.T) {
	st := newStore(t)
	attempts := 0
	flaky := core.NewFunc("flaky", nil, []store.TypeName{"LocationContext"},
		func(_ context.Context, _ map[store.TypeName]store.Context) (core.Result, error) {
			attempts++
			if attempts < 3 {
				return core.Result{}, errors.New(errors.CodeCapability, "transient", nil).WithRecoverable(true)
			}
			return core.Produce("LocationContext", map[string]any{"city": "Oslo"}), nil
		},
		core.WithRetries(2))

	e := New(st, WithRetryConfig(resilience.DefaultRetryConfig().WithInitialDelay(time.Millisecond)))
	inv, err := e.Invoke(context.Background(), flaky)
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	if len(inv.Produced) != 1 {
		t.Fatalf("expected one produced record, got %+v", inv.Produced)
	}
}

func TestInvokeDoesNotRetryNonRecoverable(t *testing.T) {
	st := newStore(t)
	attempts := 0
	fatal := core.NewFunc("fatal", nil, nil,
		func(_ context.Context, _ map[store.TypeName]store.Context) (core.Result, error) {
			attempts++
			return core.Result{}, errors.New(errors.CodeCapability, "hard down", nil)
		},
		core.WithRetries(5))

	e := New(st, WithRetryConfig(resilience.DefaultRetryConfig().WithInitialDelay(time.Millisecond)))
	if _, err := e.Invoke(context.Background(), fatal); !errors.Is(err, errors.CodeCapability) {
		t.Fatalf("expected capability error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("non-recoverable failure must not retry, got %d attempts", attempts)
	}
}

func TestInvokeTimesOut(t *testing.T) {
	st := newStore(t)
	slow := core.NewFunc("slow", nil, nil,
		func(ctx context.Context, _ map[store.TypeName]store.Context) (core.Result, error) {
			select {
			case <-ctx.Done():
				return core.Result{}, ctx.Err()
			case <-time.After(time.Minute):
				return core.Result{}, nil
			}
		},
		core.WithTimeout(10*time.Millisecond))

	_, err := New(st).Invoke(context.Background(), slow)
	if !errors.Is(err, errors.CodeTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestInvokeTerminalResult(t *testing.T) {
	st := newStore(t)
	done := core.NewFunc("respond", nil, nil,
		func(_ context.Context, _ map[store.TypeName]store.Context) (core.Result, error) {
			return core.Terminal(), nil
		})
	inv, err := New(st).Invoke(context.Background(), done)
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if !inv.Terminal {
		t.Fatal("terminal flag lost")
	}
}

func TestInvokeRejectsInvalidPayload(t *testing.T) {
	st := newStore(t)
	bad := core.NewFunc("bad-writer", nil, []store.TypeName{"LocationContext"},
		func(_ context.Context, _ map[store.TypeName]store.Context) (core.Result, error) {
			return core.Produce("LocationContext", map[string]any{"city": 42}), nil
		})
	_, err := New(st).Invoke(context.Background(), bad)
	if !errors.Is(err, errors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := st.Get("LocationContext", store.ScopeTurn); ok {
		t.Fatal("invalid payload must not be committed")
	}
}
