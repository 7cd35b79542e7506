// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"testing"
)

func sampleSessionContexts() []Context {
	return []Context{
		{Type: "UserProfile", Scope: ScopeSession, Version: 2, Payload: map[string]any{"name": "ada"}, ProducedBy: "profile-loader"},
		{Type: "Preferences", Scope: ScopeSession, Version: 1, Payload: map[string]any{"units": "metric"}},
	}
}

func TestFilePersistenceRoundTrip(t *testing.T) {
	p, err := NewFilePersistence(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	loaded, err := p.Load(ctx, "missing")
	if err != nil || loaded != nil {
		t.Fatalf("missing session should load empty, got %v %v", loaded, err)
	}

	if err := p.Save(ctx, "s1", sampleSessionContexts()); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err = p.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 contexts, got %d", len(loaded))
	}
	if loaded[0].Payload["name"] != "ada" && loaded[1].Payload["name"] != "ada" {
		t.Fatalf("payload lost in round trip: %+v", loaded)
	}
}

func TestSQLitePersistenceRoundTrip(t *testing.T) {
	p, err := OpenSQLitePersistence(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer p.Close()
	ctx := context.Background()

	loaded, err := p.Load(ctx, "missing")
	if err != nil || len(loaded) != 0 {
		t.Fatalf("missing session should load empty, got %v %v", loaded, err)
	}

	if err := p.Save(ctx, "s1", sampleSessionContexts()); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err = p.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 contexts, got %d", len(loaded))
	}
	for _, c := range loaded {
		if c.Scope != ScopeSession {
			t.Fatalf("loaded context has wrong scope: %+v", c)
		}
	}

	// Save replaces the stored set.
	if err := p.Save(ctx, "s1", sampleSessionContexts()[:1]); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err = p.Load(ctx, "s1")
	if err != nil || len(loaded) != 1 {
		t.Fatalf("expected replacement save, got %d contexts (%v)", len(loaded), err)
	}

	// Turn-scope contexts are never persisted.
	if err := p.Save(ctx, "s2", []Context{{Type: "X", Scope: ScopeTurn, Version: 1}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err = p.Load(ctx, "s2")
	if err != nil || len(loaded) != 0 {
		t.Fatalf("turn contexts should be skipped, got %d (%v)", len(loaded), err)
	}
}
