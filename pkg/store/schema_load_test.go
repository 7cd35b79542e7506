// SPDX-License-Identifier: Apache-2.0

package store

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleManifest = `
types:
  - name: LocationContext
    scope: turn
    fields:
      city: string
      lat: float
    required: [city]
  - name: UserProfile
    scope: session
    fields:
      name: string
      tags: list
    required: [name]
`

func TestLoadTypesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "types.yaml")
	if err := os.WriteFile(path, []byte(sampleManifest), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	types, err := LoadTypesFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(types) != 2 {
		t.Fatalf("expected 2 types, got %d", len(types))
	}
	if types[0].Name != "LocationContext" || types[0].Scope != ScopeTurn {
		t.Fatalf("unexpected first type: %+v", types[0])
	}
	if types[1].Scope != ScopeSession {
		t.Fatalf("expected session scope, got %s", types[1].Scope)
	}
	if types[0].Schema.Fields["lat"] != FieldFloat {
		t.Fatalf("unexpected field kind: %v", types[0].Schema.Fields["lat"])
	}
}

func TestLoadTypesDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(sampleManifest), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "ignore.txt"), []byte("not yaml"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	types, err := LoadTypesDir(dir)
	if err != nil {
		t.Fatalf("load dir: %v", err)
	}
	if len(types) != 2 {
		t.Fatalf("expected 2 types, got %d", len(types))
	}
}

func TestLoadTypesFileRejectsBadDecls(t *testing.T) {
	dir := t.TempDir()

	cases := map[string]string{
		"missing-name": "types:\n  - scope: turn\n",
		"bad-scope":    "types:\n  - name: X\n    scope: global\n",
		"bad-kind":     "types:\n  - name: X\n    fields:\n      f: blob\n",
		"bad-required": "types:\n  - name: X\n    fields:\n      f: string\n    required: [missing]\n",
	}
	for name, body := range cases {
		path := filepath.Join(dir, name+".yaml")
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		if _, err := LoadTypesFile(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
