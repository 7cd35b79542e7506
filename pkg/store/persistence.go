// SPDX-License-Identifier: Apache-2.0

package store

import "context"

// Persistence loads and saves the session-scope portion of a store across
// sessions. Turn-scope contexts are never persisted.
type Persistence interface {
	// Load returns the session-scope contexts stored for a session id.
	// A missing session yields an empty slice and no error.
	Load(ctx context.Context, sessionID string) ([]Context, error)

	// Save replaces the stored session-scope contexts for a session id.
	Save(ctx context.Context, sessionID string, contexts []Context) error
}

// NopPersistence discards saves and loads nothing. It is the default for
// sessions that do not carry state across runs.
type NopPersistence struct{}

// Load implements Persistence.
func (NopPersistence) Load(_ context.Context, _ string) ([]Context, error) { return nil, nil }

// Save implements Persistence.
func (NopPersistence) Save(_ context.Context, _ string, _ []Context) error { return nil }
