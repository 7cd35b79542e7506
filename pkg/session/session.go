// SPDX-License-Identifier: Apache-2.0
// Package session ties a context store to a conversation lifecycle:
// session-scope contexts survive across turns and, with a persistence
// backend, across process restarts.
package session

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jllopis/telos/pkg/core"
	"github.com/jllopis/telos/pkg/errors"
	"github.com/jllopis/telos/pkg/store"
)

// Session owns a store for the duration of one conversation.
type Session struct {
	id      string
	st      *store.Store
	persist store.Persistence
	emitter core.EventEmitter
}

// Option configures a Session.
type Option func(*Session)

// WithID resumes an existing session instead of generating a fresh id.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// WithPersistence installs the backend used to load and save
// session-scope contexts.
func WithPersistence(p store.Persistence) Option {
	return func(s *Session) { s.persist = p }
}

// WithEmitter installs the semantic event sink.
func WithEmitter(e core.EventEmitter) Option {
	return func(s *Session) { s.emitter = e }
}

// Open creates a session over the given store and loads any persisted
// session-scope contexts into it.
func Open(ctx context.Context, st *store.Store, opts ...Option) (*Session, error) {
	s := &Session{
		id:      "sess-" + uuid.NewString(),
		st:      st,
		persist: store.NopPersistence{},
		emitter: core.NoopEventEmitter{},
	}
	for _, opt := range opts {
		opt(s)
	}

	contexts, err := s.persist.Load(ctx, s.id)
	if err != nil {
		return nil, errors.New(errors.CodeInternal, "load session "+s.id, err)
	}
	if len(contexts) > 0 {
		s.st.Restore(contexts)
		slog.Default().Info("session.restore",
			slog.String("session_id", s.id),
			slog.Int("contexts", len(contexts)),
		)
	}
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Store returns the session's context store.
func (s *Session) Store() *store.Store { return s.st }

// Context stamps the session id onto a context for downstream logging.
func (s *Session) Context(ctx context.Context) context.Context {
	return core.WithSessionID(ctx, s.id)
}

// BeginTurn starts a new turn: all turn-scope contexts are dropped while
// session-scope contexts stay put.
func (s *Session) BeginTurn(ctx context.Context) {
	s.st.Clear(store.ScopeTurn)
	s.emitter.Emit(ctx, core.NewEvent(core.EventTurnCleared, "", "", "", map[string]any{
		"session_id": s.id,
	}))
}

// Close saves the session-scope contexts through the persistence backend.
// The session remains usable afterwards; Close is a checkpoint, not a
// teardown.
func (s *Session) Close(ctx context.Context) error {
	contexts := s.st.SessionContexts()
	if err := s.persist.Save(ctx, s.id, contexts); err != nil {
		return errors.New(errors.CodeInternal, "save session "+s.id, err)
	}
	slog.Default().Info("session.save",
		slog.String("session_id", s.id),
		slog.Int("contexts", len(contexts)),
	)
	return nil
}
