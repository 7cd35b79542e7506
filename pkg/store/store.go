// SPDX-License-Identifier: Apache-2.0

package store

import (
	"sort"
	"sync"
	"time"

	"github.com/jllopis/telos/pkg/errors"
)

// Store is the typed context store for one orchestrator session. It is not
// a process-wide singleton: each session owns its own instance. Writes are
// serialized per scope so concurrent branches cannot lose updates.
type Store struct {
	typesMu sync.RWMutex
	types   map[TypeName]ContextType

	turn    *scopeState
	session *scopeState
}

type scopeState struct {
	mu sync.RWMutex
	// current holds the latest committed version per type.
	current map[TypeName]Context
	// versions survives Clear so version numbers stay monotonic.
	versions map[TypeName]int
	// history retains superseded versions for diagnostics.
	history map[TypeName][]Context
}

func newScopeState() *scopeState {
	return &scopeState{
		current:  make(map[TypeName]Context),
		versions: make(map[TypeName]int),
		history:  make(map[TypeName][]Context),
	}
}

// New creates an empty store with no registered types.
func New() *Store {
	return &Store{
		types:   make(map[TypeName]ContextType),
		turn:    newScopeState(),
		session: newScopeState(),
	}
}

// RegisterType declares a context type. Duplicate identifiers are a
// configuration error.
func (s *Store) RegisterType(ct ContextType) error {
	if ct.Name == "" {
		return errors.New(errors.CodeRegistration, "context type name is required", nil)
	}
	if ct.Scope == "" {
		ct.Scope = ScopeTurn
	}
	if !ct.Scope.Valid() {
		return errors.Newf(errors.CodeRegistration, "context type %q has invalid scope %q", ct.Name, ct.Scope)
	}
	s.typesMu.Lock()
	defer s.typesMu.Unlock()
	if _, exists := s.types[ct.Name]; exists {
		return errors.Newf(errors.CodeRegistration, "context type %q already registered", ct.Name)
	}
	s.types[ct.Name] = ct
	return nil
}

// Type returns the declaration for a registered context type.
func (s *Store) Type(name TypeName) (ContextType, bool) {
	s.typesMu.RLock()
	defer s.typesMu.RUnlock()
	ct, ok := s.types[name]
	return ct, ok
}

// Types returns the registered type names in lexical order.
func (s *Store) Types() []TypeName {
	s.typesMu.RLock()
	defer s.typesMu.RUnlock()
	out := make([]TypeName, 0, len(s.types))
	for name := range s.types {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *Store) scope(scope Scope) *scopeState {
	if scope == ScopeSession {
		return s.session
	}
	return s.turn
}

// Put writes a context instance into the given scope, validating its
// payload and assigning the next version. The superseded version, if any,
// is retained in history.
func (s *Store) Put(c Context, scope Scope) (Context, error) {
	if !scope.Valid() {
		return Context{}, errors.Newf(errors.CodeValidation, "invalid scope %q", scope)
	}
	ct, ok := s.Type(c.Type)
	if !ok {
		return Context{}, errors.Newf(errors.CodeNotFound, "context type %q not registered", c.Type)
	}
	if err := ct.Schema.Validate(c.Payload); err != nil {
		return Context{}, errors.AsError(err).WithContext("type", string(c.Type))
	}

	st := s.scope(scope)
	st.mu.Lock()
	defer st.mu.Unlock()

	if prev, exists := st.current[c.Type]; exists {
		st.history[c.Type] = append(st.history[c.Type], prev)
	}
	st.versions[c.Type]++
	c.Scope = scope
	c.Version = st.versions[c.Type]
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	st.current[c.Type] = c
	return c, nil
}

// Get returns the current instance of a type in the given scope.
func (s *Store) Get(name TypeName, scope Scope) (Context, bool) {
	st := s.scope(scope)
	st.mu.RLock()
	defer st.mu.RUnlock()
	c, ok := st.current[name]
	return c, ok
}

// Lookup returns the current instance of a type, with turn scope
// shadowing session scope. This is the view the resolver and the binding
// step observe.
func (s *Store) Lookup(name TypeName) (Context, bool) {
	if c, ok := s.Get(name, ScopeTurn); ok {
		return c, true
	}
	return s.Get(name, ScopeSession)
}

// Has reports whether a current instance of the type exists in any scope.
func (s *Store) Has(name TypeName) bool {
	_, ok := s.Lookup(name)
	return ok
}

// History returns superseded versions of a type in the given scope,
// oldest first.
func (s *Store) History(name TypeName, scope Scope) []Context {
	st := s.scope(scope)
	st.mu.RLock()
	defer st.mu.RUnlock()
	hist := st.history[name]
	out := make([]Context, len(hist))
	copy(out, hist)
	return out
}

// Snapshot is an immutable copy of the store's current contents.
type Snapshot struct {
	Turn    map[TypeName]Context
	Session map[TypeName]Context
	TakenAt time.Time
}

// Snapshot copies the current contents of both scopes for diagnostics
// or checkpointing.
func (s *Store) Snapshot() Snapshot {
	snap := Snapshot{
		Turn:    make(map[TypeName]Context),
		Session: make(map[TypeName]Context),
		TakenAt: time.Now().UTC(),
	}
	s.turn.mu.RLock()
	for name, c := range s.turn.current {
		snap.Turn[name] = c.Clone()
	}
	s.turn.mu.RUnlock()
	s.session.mu.RLock()
	for name, c := range s.session.current {
		snap.Session[name] = c.Clone()
	}
	s.session.mu.RUnlock()
	return snap
}

// Clear wipes the current contents of a scope. Version counters and
// history survive, so later writes keep monotonic versions. The session
// scope is never cleared implicitly; callers must ask for it.
func (s *Store) Clear(scope Scope) {
	st := s.scope(scope)
	st.mu.Lock()
	defer st.mu.Unlock()
	for name, c := range st.current {
		st.history[name] = append(st.history[name], c)
	}
	st.current = make(map[TypeName]Context)
}

// Restore installs previously persisted session-scope contexts without
// schema validation or version reassignment. Used by the session loader.
func (s *Store) Restore(contexts []Context) {
	s.session.mu.Lock()
	defer s.session.mu.Unlock()
	for _, c := range contexts {
		if c.Scope != ScopeSession {
			continue
		}
		s.session.current[c.Type] = c
		if c.Version > s.session.versions[c.Type] {
			s.session.versions[c.Type] = c.Version
		}
	}
}

// SessionContexts returns the current session-scope contexts, ordered by
// type name. Used by the session saver.
func (s *Store) SessionContexts() []Context {
	s.session.mu.RLock()
	defer s.session.mu.RUnlock()
	out := make([]Context, 0, len(s.session.current))
	for _, c := range s.session.current {
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}
