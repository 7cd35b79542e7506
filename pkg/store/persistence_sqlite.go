// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLitePersistence stores session contexts in a SQLite database.
type SQLitePersistence struct {
	db *sql.DB
}

// OpenSQLitePersistence opens (or creates) a SQLite database at path and
// ensures the schema. Use ":memory:" for tests.
func OpenSQLitePersistence(path string) (*SQLitePersistence, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	p, err := NewSQLitePersistence(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

// NewSQLitePersistence wraps an existing database handle and ensures the
// schema.
func NewSQLitePersistence(db *sql.DB) (*SQLitePersistence, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	if err := ensureSessionSchema(db); err != nil {
		return nil, err
	}
	return &SQLitePersistence{db: db}, nil
}

// Close closes the underlying database handle.
func (p *SQLitePersistence) Close() error {
	return p.db.Close()
}

// Load implements Persistence.
func (p *SQLitePersistence) Load(ctx context.Context, sessionID string) ([]Context, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT type, version, payload_json, produced_by, created_at
		FROM session_contexts
		WHERE session_id = ?
		ORDER BY type ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Context
	for rows.Next() {
		var (
			c           Context
			payloadJSON string
			created     sql.NullTime
		)
		if err := rows.Scan(&c.Type, &c.Version, &payloadJSON, &c.ProducedBy, &created); err != nil {
			return nil, err
		}
		c.Scope = ScopeSession
		if payloadJSON != "" {
			if err := json.Unmarshal([]byte(payloadJSON), &c.Payload); err != nil {
				return nil, fmt.Errorf("decode payload for %s: %w", c.Type, err)
			}
		}
		if created.Valid {
			c.CreatedAt = created.Time
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Save implements Persistence. The stored set is replaced atomically.
func (p *SQLitePersistence) Save(ctx context.Context, sessionID string, contexts []Context) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM session_contexts WHERE session_id = ?`, sessionID); err != nil {
		return err
	}
	for _, c := range contexts {
		if c.Scope != ScopeSession {
			continue
		}
		payload, err := json.Marshal(c.Payload)
		if err != nil {
			return fmt.Errorf("encode payload for %s: %w", c.Type, err)
		}
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO session_contexts (session_id, type, version, payload_json, produced_by, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, sessionID, string(c.Type), c.Version, string(payload), c.ProducedBy, createdAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func ensureSessionSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS session_contexts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			type TEXT NOT NULL,
			version INTEGER NOT NULL,
			payload_json TEXT,
			produced_by TEXT,
			created_at TIMESTAMP
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_session_contexts_key
			ON session_contexts(session_id, type);
	`)
	return err
}
