// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FilePersistence stores each session's contexts as a JSON file.
// Suitable for simple persistence without external dependencies.
type FilePersistence struct {
	mu      sync.Mutex
	baseDir string
}

// NewFilePersistence creates a file-backed persistence collaborator.
func NewFilePersistence(baseDir string) (*FilePersistence, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create persistence directory: %w", err)
	}
	return &FilePersistence{baseDir: baseDir}, nil
}

func (f *FilePersistence) sessionFile(sessionID string) string {
	// filepath.Base guards against path traversal in session ids.
	return filepath.Join(f.baseDir, filepath.Base(sessionID)+".json")
}

// Load implements Persistence.
func (f *FilePersistence) Load(_ context.Context, sessionID string) ([]Context, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.sessionFile(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var contexts []Context
	if err := json.Unmarshal(data, &contexts); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return contexts, nil
}

// Save implements Persistence.
func (f *FilePersistence) Save(_ context.Context, sessionID string, contexts []Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.MarshalIndent(contexts, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sessionID, err)
	}
	path := f.sessionFile(sessionID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
