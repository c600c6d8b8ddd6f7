// Package file implements a ConversationStore on the local filesystem,
// one JSON file per session. It backs the CLI's resumable sessions.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/parley/pkg/domain"
)

// Store implements ports.ConversationStore using the local filesystem.
type Store struct {
	BasePath string
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".parley/sessions".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".parley", "sessions")
	}
	return &Store{BasePath: basePath}
}

// path maps a session ID to its file, rejecting IDs that would escape
// the base directory.
func (s *Store) path(sessionID string) (string, error) {
	if sessionID == "" {
		return "", fmt.Errorf("sessionID cannot be empty")
	}
	if strings.ContainsAny(sessionID, `/\`) || sessionID == "." || sessionID == ".." {
		return "", fmt.Errorf("sessionID %q must not contain path separators", sessionID)
	}
	return filepath.Join(s.BasePath, sessionID+".json"), nil
}

// Save persists the conversation as readable, indented JSON.
func (s *Store) Save(ctx context.Context, sessionID string, conv *domain.Conversation) error {
	dest, err := s.path(sessionID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.BasePath, 0o755); err != nil {
		return fmt.Errorf("ensure session directory: %w", err)
	}

	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal conversation: %w", err)
	}

	return writeAtomic(s.BasePath, dest, data)
}

// writeAtomic lands data at dest by writing a temp file in the same
// directory, fsyncing and renaming it into place. List skips the tmp-
// prefix, so a crash never leaves a half-written session visible.
func writeAtomic(dir, dest string, data []byte) error {
	tmp, err := os.CreateTemp(dir, "tmp-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name()) // no-op once renamed
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	// Windows also refuses to rename over an existing file. The brief
	// delete window beats leaving a partially written session behind.
	if _, err := os.Stat(dest); err == nil {
		if err := os.Remove(dest); err != nil {
			return fmt.Errorf("replace session file: %w", err)
		}
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("rename temp file into place: %w", err)
	}
	return nil
}

// Load retrieves the conversation from its JSON file.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	path, err := s.path(sessionID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}

	conv := &domain.Conversation{}
	if err := json.Unmarshal(data, conv); err != nil {
		return nil, fmt.Errorf("unmarshal conversation: %w", err)
	}
	return conv, nil
}

// Delete removes the session file. Deleting an absent session is not an
// error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	path, err := s.path(sessionID)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete session file: %w", err)
	}
	return nil
}

// List returns the session IDs present in the base directory, sorted by
// ID. A directory that does not exist yet is an empty store.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	var sessions []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, "tmp-") {
			continue
		}
		sessions = append(sessions, strings.TrimSuffix(name, ".json"))
	}
	return sessions, nil
}
