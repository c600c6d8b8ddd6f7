package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/aretw0/parley/pkg/domain"
)

// Store keeps conversations in a process-local map, the default for
// single-binary runs and tests. Snapshots are cloned on both write and
// read so no caller shares memory with the store. Safe for concurrent
// use.
type Store struct {
	mu   sync.RWMutex
	data map[string]*domain.Conversation
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{data: make(map[string]*domain.Conversation)}
}

// Save stores a snapshot of the conversation.
func (s *Store) Save(ctx context.Context, sessionID string, conv *domain.Conversation) error {
	snap := conv.Clone()

	s.mu.Lock()
	s.data[sessionID] = snap
	s.mu.Unlock()
	return nil
}

// Load returns a snapshot of the stored conversation, or
// domain.ErrSessionNotFound. Stored entries are never mutated in
// place, so cloning outside the lock is safe.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	s.mu.RLock()
	conv, ok := s.data[sessionID]
	s.mu.RUnlock()

	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return conv.Clone(), nil
}

// Delete removes the conversation. Unknown sessions are not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.data, sessionID)
	s.mu.Unlock()
	return nil
}

// List returns stored session IDs in sorted order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.data)), nil
}
