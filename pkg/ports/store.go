package ports

import (
	"context"

	"github.com/aretw0/parley/pkg/domain"
)

// ConversationStore defines the interface for persisting conversation
// snapshots. This enables sessions that survive process restarts and
// hosts that multiplex many conversations over shared scripts.
type ConversationStore interface {
	// Save persists the conversation for a given session ID.
	Save(ctx context.Context, sessionID string, conv *domain.Conversation) error

	// Load retrieves the conversation for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.Conversation, error)

	// Delete removes the conversation for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns the session IDs currently known to the store.
	List(ctx context.Context) ([]string, error)
}
