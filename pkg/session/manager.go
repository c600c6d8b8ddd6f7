package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

// lockTTL bounds how long a replica may hold a distributed lock before
// it expires on its own.
const lockTTL = 30 * time.Second

// lockEntry is one session's in-process mutex plus the number of
// holders and waiters keeping it alive.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager mediates store access so that each session sees one operation
// at a time. Entries in the lock map are reference counted and removed
// once nobody holds or waits on them.
type Manager struct {
	store ports.ConversationStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker ports.SessionLocker
	logger *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking for multi-replica deployments.
func WithLocker(locker ports.SessionLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLogger configures a logger for deferred errors.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a session Manager over the given store.
func NewManager(store ports.ConversationStore, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		locks:  make(map[string]*lockEntry),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// lockSession blocks until the caller holds the session's in-process
// lock and returns the function releasing it. The entry leaves the map
// when its last holder or waiter releases.
func (m *Manager) lockSession(sessionID string) (release func()) {
	m.mu.Lock()
	entry := m.locks[sessionID]
	if entry == nil {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	m.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()

		m.mu.Lock()
		if entry.refs--; entry.refs <= 0 {
			delete(m.locks, sessionID)
		}
		m.mu.Unlock()
	}
}

// Load retrieves an existing conversation from the store.
func (m *Manager) Load(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	var conv *domain.Conversation
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		conv, err = m.store.Load(ctx, sessionID)
		return err
	})
	return conv, err
}

// LoadOrStart loads a conversation, creating and persisting a fresh one
// at the given start state when none exists. The immediate save
// reserves the ID so concurrent starters converge on one conversation.
func (m *Manager) LoadOrStart(ctx context.Context, sessionID, start string) (*domain.Conversation, error) {
	var conv *domain.Conversation
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		loaded, err := m.store.Load(ctx, sessionID)
		switch {
		case err == nil:
			conv = loaded
			return nil
		case !errors.Is(err, domain.ErrSessionNotFound):
			return fmt.Errorf("checking session %q: %w", sessionID, err)
		case start == "":
			return fmt.Errorf("session %q not found and no start state given", sessionID)
		}

		conv = domain.NewConversation(sessionID, start)
		if err := m.store.Save(ctx, sessionID, conv); err != nil {
			return fmt.Errorf("initializing session %q: %w", sessionID, err)
		}
		return nil
	})
	return conv, err
}

// Save persists the conversation.
func (m *Manager) Save(ctx context.Context, sessionID string, conv *domain.Conversation) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Save(ctx, sessionID, conv)
	})
}

// Delete removes the conversation from the store.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Delete(ctx, sessionID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying conversation store.
func (m *Manager) Store() ports.ConversationStore {
	return m.store
}

// WithLock executes fn while holding the session's lock. When a
// distributed locker is configured it is taken after the local mutex,
// so replicas contend on the shared lock while local callers queue in
// process.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	release := m.lockSession(sessionID)
	defer release()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, lockTTL)
		if err != nil {
			return fmt.Errorf("acquiring session lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("releasing distributed lock failed, waiting on TTL expiry",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
