package ports

import (
	"context"
	"time"
)

// UnlockFunc is a function that releases a session lock.
type UnlockFunc func(ctx context.Context) error

// SessionLocker defines the interface for per-session concurrency control.
// A conversation is single-threaded; hosts that expose one session to
// concurrent callers (HTTP, MCP) use a locker to serialize turns, and a
// distributed implementation coordinates access across replicas.
type SessionLocker interface {
	// Lock attempts to acquire the lock for the given key (e.g. session ID).
	// It blocks until the lock is acquired or the context is canceled.
	// Returns an UnlockFunc that MUST be called to release the lock.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
