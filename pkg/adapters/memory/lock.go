package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/parley/pkg/ports"
)

// Locker implements ports.SessionLocker with an in-process keyed mutex.
// The TTL is ignored: an in-process lock dies with the process, so there
// is no crashed-holder scenario to expire.
type Locker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewLocker creates a new in-process locker.
func NewLocker() *Locker {
	return &Locker{
		locks: make(map[string]chan struct{}),
	}
}

// Lock blocks until the key is free or the context is canceled.
func (l *Locker) Lock(ctx context.Context, key string, _ time.Duration) (ports.UnlockFunc, error) {
	for {
		l.mu.Lock()
		held, ok := l.locks[key]
		if !ok {
			done := make(chan struct{})
			l.locks[key] = done
			l.mu.Unlock()

			var once sync.Once
			return func(context.Context) error {
				once.Do(func() {
					l.mu.Lock()
					delete(l.locks, key)
					l.mu.Unlock()
					close(done)
				})
				return nil
			}, nil
		}
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-held:
			// Holder released; race for it again.
		}
	}
}
