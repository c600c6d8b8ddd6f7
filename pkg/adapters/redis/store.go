// Package redis provides a ConversationStore and SessionLocker backed by
// Redis, for deployments where sessions must survive restarts or be shared
// across replicas.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aretw0/parley/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// noExpiry is the index score used for sessions without a TTL.
// 2100-01-01, far enough for now.
const noExpiry = 4102444800

// Store implements ports.ConversationStore on a Redis client. Each
// conversation is one JSON value under prefix+sessionID, and a ZSET at
// prefix+"index" tracks session IDs scored by expiry time so List can
// prune entries whose keys Redis already dropped.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for sessions.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithPrefix sets the key prefix for sessions.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// New dials Redis and returns a store over the connection.
func New(address, password string, db int, opts ...Option) *Store {
	return NewFromClient(backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	}), opts...)
}

// NewFromClient wraps an existing client, e.g. one shared with a locker.
// Sessions do not expire unless WithTTL is given.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{client: client, prefix: "parley:session:"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(sessionID string) string { return s.prefix + sessionID }

func (s *Store) index() string { return s.prefix + "index" }

// score is the index entry for a session written now: its expiry unix
// time, or noExpiry when sessions never expire.
func (s *Store) score() float64 {
	if s.ttl == 0 {
		return noExpiry
	}
	return float64(time.Now().Add(s.ttl).Unix())
}

// Save writes the conversation JSON and its index entry in one
// transaction.
func (s *Store) Save(ctx context.Context, sessionID string, conv *domain.Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("marshal conversation: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Set(ctx, s.key(sessionID), data, s.ttl)
		pipe.ZAdd(ctx, s.index(), backend.Z{Score: s.score(), Member: sessionID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save: %w", err)
	}
	return nil
}

// Load retrieves the conversation, mapping a missing key to
// domain.ErrSessionNotFound.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err == backend.Nil {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	conv := &domain.Conversation{}
	if err := json.Unmarshal(data, conv); err != nil {
		return nil, fmt.Errorf("unmarshal conversation: %w", err)
	}
	return conv, nil
}

// Delete removes the session value and its index entry.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Del(ctx, s.key(sessionID))
		pipe.ZRem(ctx, s.index(), sessionID)
		return nil
	})
	return err
}

// List returns active session IDs, first dropping index entries whose
// expiry has passed.
func (s *Store) List(ctx context.Context) ([]string, error) {
	cutoff := fmt.Sprintf("%f", float64(time.Now().Unix()))
	if err := s.client.ZRemRangeByScore(ctx, s.index(), "-inf", cutoff).Err(); err != nil {
		return nil, fmt.Errorf("prune session index: %w", err)
	}

	ids, err := s.client.ZRange(ctx, s.index(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return ids, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
