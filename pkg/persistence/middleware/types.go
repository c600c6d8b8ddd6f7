// Package middleware decorates ConversationStore implementations with
// at-rest protections: AES-GCM encryption of snapshots and scrubbing of
// the visit history. Middlewares compose over any store (file, memory,
// Redis) without the store knowing.
package middleware

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/parley/pkg/ports"
)

// Middleware allows wrapping a ConversationStore to add behavior.
type Middleware func(ports.ConversationStore) ports.ConversationStore

// Chain composes middlewares so the first listed one sees calls first.
func Chain(mws ...Middleware) Middleware {
	return func(store ports.ConversationStore) ports.ConversationStore {
		for i := len(mws) - 1; i >= 0; i-- {
			store = mws[i](store)
		}
		return store
	}
}

// Environment variables read by FromEnvironment.
const (
	// EnvSessionKey holds comma-separated hex-encoded 32-byte keys. The
	// first key encrypts new snapshots; the rest are decryption fallbacks
	// for key rotation.
	EnvSessionKey = "PARLEY_SESSION_KEY"

	// EnvScrubStates holds comma-separated regular expressions. History
	// entries matching any of them are masked before a snapshot is saved.
	EnvScrubStates = "PARLEY_SCRUB_STATES"
)

// FromEnvironment builds the middleware chain the environment asks for,
// or nil when neither variable is set. Scrubbing runs before encryption;
// the other way around it would only ever see envelopes.
func FromEnvironment() (Middleware, error) {
	var mws []Middleware

	if raw := os.Getenv(EnvScrubStates); raw != "" {
		patterns := strings.Split(raw, ",")
		for i := range patterns {
			patterns[i] = strings.TrimSpace(patterns[i])
		}
		mw, err := NewScrubMiddleware(patterns)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvScrubStates, err)
		}
		mws = append(mws, mw)
	}

	if raw := os.Getenv(EnvSessionKey); raw != "" {
		keys, err := parseKeys(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvSessionKey, err)
		}
		config := EncryptionConfig{ActiveKey: keys[0]}
		if len(keys) > 1 {
			config.FallbackKeys = keys[1:]
		}
		mw, err := NewEncryptionMiddleware(config)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvSessionKey, err)
		}
		mws = append(mws, mw)
	}

	if len(mws) == 0 {
		return nil, nil
	}
	return Chain(mws...), nil
}

func parseKeys(raw string) ([][]byte, error) {
	parts := strings.Split(raw, ",")
	keys := make([][]byte, 0, len(parts))
	for _, part := range parts {
		key, err := hex.DecodeString(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("key is not valid hex: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("key must be 32 bytes (AES-256), got %d", len(key))
		}
		keys = append(keys, key)
	}
	return keys, nil
}
