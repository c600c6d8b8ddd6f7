package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

// envelopeMarker is the state name stored snapshots carry in place of
// their real resting state.
const envelopeMarker = "encrypted"

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new snapshots.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

// keyring holds one AEAD per configured key, built once so Save and
// Load do no cipher setup.
type keyring struct {
	active    cipher.AEAD
	fallbacks []cipher.AEAD
}

func newKeyring(config EncryptionConfig) (*keyring, error) {
	if len(config.ActiveKey) != 32 {
		return nil, fmt.Errorf("active key must be 32 bytes (AES-256), got %d", len(config.ActiveKey))
	}

	ring := &keyring{}
	var err error
	if ring.active, err = newGCM(config.ActiveKey); err != nil {
		return nil, err
	}

	for i, key := range config.FallbackKeys {
		if len(key) != 32 {
			return nil, fmt.Errorf("fallback key %d must be 32 bytes (AES-256), got %d", i, len(key))
		}
		aead, err := newGCM(key)
		if err != nil {
			return nil, err
		}
		ring.fallbacks = append(ring.fallbacks, aead)
	}
	return ring, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// seal encrypts plaintext under the active key, nonce prepended.
func (k *keyring) seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, k.active.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return k.active.Seal(nonce, nonce, plaintext, nil), nil
}

// open decrypts with the active key first, then each fallback in order.
func (k *keyring) open(ciphertext []byte) ([]byte, error) {
	if plain, err := gcmOpen(k.active, ciphertext); err == nil {
		return plain, nil
	}
	for _, aead := range k.fallbacks {
		if plain, err := gcmOpen(aead, ciphertext); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func gcmOpen(aead cipher.AEAD, ciphertext []byte) ([]byte, error) {
	ns := aead.NonceSize()
	if len(ciphertext) < ns {
		return nil, errors.New("ciphertext too short")
	}
	return aead.Open(nil, ciphertext[:ns], ciphertext[ns:], nil)
}

type encryptionMiddleware struct {
	next ports.ConversationStore
	keys *keyring
}

// NewEncryptionMiddleware creates a middleware that encrypts snapshots
// with AES-GCM. What reaches the underlying store is an opaque envelope
// that keeps the session ID and timestamp readable for listing, and
// hides the resting state and visit history.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	keys, err := newKeyring(config)
	if err != nil {
		return nil, err
	}
	return func(next ports.ConversationStore) ports.ConversationStore {
		return &encryptionMiddleware{next: next, keys: keys}
	}, nil
}

func (m *encryptionMiddleware) Save(ctx context.Context, sessionID string, conv *domain.Conversation) error {
	plain, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("marshal conversation: %w", err)
	}

	sealed, err := m.keys.seal(plain)
	if err != nil {
		return fmt.Errorf("encrypt conversation: %w", err)
	}

	return m.next.Save(ctx, sessionID, &domain.Conversation{
		SessionID: conv.SessionID,
		Current:   envelopeMarker,
		History:   []string{base64.StdEncoding.EncodeToString(sealed)},
		UpdatedAt: conv.UpdatedAt,
	})
}

func (m *encryptionMiddleware) Load(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	envelope, err := m.next.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// A plain snapshot here means encryption was enabled on a store that
	// already holds unencrypted sessions. Fail secure instead of passing
	// it through.
	if envelope.Current != envelopeMarker || len(envelope.History) != 1 {
		return nil, errors.New("snapshot is missing the encrypted envelope")
	}

	sealed, err := base64.StdEncoding.DecodeString(envelope.History[0])
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}

	plain, err := m.keys.open(sealed)
	if err != nil {
		return nil, fmt.Errorf("decrypt conversation: %w", err)
	}

	conv := &domain.Conversation{}
	if err := json.Unmarshal(plain, conv); err != nil {
		return nil, fmt.Errorf("unmarshal decrypted conversation: %w", err)
	}
	return conv, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
