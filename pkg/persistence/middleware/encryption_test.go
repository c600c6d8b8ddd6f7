package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"testing"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/persistence/middleware"
)

func generateKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func newEncrypted(t *testing.T, config middleware.EncryptionConfig) middleware.Middleware {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(config)
	if err != nil {
		t.Fatalf("NewEncryptionMiddleware failed: %v", err)
	}
	return mw
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlyingStore := NewMockStore()
	key := generateKey(t)
	mw := newEncrypted(t, middleware.EncryptionConfig{ActiveKey: key})
	secureStore := mw(underlyingStore)

	ctx := context.Background()
	sessionID := "test-session"
	original := domain.NewConversation(sessionID, "waiting")
	original.Visit("salary_case")

	// 1. Save
	if err := secureStore.Save(ctx, sessionID, original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// 2. Verify underlying store directly (should be an opaque envelope)
	stored, err := underlyingStore.Load(ctx, sessionID)
	if err != nil {
		t.Fatalf("Underlying load failed: %v", err)
	}
	if stored.Current != "encrypted" {
		t.Errorf("Expected the envelope marker, got state %q", stored.Current)
	}
	for _, state := range stored.History {
		if state == "waiting" || state == "salary_case" {
			t.Fatalf("Expected the visit history to be hidden, found %q", state)
		}
	}
	if stored.SessionID != sessionID {
		t.Errorf("Envelope must keep the session ID readable, got %q", stored.SessionID)
	}

	// 3. Load via middleware (should be decrypted)
	loaded, err := secureStore.Load(ctx, sessionID)
	if err != nil {
		t.Fatalf("Load via middleware failed: %v", err)
	}
	if loaded.Current != "salary_case" {
		t.Errorf("Expected to land in salary_case, got %q", loaded.Current)
	}
	if len(loaded.History) != 2 {
		t.Errorf("Expected the full history back, got %v", loaded.History)
	}
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlyingStore := NewMockStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)

	// Save the initial snapshot with the OLD key
	secureStoreOld := newEncrypted(t, middleware.EncryptionConfig{ActiveKey: oldKey})(underlyingStore)

	ctx := context.Background()
	sessionID := "rotation-session"
	original := domain.NewConversation(sessionID, "waiting")
	original.Visit("diagnose")

	if err := secureStoreOld.Save(ctx, sessionID, original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Load with NEW key (active) + OLD key (fallback)
	secureStoreNew := newEncrypted(t, middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(underlyingStore)

	loaded, err := secureStoreNew.Load(ctx, sessionID)
	if err != nil {
		t.Fatalf("Load with rotated key failed: %v", err)
	}
	if loaded.Current != "diagnose" {
		t.Errorf("Decryption with the fallback key failed, got state %q", loaded.Current)
	}

	// Save again; the snapshot is now sealed with the NEW key
	loaded.Visit("escalate")
	if err := secureStoreNew.Save(ctx, sessionID, loaded); err != nil {
		t.Fatalf("Save with new key failed: %v", err)
	}

	// The old-key middleware can no longer read it
	if _, err := secureStoreOld.Load(ctx, sessionID); err == nil {
		t.Error("Expected failure when loading new-key encryption with old-key middleware")
	}
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	if err == nil {
		t.Error("Expected an error for an invalid key size")
	}
}

func TestEncryptionMiddleware_FailsSecureOnPlainSnapshot(t *testing.T) {
	underlyingStore := NewMockStore()
	ctx := context.Background()

	// A snapshot saved before encryption was enabled
	plain := domain.NewConversation("legacy", "waiting")
	if err := underlyingStore.Save(ctx, "legacy", plain); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	secureStore := newEncrypted(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlyingStore)
	if _, err := secureStore.Load(ctx, "legacy"); err == nil {
		t.Error("Expected failure when loading an unencrypted snapshot")
	}
}

func TestFromEnvironment(t *testing.T) {
	t.Run("unset", func(t *testing.T) {
		t.Setenv(middleware.EnvSessionKey, "")
		t.Setenv(middleware.EnvScrubStates, "")
		mw, err := middleware.FromEnvironment()
		if err != nil {
			t.Fatalf("FromEnvironment failed: %v", err)
		}
		if mw != nil {
			t.Error("Expected no middleware when the environment is empty")
		}
	})

	t.Run("encrypts with the configured key", func(t *testing.T) {
		key := generateKey(t)
		t.Setenv(middleware.EnvSessionKey, hex.EncodeToString(key))
		t.Setenv(middleware.EnvScrubStates, "")

		mw, err := middleware.FromEnvironment()
		if err != nil {
			t.Fatalf("FromEnvironment failed: %v", err)
		}
		if mw == nil {
			t.Fatal("Expected a middleware chain")
		}

		underlyingStore := NewMockStore()
		secureStore := mw(underlyingStore)
		ctx := context.Background()
		conv := domain.NewConversation("env-session", "waiting")
		if err := secureStore.Save(ctx, "env-session", conv); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		stored, err := underlyingStore.Load(ctx, "env-session")
		if err != nil {
			t.Fatalf("Underlying load failed: %v", err)
		}
		if stored.Current != "encrypted" {
			t.Errorf("Expected an encrypted envelope, got state %q", stored.Current)
		}

		loaded, err := secureStore.Load(ctx, "env-session")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if loaded.Current != "waiting" {
			t.Errorf("Roundtrip failed, got state %q", loaded.Current)
		}
	})

	t.Run("rejects malformed keys", func(t *testing.T) {
		t.Setenv(middleware.EnvSessionKey, "not-hex")
		t.Setenv(middleware.EnvScrubStates, "")
		if _, err := middleware.FromEnvironment(); err == nil {
			t.Error("Expected an error for a malformed key")
		}
	})
}
