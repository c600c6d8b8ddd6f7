package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunConversationStoreContract runs a suite of tests to verify that a
// ConversationStore implementation adheres to the defined interface
// contract.
func RunConversationStoreContract(t *testing.T, store ConversationStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		conv := domain.NewConversation(sessionID, "waiting")
		conv.Visit("ask_need")

		err := store.Save(ctx, sessionID, conv)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, conv.Current, loaded.Current)
		assert.Equal(t, conv.History, loaded.History)
	})

	t.Run("Load returns a copy", func(t *testing.T) {
		conv := domain.NewConversation(sessionID, "waiting")
		require.NoError(t, store.Save(ctx, sessionID, conv))

		first, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		first.Visit("ask_need")

		second, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "waiting", second.Current, "mutating a loaded snapshot must not leak into the store")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, domain.NewConversation(sessionID, "waiting"))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewConversation(id1, "waiting"))
		_ = store.Save(ctx, id2, domain.NewConversation(id2, "waiting"))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
