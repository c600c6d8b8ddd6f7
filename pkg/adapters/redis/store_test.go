package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/parley/pkg/adapters/redis"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *backend.Client {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	return backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
}

func TestRedisStore_Contract(t *testing.T) {
	store := redis.NewFromClient(newTestClient(t))
	ports.RunConversationStoreContract(t, store)
}

func TestRedisStore_Prefix(t *testing.T) {
	client := newTestClient(t)
	store := redis.NewFromClient(client, redis.WithPrefix("custom:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "abc", domain.NewConversation("abc", "waiting")))

	val, err := client.Get(ctx, "custom:abc").Result()
	require.NoError(t, err)
	assert.Contains(t, val, `"current":"waiting"`)
}

func TestRedisStore_TTLIndexPrune(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	store := redis.NewFromClient(client, redis.WithTTL(time.Second))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "ephemeral", domain.NewConversation("ephemeral", "waiting")))

	sessions, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, sessions, "ephemeral")

	// miniredis expires the key on its own clock.
	mr.FastForward(2 * time.Second)
	_, err = store.Load(ctx, "ephemeral")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	// The index prune runs on wall time, so wait out the real TTL.
	time.Sleep(1100 * time.Millisecond)

	sessions, err = store.List(ctx)
	require.NoError(t, err)
	assert.NotContains(t, sessions, "ephemeral")
}
