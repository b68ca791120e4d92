//go:build integration

package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	rc := DefaultRedisConfig()
	rc.URL = fmt.Sprintf("redis://%s:%s/0", host, port.Port())
	client, err := NewRedisClient(rc)
	if err != nil {
		t.Fatalf("Failed to create Redis client: %v", err)
	}

	cleanup := func() {
		client.Close()
		container.Terminate(ctx)
	}

	return client, cleanup
}

func TestIntegration_StoreLifecycle(t *testing.T) {
	client, cleanup := setupRedis(t)
	defer cleanup()

	for _, atomic := range []bool{false, true} {
		t.Run(fmt.Sprintf("atomic=%v", atomic), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.AtomicTags = atomic

			store, err := NewStore(client, cfg, zerolog.Nop())
			require.NoError(t, err)

			ctx := context.Background()
			require.NoError(t, store.Clear(ctx))
			require.NoError(t, store.Ping(ctx))

			page := samplePage()
			require.NoError(t, Set(ctx, store, "clients:1:10:::::::", page, WithTags("clients")))
			require.NoError(t, Set(ctx, store, "clients:2:10:::::::", page, WithTags("clients")))
			require.NoError(t, Set(ctx, store, "contracts:1:10", "c", WithTags("contracts")))

			got, found, err := Get[clientPage](ctx, store, "clients:1:10:::::::")
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, page, got)

			ttl, err := client.TTL(ctx, "v1:clients:1:10:::::::").Result()
			require.NoError(t, err)
			assert.InDelta(t, time.Hour.Seconds(), ttl.Seconds(), 5)

			stats, err := store.Stats(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(5), stats.TotalKeys)
			assert.Equal(t, int64(2), stats.TotalTags)

			deleted, err := store.InvalidateByTags(ctx, []string{"clients"})
			require.NoError(t, err)
			assert.Equal(t, 2, deleted)

			deleted, err = store.DeleteByPrefix(ctx, "contracts:")
			require.NoError(t, err)
			assert.Equal(t, 1, deleted)

			_, err = store.InvalidateByVersion(ctx, "1")
			require.NoError(t, err)

			stats, err = store.Stats(ctx)
			require.NoError(t, err)
			assert.Zero(t, stats.TotalKeys, "tag sets are pruned with their entries")
		})
	}
}

func TestIntegration_BackendExpiry(t *testing.T) {
	client, cleanup := setupRedis(t)
	defer cleanup()

	store, err := NewStore(client, DefaultConfig(), zerolog.Nop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, Set(ctx, store, "short", "lived", WithTTL(time.Second)))

	time.Sleep(1500 * time.Millisecond)

	exists, err := client.Exists(ctx, "v1:short").Result()
	require.NoError(t, err)
	assert.Zero(t, exists)

	_, found, err := Get[string](ctx, store, "short")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestIntegration_DeleteByPrefix_LargeKeyspace(t *testing.T) {
	client, cleanup := setupRedis(t)
	defer cleanup()

	cfg := DefaultConfig()
	cfg.ScanCount = 50
	cfg.DeleteBatchSize = 64

	store, err := NewStore(client, cfg, zerolog.Nop())
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 1000; i++ {
		require.NoError(t, Set(ctx, store, JoinKey("clients", i, 10), i))
	}
	require.NoError(t, Set(ctx, store, "contracts:1", 1))

	deleted, err := store.DeleteByPrefix(ctx, "clients:")
	require.NoError(t, err)
	assert.Equal(t, 1000, deleted)

	_, found, err := Get[int](ctx, store, "contracts:1")
	require.NoError(t, err)
	assert.True(t, found)
}
