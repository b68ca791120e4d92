// Package testutil provides testing utilities for the cache packages.
package testutil

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// NewRedis starts an in-memory Redis server and returns it with a connected
// client. Both are shut down when the test ends.
//
// Use the returned server to move time forward (FastForward), inject
// failures (SetError) or inspect keys directly.
func NewRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr:       server.Addr(),
		MaxRetries: -1, // surface injected failures immediately
	})

	t.Cleanup(func() {
		client.Close()
	})

	return server, client
}

// NewUnreachableRedis returns a client pointing at a closed server, for
// exercising outage paths.
func NewUnreachableRedis(t testing.TB) *redis.Client {
	t.Helper()

	server := miniredis.RunT(t)
	addr := server.Addr()
	server.Close()

	client := redis.NewClient(&redis.Options{
		Addr:       addr,
		MaxRetries: -1,
	})
	t.Cleanup(func() {
		client.Close()
	})

	return client
}

// NewRedisCluster returns an in-memory Redis behind a cluster client. The
// server answers CLUSTER SLOTS as a single master owning every slot, which
// drives the cluster code paths of callers.
func NewRedisCluster(t testing.TB) (*miniredis.Miniredis, *redis.ClusterClient) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClusterClient(&redis.ClusterOptions{
		Addrs:      []string{server.Addr()},
		MaxRetries: -1,
	})

	t.Cleanup(func() {
		client.Close()
	})

	return server, client
}
