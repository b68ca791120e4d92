// Package cache provides the response cache used by the care administration
// API, backed by a shared Redis instance.
//
// The store implements read-through caching for idempotent queries and
// coarse-grained invalidation for writes:
//
// - Versioned keys: every entry lives under VersionPrefix + version + ":" + key
// - Lazy expiry: ExpiresAt is checked on every read, expired entries are purged
// - Backend TTL: Redis expires entries on its own as a second line of defense
// - Tag index: one Redis set per tag listing the versioned keys carrying it
// - Bulk invalidation by key, prefix, tag set or version epoch
// - Prometheus metrics and zerolog logging
//
// # Basic Usage
//
//	// Create Redis client
//	rdb, err := cache.NewRedisClient(cache.DefaultRedisConfig())
//	if err != nil {
//		return err
//	}
//
//	// Create cache store
//	store, err := cache.NewStore(rdb, cache.DefaultConfig(), logger)
//	if err != nil {
//		return err
//	}
//
//	// Read through the cache
//	page, err := cache.Fetch(ctx, store, "clients:1:10:::::::", loadClients,
//		cache.WithTTL(10*time.Minute), cache.WithTags("clients"))
//
//	// After creating a client
//	if _, err := store.DeleteByPrefix(ctx, "clients:"); err != nil {
//		logger.Warn().Err(err).Msg("Cache invalidation failed")
//	}
//
// # Failure Policy
//
// Every backend failure is returned as *Error, which matches ErrUnavailable.
// Readers fall back to the database (Fetch does this automatically) and
// writers log and continue: a missed invalidation only risks stale reads
// until the entry's TTL runs out. The store never retries; the redis client's
// MaxRetries is the only retry policy, and Config.OpTimeout bounds every call.
//
// Caller mistakes are not failures of the backend: an empty key or a bad
// version returns ErrInvalidKey, and an entry larger than
// Config.MaxEntryBytes returns ErrEntryTooLarge from Set without touching the
// backend. Fetch logs such a write and serves the value uncached.
//
// # Consistency
//
// There is no cross-key atomicity. Set writes the entry and then updates N
// tag sets as separate commands, so a failure can leave an entry stored but
// not fully indexed, and a Set racing InvalidateByTags can outlive the
// invalidation. Config.AtomicTags runs the write as one Lua script instead,
// which removes the race on a single-node backend.
//
// Logical keys may contain any character; prefixes are glob-escaped before
// they reach SCAN MATCH.
//
// # Metrics
//
// The store exports Prometheus metrics:
//
//   - careadmin_cache_hits_total - Cache hits
//   - careadmin_cache_misses_total - Cache misses (absent or expired)
//   - careadmin_cache_expired_total - Entries purged lazily on read
//   - careadmin_cache_errors_total{operation} - Cache operation errors
//   - careadmin_cache_invalidated_keys_total{kind} - Entries removed by invalidation
//   - careadmin_cache_operation_duration_seconds{operation} - Backend round-trip time
//   - careadmin_cache_fetch_fallbacks_total - Read-through calls that bypassed the cache
package cache
