package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Store is a versioned, tag-indexed cache over a shared redis backend.
//
// Store holds no locks: every call is an independent round trip (or
// pipeline), and writes to an entry and to its tag sets are separate
// commands unless Config.AtomicTags is set. A Set racing an
// InvalidateByTags for one of its tags can survive the invalidation.
type Store struct {
	rdb    redis.UniversalClient
	cfg    Config
	codec  Codec
	logger zerolog.Logger

	// now is swapped in tests to drive lazy expiry.
	now func() time.Time

	fills singleflight.Group
}

// Stats is a diagnostic snapshot of the backend.
type Stats struct {
	TotalKeys int64 `json:"totalKeys"`
	TotalTags int64 `json:"totalTags"`

	// MemoryUsage is always 0; the backend tier does not report it.
	MemoryUsage int64 `json:"memoryUsage"`
}

// NewStore creates a cache store on top of an existing redis client.
// The caller keeps ownership of the client.
func NewStore(rdb redis.UniversalClient, cfg Config, logger zerolog.Logger) (*Store, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cache config: %w", err)
	}

	codec, err := NewCodec(cfg.Codec, cfg.MaxEntryBytes)
	if err != nil {
		return nil, err
	}

	return &Store{
		rdb:    rdb,
		cfg:    cfg,
		codec:  codec,
		logger: logger.With().Str("component", "cache").Logger(),
		now:    time.Now,
	}, nil
}

// Config returns the configuration the store was built with.
func (s *Store) Config() Config {
	return s.cfg
}

// Ping checks that the backend answers.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return &Error{Op: "ping", Err: err}
	}
	return nil
}

func (s *Store) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.OpTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.cfg.OpTimeout)
}

func (s *Store) fail(op, key string, err error) error {
	CacheErrors.WithLabelValues(op).Inc()
	return &Error{Op: op, Key: key, Err: err}
}

// Get returns the live value stored under key.
// A missing or expired entry yields found=false with a nil error; expired
// entries are deleted on the way out.
func Get[T any](ctx context.Context, s *Store, key string, opts ...Option) (value T, found bool, err error) {
	entry, found, err := GetEntry[T](ctx, s, key, opts...)
	if err != nil || !found {
		return value, false, err
	}
	return entry.Data, true, nil
}

// GetEntry is Get returning the full entry including its metadata.
func GetEntry[T any](ctx context.Context, s *Store, key string, opts ...Option) (*Entry[T], bool, error) {
	if key == "" {
		return nil, false, fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	}
	o, err := s.resolve(opts)
	if err != nil {
		return nil, false, err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()
	defer observe("get", time.Now())

	vk := s.VersionedKey(key, o.version)

	raw, err := s.rdb.Get(ctx, vk).Bytes()
	if errors.Is(err, redis.Nil) {
		CacheMisses.Inc()
		s.logger.Debug().Str("key", vk).Bool("cache_hit", false).Msg("Cache miss")
		return nil, false, nil
	}
	if err != nil {
		return nil, false, s.fail("get", key, err)
	}

	var entry Entry[T]
	if err := s.codec.Unmarshal(raw, &entry); err != nil {
		// Unreadable entries are dropped so the next fill can replace them.
		if delErr := s.rdb.Del(ctx, vk).Err(); delErr != nil {
			s.logger.Warn().Err(delErr).Str("key", vk).Msg("Failed to delete invalid cache entry")
		}
		return nil, false, s.fail("decode", key, fmt.Errorf("%w: %v", ErrInvalidEntry, err))
	}

	if entry.Metadata.IsExpired(s.now()) {
		if err := s.rdb.Del(ctx, vk).Err(); err != nil {
			s.logger.Warn().Err(err).Str("key", vk).Msg("Failed to purge expired cache entry")
		}
		CacheExpired.Inc()
		CacheMisses.Inc()
		s.logger.Debug().Str("key", vk).Msg("Cache entry expired")
		return nil, false, nil
	}

	CacheHits.Inc()
	s.logger.Debug().
		Str("key", vk).
		Bool("cache_hit", true).
		Dur("ttl", entry.Metadata.TTL(s.now())).
		Msg("Cache hit")

	return &entry, true, nil
}

// Set stores value under key, replacing any previous entry.
//
// The entry is written with a backend expiry equal to its TTL, then its
// versioned key is removed from tag sets it no longer belongs to and added
// to each of its tags. Without Config.AtomicTags these are independent
// commands: on error the entry may be stored but only partly indexed.
func Set[T any](ctx context.Context, s *Store, key string, value T, opts ...Option) error {
	if key == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	}
	o, err := s.resolve(opts)
	if err != nil {
		return err
	}

	data, err := s.codec.Marshal(newEntry(key, value, o, s.now()))
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("encode cache entry %q: %w", key, err)
	}
	if s.cfg.MaxEntryBytes > 0 && len(data) > s.cfg.MaxEntryBytes {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("%w: %q is %d bytes, limit %d", ErrEntryTooLarge, key, len(data), s.cfg.MaxEntryBytes)
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()
	defer observe("set", time.Now())

	vk := s.VersionedKey(key, o.version)

	previous, err := s.previousTags(ctx, vk)
	if err != nil {
		return s.fail("set", key, err)
	}
	stale := subtractTags(previous, o.tags)

	if s.cfg.AtomicTags {
		if err := s.writeScripted(ctx, vk, data, o, stale); err != nil {
			return s.fail("set", key, err)
		}
	} else if err := s.writeSequential(ctx, vk, data, o, stale); err != nil {
		return s.fail("set", key, err)
	}

	s.logger.Debug().
		Str("key", vk).
		Strs("tags", o.tags).
		Dur("ttl", o.ttl).
		Int("size", len(data)).
		Msg("Cached entry")

	return nil
}

// Delete removes one entry. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string, opts ...Option) error {
	if key == "" {
		return fmt.Errorf("%w: key cannot be empty", ErrInvalidKey)
	}
	o, err := s.resolve(opts)
	if err != nil {
		return err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()
	defer observe("delete", time.Now())

	n, err := s.rdb.Del(ctx, s.VersionedKey(key, o.version)).Result()
	if err != nil {
		return s.fail("delete", key, err)
	}
	CacheInvalidatedKeys.WithLabelValues("key").Add(float64(n))
	return nil
}

// DeleteByPrefix removes every entry of the version whose logical key starts
// with prefix and returns how many were deleted. Glob characters in prefix
// are matched literally.
func (s *Store) DeleteByPrefix(ctx context.Context, prefix string, opts ...Option) (int, error) {
	o, err := s.resolve(opts)
	if err != nil {
		return 0, err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()
	defer observe("prefix", time.Now())

	deleted, err := s.deleteMatching(ctx, prefixPattern(s.VersionedKey(prefix, o.version)))
	CacheInvalidatedKeys.WithLabelValues("prefix").Add(float64(deleted))
	if err != nil {
		return deleted, s.fail("prefix", prefix, err)
	}

	s.logger.Debug().
		Str("prefix", prefix).
		Str("version", o.version).
		Int("deleted", deleted).
		Msg("Invalidated cache prefix")

	return deleted, nil
}

// InvalidateByVersion removes every entry written under version and drops
// that version's members from all tag sets. Other versions are untouched.
func (s *Store) InvalidateByVersion(ctx context.Context, version string) (int, error) {
	if err := ValidateVersion(version); err != nil {
		return 0, err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()
	defer observe("version", time.Now())

	prefix := s.versionPrefix(version)

	deleted, err := s.deleteMatching(ctx, prefixPattern(prefix))
	CacheInvalidatedKeys.WithLabelValues("version").Add(float64(deleted))
	if err != nil {
		return deleted, s.fail("version", version, err)
	}

	if err := s.pruneTagMembers(ctx, prefix); err != nil {
		return deleted, s.fail("version", version, err)
	}

	s.logger.Info().
		Str("version", version).
		Int("deleted", deleted).
		Msg("Invalidated cache version")

	return deleted, nil
}

// Clear flushes the whole backend database, including keys the store did
// not write. On a cluster every master is flushed. Intended for administration and tests.
func (s *Store) Clear(ctx context.Context) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	defer observe("clear", time.Now())

	var err error
	if cluster, ok := s.rdb.(*redis.ClusterClient); ok {
		err = cluster.ForEachMaster(ctx, func(ctx context.Context, node *redis.Client) error {
			return node.FlushDB(ctx).Err()
		})
	} else {
		err = s.rdb.FlushDB(ctx).Err()
	}
	if err != nil {
		return s.fail("clear", "", err)
	}

	s.logger.Warn().Msg("Cache cleared")
	return nil
}

// Stats returns the number of backend keys and tag index sets.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	defer observe("stats", time.Now())

	total, err := s.rdb.DBSize(ctx).Result()
	if err != nil {
		return Stats{}, s.fail("stats", "", err)
	}

	var tags int64
	err = s.scan(ctx, prefixPattern(s.cfg.TagPrefix), func(keys []string) error {
		tags += int64(len(keys))
		return nil
	})
	if err != nil {
		return Stats{}, s.fail("stats", "", err)
	}

	return Stats{TotalKeys: total, TotalTags: tags}, nil
}

// scan walks every key matching pattern with a cursor, handing each page to fn.
// On a cluster every master is scanned; fn is never called concurrently.
func (s *Store) scan(ctx context.Context, pattern string, fn func(keys []string) error) error {
	cluster, ok := s.rdb.(*redis.ClusterClient)
	if !ok {
		return s.scanNode(ctx, s.rdb, pattern, fn)
	}

	var mu sync.Mutex
	return cluster.ForEachMaster(ctx, func(ctx context.Context, node *redis.Client) error {
		return s.scanNode(ctx, node, pattern, func(keys []string) error {
			mu.Lock()
			defer mu.Unlock()
			return fn(keys)
		})
	})
}

func (s *Store) scanNode(ctx context.Context, node redis.Cmdable, pattern string, fn func(keys []string) error) error {
	var cursor uint64
	for {
		keys, next, err := node.Scan(ctx, cursor, pattern, s.cfg.ScanCount).Result()
		if err != nil {
			return fmt.Errorf("scan %q: %w", pattern, err)
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// deleteMatching deletes every key matching pattern in pipelined batches.
func (s *Store) deleteMatching(ctx context.Context, pattern string) (int, error) {
	deleted := 0
	pending := make([]string, 0, s.cfg.DeleteBatchSize)

	err := s.scan(ctx, pattern, func(keys []string) error {
		pending = append(pending, keys...)
		for len(pending) >= s.cfg.DeleteBatchSize {
			n, err := s.deleteKeys(ctx, pending[:s.cfg.DeleteBatchSize])
			deleted += n
			if err != nil {
				return err
			}
			pending = pending[s.cfg.DeleteBatchSize:]
		}
		return nil
	})
	if err != nil {
		return deleted, err
	}

	n, err := s.deleteKeys(ctx, pending)
	return deleted + n, err
}

// deleteKeys issues one DEL per key in a single pipeline so that keys on
// different cluster slots are routed correctly.
func (s *Store) deleteKeys(ctx context.Context, keys []string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	cmds := make([]*redis.IntCmd, len(keys))
	_, err := s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, k := range keys {
			cmds[i] = p.Del(ctx, k)
		}
		return nil
	})

	deleted := 0
	for _, cmd := range cmds {
		if cmd != nil && cmd.Err() == nil {
			deleted += int(cmd.Val())
		}
	}
	if err != nil {
		return deleted, fmt.Errorf("delete %d keys: %w", len(keys), err)
	}
	return deleted, nil
}
