package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// setEntryScript writes an entry and updates its tag sets with no other
// command interleaving. Redis does not roll back a script that fails midway.
//
// KEYS[1]      entry key
// KEYS[2..n]   stale tag sets (ARGV[3] of them) followed by current tag sets
// ARGV[1]      encoded entry
// ARGV[2]      ttl in milliseconds
// ARGV[3]      number of stale tag sets
var setEntryScript = redis.NewScript(`
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
local stale = tonumber(ARGV[3])
for i = 2, #KEYS do
	if i - 1 <= stale then
		redis.call('SREM', KEYS[i], KEYS[1])
	else
		redis.call('SADD', KEYS[i], KEYS[1])
	end
end
return #KEYS - 1
`)

// previousTags returns the tags of the entry currently stored at vk.
// An absent or undecodable entry has no tags.
func (s *Store) previousTags(ctx context.Context, vk string) ([]string, error) {
	raw, err := s.rdb.Get(ctx, vk).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read previous entry: %w", err)
	}

	var hdr entryHeader
	if err := s.codec.Unmarshal(raw, &hdr); err != nil {
		s.logger.Debug().Err(err).Str("key", vk).Msg("Overwriting undecodable cache entry")
		return nil, nil
	}
	return hdr.Metadata.Tags, nil
}

func (s *Store) writeSequential(ctx context.Context, vk string, data []byte, o options, stale []string) error {
	if err := s.rdb.Set(ctx, vk, data, o.ttl).Err(); err != nil {
		return fmt.Errorf("write entry: %w", err)
	}
	for _, tag := range stale {
		if err := s.rdb.SRem(ctx, s.TagKey(tag), vk).Err(); err != nil {
			return fmt.Errorf("untag %q: %w", tag, err)
		}
	}
	for _, tag := range o.tags {
		if err := s.rdb.SAdd(ctx, s.TagKey(tag), vk).Err(); err != nil {
			return fmt.Errorf("tag %q: %w", tag, err)
		}
	}
	return nil
}

func (s *Store) writeScripted(ctx context.Context, vk string, data []byte, o options, stale []string) error {
	keys := make([]string, 0, 1+len(stale)+len(o.tags))
	keys = append(keys, vk)
	for _, tag := range stale {
		keys = append(keys, s.TagKey(tag))
	}
	for _, tag := range o.tags {
		keys = append(keys, s.TagKey(tag))
	}

	ttlMillis := o.ttl.Milliseconds()
	if ttlMillis < 1 {
		ttlMillis = 1
	}

	err := setEntryScript.Run(ctx, s.rdb, keys, data, ttlMillis, strconv.Itoa(len(stale))).Err()
	if err != nil {
		return fmt.Errorf("write entry script: %w", err)
	}
	return nil
}

// InvalidateByTags deletes every entry of the version carrying any of tags
// and returns how many entries were removed.
//
// Members of each tag set are unioned and filtered to the version before
// deletion. A tag set that only referenced this version is then deleted;
// otherwise only the removed members are taken out of it so that other
// versions stay indexed.
func (s *Store) InvalidateByTags(ctx context.Context, tags []string, opts ...Option) (int, error) {
	o, err := s.resolve(opts)
	if err != nil {
		return 0, err
	}
	tags = dedupeTags(tags)
	if len(tags) == 0 {
		return 0, nil
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()
	defer observe("tags", time.Now())

	label := strings.Join(tags, ",")

	members := make([]*redis.StringSliceCmd, len(tags))
	_, err = s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, tag := range tags {
			members[i] = p.SMembers(ctx, s.TagKey(tag))
		}
		return nil
	})
	if err != nil {
		return 0, s.fail("tags", label, fmt.Errorf("read tag sets: %w", err))
	}

	prefix := s.versionPrefix(o.version)
	seen := make(map[string]struct{})
	var keys []string
	owned := make([][]any, len(tags))
	shared := make([]bool, len(tags))

	for i, cmd := range members {
		for _, k := range cmd.Val() {
			if !strings.HasPrefix(k, prefix) {
				shared[i] = true
				continue
			}
			owned[i] = append(owned[i], k)
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}

	deleted := 0
	for start := 0; start < len(keys); start += s.cfg.DeleteBatchSize {
		end := min(start+s.cfg.DeleteBatchSize, len(keys))
		n, err := s.deleteKeys(ctx, keys[start:end])
		deleted += n
		if err != nil {
			CacheInvalidatedKeys.WithLabelValues("tags").Add(float64(deleted))
			return deleted, s.fail("tags", label, err)
		}
	}
	CacheInvalidatedKeys.WithLabelValues("tags").Add(float64(deleted))

	_, err = s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, tag := range tags {
			switch {
			case !shared[i]:
				p.Del(ctx, s.TagKey(tag))
			case len(owned[i]) > 0:
				p.SRem(ctx, s.TagKey(tag), owned[i]...)
			}
		}
		return nil
	})
	if err != nil {
		return deleted, s.fail("tags", label, fmt.Errorf("prune tag sets: %w", err))
	}

	s.logger.Debug().
		Strs("tags", tags).
		Str("version", o.version).
		Int("deleted", deleted).
		Msg("Invalidated cache tags")

	return deleted, nil
}

// pruneTagMembers removes every member starting with prefix from all tag
// sets. Redis drops sets that become empty.
func (s *Store) pruneTagMembers(ctx context.Context, prefix string) error {
	return s.scan(ctx, prefixPattern(s.cfg.TagPrefix), func(tagKeys []string) error {
		for _, tk := range tagKeys {
			members, err := s.rdb.SMembers(ctx, tk).Result()
			if err != nil {
				return fmt.Errorf("read tag set %q: %w", tk, err)
			}

			var drop []any
			for _, m := range members {
				if strings.HasPrefix(m, prefix) {
					drop = append(drop, m)
				}
			}
			if len(drop) == 0 {
				continue
			}
			if err := s.rdb.SRem(ctx, tk, drop...).Err(); err != nil {
				return fmt.Errorf("prune tag set %q: %w", tk, err)
			}
		}
		return nil
	})
}
