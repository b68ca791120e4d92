package cache

import (
	"time"
)

// Metadata describes when and how an entry was written.
type Metadata struct {
	// Version is the cache epoch active when the entry was written.
	Version string `json:"version" msgpack:"version"`

	// Tags are the invalidation groups the entry belongs to.
	Tags []string `json:"tags" msgpack:"tags"`

	// CreatedAt is the write time in epoch milliseconds.
	CreatedAt int64 `json:"createdAt" msgpack:"createdAt"`

	// ExpiresAt is CreatedAt plus the TTL, in epoch milliseconds.
	ExpiresAt int64 `json:"expiresAt" msgpack:"expiresAt"`
}

// IsExpired returns true once now is past ExpiresAt.
func (m Metadata) IsExpired(now time.Time) bool {
	return now.UnixMilli() > m.ExpiresAt
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (m Metadata) TTL(now time.Time) time.Duration {
	ttl := time.Duration(m.ExpiresAt-now.UnixMilli()) * time.Millisecond
	if ttl < 0 {
		return 0
	}
	return ttl
}

// Entry is the stored unit: the caller's logical key, its payload and metadata.
type Entry[T any] struct {
	Key      string   `json:"key" msgpack:"key"`
	Data     T        `json:"data" msgpack:"data"`
	Metadata Metadata `json:"metadata" msgpack:"metadata"`
}

// entryHeader decodes an entry without its payload.
type entryHeader struct {
	Key      string   `json:"key" msgpack:"key"`
	Metadata Metadata `json:"metadata" msgpack:"metadata"`
}

func newEntry[T any](key string, value T, o options, now time.Time) Entry[T] {
	return Entry[T]{
		Key:  key,
		Data: value,
		Metadata: Metadata{
			Version:   o.version,
			Tags:      o.tags,
			CreatedAt: now.UnixMilli(),
			ExpiresAt: now.Add(o.ttl).UnixMilli(),
		},
	}
}
