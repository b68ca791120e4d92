package cache

import (
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds the cache store configuration.
type Config struct {
	// DefaultTTL applies when Set is called without WithTTL.
	DefaultTTL time.Duration

	// DefaultVersion is the epoch used when no WithVersion option is given.
	// Changing it orphans every entry written under the previous epoch.
	DefaultVersion string

	// VersionPrefix is prepended to the version when composing backend keys
	// (VersionPrefix + version + ":" + key).
	VersionPrefix string

	// TagPrefix is prepended to a tag name to form its index set key.
	TagPrefix string

	// Codec selects the entry encoding: "json", "msgpack" or "cbor".
	Codec string

	// MaxEntryBytes caps the encoded entry size (0 disables). Set refuses
	// larger entries and reads reject them.
	MaxEntryBytes int

	// OpTimeout bounds every store operation, including multi-round-trip
	// invalidations (0 disables and relies on the redis client timeouts).
	OpTimeout time.Duration

	// ScanCount is the COUNT hint passed to SCAN during prefix and version invalidation.
	ScanCount int64

	// DeleteBatchSize caps how many keys are deleted per pipeline.
	DeleteBatchSize int

	// AtomicTags writes the entry and its tag index updates in one Lua script.
	// Requires all keys to live on one node (single instance or hash-tagged keys).
	AtomicTags bool
}

// DefaultConfig returns the configuration used by the admin application.
func DefaultConfig() Config {
	return Config{
		DefaultTTL:      time.Hour,
		DefaultVersion:  "1",
		VersionPrefix:   "v",
		TagPrefix:       "tag:",
		Codec:           CodecJSON,
		OpTimeout:       3 * time.Second,
		ScanCount:       500,
		DeleteBatchSize: 500,
	}
}

// Validate checks whether the configuration values are usable.
func (c Config) Validate() error {
	if c.DefaultTTL < time.Second {
		return fmt.Errorf("default_ttl must be >= 1s (got %s)", c.DefaultTTL)
	}
	if err := ValidateVersion(c.DefaultVersion); err != nil {
		return fmt.Errorf("default_version: %w", err)
	}
	if c.VersionPrefix == "" {
		return fmt.Errorf("version_prefix is required")
	}
	if c.TagPrefix == "" {
		return fmt.Errorf("tag_prefix is required")
	}
	if strings.HasPrefix(c.TagPrefix, c.VersionPrefix) {
		return fmt.Errorf("tag_prefix %q must not start with version_prefix %q", c.TagPrefix, c.VersionPrefix)
	}
	if _, err := NewCodec(c.Codec, c.MaxEntryBytes); err != nil {
		return err
	}
	if c.MaxEntryBytes < 0 {
		return fmt.Errorf("max_entry_bytes must be >= 0 (got %d)", c.MaxEntryBytes)
	}
	if c.OpTimeout < 0 {
		return fmt.Errorf("op_timeout must be >= 0 (got %s)", c.OpTimeout)
	}
	if c.ScanCount <= 0 {
		return fmt.Errorf("scan_count must be > 0 (got %d)", c.ScanCount)
	}
	if c.DeleteBatchSize <= 0 {
		return fmt.Errorf("delete_batch_size must be > 0 (got %d)", c.DeleteBatchSize)
	}
	return nil
}

// ValidateVersion reports whether version can be used as a cache epoch.
// Errors match ErrInvalidKey.
func ValidateVersion(version string) error {
	if version == "" {
		return fmt.Errorf("%w: version cannot be empty", ErrInvalidKey)
	}
	if strings.Contains(version, ":") {
		return fmt.Errorf("%w: version %q cannot contain ':'", ErrInvalidKey, version)
	}
	return nil
}

// RedisConfig describes how to reach the key-value backend.
type RedisConfig struct {
	// URL is a redis:// or rediss:// connection URL.
	URL string

	// Token overrides the password from URL when set.
	Token string

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// PoolSize is the maximum number of socket connections (0 keeps the go-redis default).
	PoolSize int

	// MaxRetries is handed to go-redis; the cache itself never retries.
	MaxRetries int
}

// DefaultRedisConfig returns a local backend configuration with short timeouts.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		URL:          "redis://localhost:6379/0",
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		MaxRetries:   1,
	}
}

// Options converts the configuration into go-redis client options.
func (c RedisConfig) Options() (*redis.Options, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("redis url is required")
	}

	opts, err := redis.ParseURL(c.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	if c.Token != "" {
		opts.Password = c.Token
	}
	if c.DialTimeout > 0 {
		opts.DialTimeout = c.DialTimeout
	}
	if c.ReadTimeout > 0 {
		opts.ReadTimeout = c.ReadTimeout
	}
	if c.WriteTimeout > 0 {
		opts.WriteTimeout = c.WriteTimeout
	}
	if c.PoolSize > 0 {
		opts.PoolSize = c.PoolSize
	}
	opts.MaxRetries = c.MaxRetries

	return opts, nil
}

// NewRedisClient builds a pooled redis client from the configuration.
// The caller owns the client and must Close it.
func NewRedisClient(cfg RedisConfig) (*redis.Client, error) {
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}
