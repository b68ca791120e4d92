package cache

import (
	"fmt"
	"strconv"
	"time"
)

// Environment variables read by LoadConfig.
const (
	EnvRedisURL       = "CACHE_REDIS_URL"
	EnvRedisToken     = "CACHE_REDIS_TOKEN"
	EnvDefaultTTL     = "CACHE_DEFAULT_TTL"
	EnvDefaultVersion = "CACHE_DEFAULT_VERSION"
	EnvVersionPrefix  = "CACHE_VERSION_PREFIX"
	EnvTagPrefix      = "CACHE_TAG_PREFIX"
	EnvCodec          = "CACHE_CODEC"
	EnvMaxEntryBytes  = "CACHE_MAX_ENTRY_BYTES"
	EnvOpTimeout      = "CACHE_OP_TIMEOUT"
	EnvAtomicTags     = "CACHE_ATOMIC_TAGS"
)

// LoadConfig builds the store and backend configuration from environment
// lookups, starting from DefaultConfig and DefaultRedisConfig.
// getenv is usually os.Getenv.
func LoadConfig(getenv func(string) string) (Config, RedisConfig, error) {
	cfg := DefaultConfig()
	rc := DefaultRedisConfig()

	if v := getenv(EnvRedisURL); v != "" {
		rc.URL = v
	}
	rc.Token = getenv(EnvRedisToken)

	if v := getenv(EnvDefaultTTL); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return cfg, rc, fmt.Errorf("%s must be a positive number of seconds (got %q)", EnvDefaultTTL, v)
		}
		cfg.DefaultTTL = time.Duration(secs) * time.Second
	}
	if v := getenv(EnvDefaultVersion); v != "" {
		cfg.DefaultVersion = v
	}
	if v := getenv(EnvVersionPrefix); v != "" {
		cfg.VersionPrefix = v
	}
	if v := getenv(EnvTagPrefix); v != "" {
		cfg.TagPrefix = v
	}
	if v := getenv(EnvCodec); v != "" {
		cfg.Codec = v
	}
	if v := getenv(EnvMaxEntryBytes); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, rc, fmt.Errorf("parse %s: %w", EnvMaxEntryBytes, err)
		}
		cfg.MaxEntryBytes = n
	}
	if v := getenv(EnvOpTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, rc, fmt.Errorf("parse %s: %w", EnvOpTimeout, err)
		}
		cfg.OpTimeout = d
	}
	if v := getenv(EnvAtomicTags); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, rc, fmt.Errorf("parse %s: %w", EnvAtomicTags, err)
		}
		cfg.AtomicTags = b
	}

	if err := cfg.Validate(); err != nil {
		return cfg, rc, err
	}
	return cfg, rc, nil
}
