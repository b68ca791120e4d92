// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvLevel  = "LOG_LEVEL"
	EnvPretty = "LOG_PRETTY"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// ConfigFromEnv starts from DefaultConfig and applies LOG_LEVEL and LOG_PRETTY.
// Unparseable values keep their defaults.
func ConfigFromEnv(getenv func(string) string) Config {
	cfg := DefaultConfig()
	if v := getenv(EnvLevel); v != "" {
		cfg.Level = LogLevel(strings.ToLower(v))
	}
	if v := getenv(EnvPretty); v != "" {
		if pretty, err := strconv.ParseBool(v); err == nil {
			cfg.Pretty = pretty
		}
	}
	return cfg
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	var output io.Writer = cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()

	// Set as global logger
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache operations (hit/miss, versioned key, TTL, tags)
//   - Invalidation results (prefix, tags, deleted count)
//   - Shared in-flight fetches
//
// Info: Normal operation events
//   - Version epoch invalidations
//   - Admin requests
//   - Server startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Cache read errors (fallback to the database)
//   - Failed cache fills after a successful fetch
//   - Failed invalidations after a write
//   - Cache cleared
//
// Error: Error conditions requiring attention
//   - Backend unreachable at startup
//   - Admin operations that failed
//   - Configuration errors
//
// Context Fields:
//   - component: cache, listing, admin
//   - key: Versioned backend key
//   - prefix: Logical prefix passed to DeleteByPrefix
//   - tags: Invalidation tags
//   - version: Cache epoch
//   - cache_hit: Boolean indicating cache hit
//   - ttl: Remaining or assigned entry TTL
//   - deleted: Number of entries removed
//   - request_id: X-Request-ID of an admin request
