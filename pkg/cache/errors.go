package cache

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable matches every error caused by the backend: connection
	// failures, timeouts, protocol errors and unreadable entries. Callers
	// should fall back to the source of truth.
	ErrUnavailable = errors.New("cache unavailable")

	// ErrInvalidEntry indicates the stored entry could not be decoded.
	ErrInvalidEntry = errors.New("invalid cache entry")

	// ErrInvalidKey is returned for empty keys or malformed versions.
	ErrInvalidKey = errors.New("invalid cache key")

	// ErrEntryTooLarge is returned by Set when the encoded entry exceeds
	// Config.MaxEntryBytes. Nothing is written.
	ErrEntryTooLarge = errors.New("cache entry too large")
)

// Error describes a failed backend operation.
type Error struct {
	// Op is the store operation ("get", "set", "delete", "prefix", ...).
	Op string

	// Key is the logical key, prefix or pattern involved, if any.
	Key string

	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("cache %s %q: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("cache %s: %v", e.Op, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports every Error as ErrUnavailable.
func (e *Error) Is(target error) bool {
	return target == ErrUnavailable
}

// IsUnavailable reports whether err should be treated as a cache outage.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
