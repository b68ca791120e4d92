package cache

import (
	"context"
	"errors"
)

// FetchFunc loads a value from the source of truth.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Fetch is the read-through path used by route handlers.
//
// It returns the cached value when one is live. Otherwise it calls fetch,
// stores the result and returns it. Cache failures never reach the caller:
// a failing read falls through to fetch and a failing write only loses the
// memoization. Concurrent misses for the same key in this process share a
// single fetch call. Only errors from fetch are returned.
//
// A shared fetch runs on the context of the caller that started it. Callers
// that joined it stop waiting when their own context ends, and load on their
// own if the shared fetch was cut short by the starter's context.
func Fetch[T any](ctx context.Context, s *Store, key string, fetch FetchFunc[T], opts ...Option) (T, error) {
	value, found, err := Get[T](ctx, s, key, opts...)
	if err == nil && found {
		return value, nil
	}
	if err != nil {
		FetchFallbacks.Inc()
		s.logger.Warn().Err(err).Str("key", key).Msg("Cache read failed, falling back to source")
	}

	flight := key
	if o, err := s.resolve(opts); err == nil {
		flight = s.VersionedKey(key, o.version)
	}

	fill := func(ctx context.Context) (T, error) {
		fresh, err := fetch(ctx)
		if err != nil {
			return fresh, err
		}
		if err := Set(ctx, s, key, fresh, opts...); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("Failed to cache fetched value")
		}
		return fresh, nil
	}

	ch := s.fills.DoChan(flight, func() (any, error) {
		return fill(ctx)
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			if isContextError(res.Err) && ctx.Err() == nil {
				s.logger.Debug().Str("key", key).Msg("Shared fetch cancelled by its starter, loading again")
				return fill(ctx)
			}
			return zero, res.Err
		}
		if typed, ok := res.Val.(T); ok {
			if res.Shared {
				s.logger.Debug().Str("key", key).Msg("Shared in-flight fetch")
			}
			return typed, nil
		}
		if res.Val == nil {
			return zero, nil
		}
	}

	// Another caller filled the same key with a different type.
	return fetch(ctx)
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
