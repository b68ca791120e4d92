package listing

import (
	"context"

	"github.com/Sternrassler/careadmin-cache/pkg/cache"
)

// LoadFunc queries the source of truth for one page of items and the total count.
type LoadFunc[T any] func(ctx context.Context, offset, limit int) ([]T, int, error)

// List returns the page described by q, reading through the cache.
// Entries are tagged with the entity name in addition to any tags in opts.
func List[T any](ctx context.Context, s *cache.Store, q Query, load LoadFunc[T], opts ...cache.Option) (Page[T], error) {
	q = q.Normalize()

	opts = append([]cache.Option{cache.WithTags(q.Entity)}, opts...)

	return cache.Fetch(ctx, s, q.Key(), func(ctx context.Context) (Page[T], error) {
		items, total, err := load(ctx, q.Offset(), q.Limit)
		if err != nil {
			return Page[T]{}, err
		}
		return NewPage(items, total, q), nil
	}, opts...)
}
