package listing

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/careadmin-cache/pkg/cache"
)

// Invalidator purges cached listings after writes. Failures are logged and
// returned, never fatal: the entries expire on their own.
type Invalidator struct {
	store  *cache.Store
	logger zerolog.Logger
}

// NewInvalidator creates an invalidator for store.
func NewInvalidator(store *cache.Store, logger zerolog.Logger) *Invalidator {
	return &Invalidator{
		store:  store,
		logger: logger.With().Str("component", "listing").Logger(),
	}
}

// AfterMutation drops every cached listing of entity in the default version,
// then every entry carrying entity or one of extraTags.
// It returns the number of entries removed and the joined errors.
func (i *Invalidator) AfterMutation(ctx context.Context, entity string, extraTags ...string) (int, error) {
	var errs []error

	byPrefix, err := i.store.DeleteByPrefix(ctx, Prefix(entity))
	if err != nil {
		i.logger.Warn().Err(err).Str("entity", entity).Msg("Listing prefix invalidation failed")
		errs = append(errs, err)
	}

	tags := append([]string{entity}, extraTags...)
	byTags, err := i.store.InvalidateByTags(ctx, tags)
	if err != nil {
		i.logger.Warn().Err(err).Strs("tags", tags).Msg("Listing tag invalidation failed")
		errs = append(errs, err)
	}

	deleted := byPrefix + byTags
	i.logger.Debug().
		Str("entity", entity).
		Int("deleted", deleted).
		Msg("Invalidated listings after mutation")

	return deleted, errors.Join(errs...)
}
