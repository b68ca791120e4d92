package listing

import (
	"github.com/Sternrassler/careadmin-cache/pkg/cache"
)

const (
	// DefaultLimit is used when a query asks for no limit or a non-positive one.
	DefaultLimit = 10

	// MaxLimit caps the page size a client may request.
	MaxLimit = 100
)

// Query identifies one page of a filtered entity listing.
type Query struct {
	// Entity is the resource name, also used as the key prefix and cache tag.
	Entity string

	Page  int
	Limit int

	// Filters are positional; empty strings mean "not set".
	Filters []string
}

// NewQuery creates a normalized query with n unset filters.
func NewQuery(entity string, page, limit, n int) Query {
	q := Query{
		Entity:  entity,
		Page:    page,
		Limit:   limit,
		Filters: make([]string, n),
	}
	return q.Normalize()
}

// Normalize clamps page and limit into their valid ranges.
func (q Query) Normalize() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	return q
}

// WithFilter returns a copy of q with filter i set to value.
// Out-of-range indexes are ignored.
func (q Query) WithFilter(i int, value string) Query {
	if i < 0 || i >= len(q.Filters) {
		return q
	}
	filters := append([]string(nil), q.Filters...)
	filters[i] = value
	q.Filters = filters
	return q
}

// Offset returns the zero-based index of the first row on the page.
func (q Query) Offset() int {
	q = q.Normalize()
	return (q.Page - 1) * q.Limit
}

// Key returns the deterministic cache key for the query.
//
// Example:
//
//	NewQuery("clients", 1, 10, 7).Key() // "clients:1:10:::::::"
func (q Query) Key() string {
	q = q.Normalize()

	parts := make([]any, 0, 3+len(q.Filters))
	parts = append(parts, q.Entity, q.Page, q.Limit)
	for _, f := range q.Filters {
		parts = append(parts, f)
	}
	return cache.JoinKey(parts...)
}

// Prefix returns the key prefix shared by every listing of the entity.
func Prefix(entity string) string {
	return entity + cache.KeySeparator
}
