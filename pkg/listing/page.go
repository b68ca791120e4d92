package listing

// PageMetadata describes where a page sits in the full result.
type PageMetadata struct {
	Total      int `json:"total" msgpack:"total"`
	Page       int `json:"page" msgpack:"page"`
	Limit      int `json:"limit" msgpack:"limit"`
	TotalPages int `json:"totalPages" msgpack:"totalPages"`
}

// Page is the paginated envelope returned by listing endpoints.
type Page[T any] struct {
	Data     []T          `json:"data" msgpack:"data"`
	Metadata PageMetadata `json:"metadata" msgpack:"metadata"`
}

// NewPage wraps items fetched for q. A nil slice is stored as empty so the
// envelope always serializes "data" as an array.
func NewPage[T any](items []T, total int, q Query) Page[T] {
	q = q.Normalize()
	if items == nil {
		items = []T{}
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + q.Limit - 1) / q.Limit
	}

	return Page[T]{
		Data: items,
		Metadata: PageMetadata{
			Total:      total,
			Page:       q.Page,
			Limit:      q.Limit,
			TotalPages: totalPages,
		},
	}
}

// HasNext reports whether another page follows this one.
func (p Page[T]) HasNext() bool {
	return p.Metadata.Page < p.Metadata.TotalPages
}
