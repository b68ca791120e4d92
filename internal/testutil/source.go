package testutil

import (
	"context"
	"sync"
	"time"
)

// Client is the tenant fixture used across cache tests.
type Client struct {
	ID       int    `json:"id" msgpack:"id"`
	Name     string `json:"name" msgpack:"name"`
	Status   string `json:"status" msgpack:"status"`
	Industry string `json:"industry" msgpack:"industry"`
}

// Source is an in-memory stand-in for the relational store. It counts
// every query so tests can tell cache hits from recomputation.
type Source[T any] struct {
	mu    sync.Mutex
	items []T
	calls int
	err   error
	delay time.Duration
}

// NewSource creates a source holding items.
func NewSource[T any](items ...T) *Source[T] {
	return &Source[T]{items: append([]T(nil), items...)}
}

// Add appends an item, as a committed create would.
func (s *Source[T]) Add(item T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, item)
}

// FailWith makes subsequent queries return err (nil restores success).
func (s *Source[T]) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// SetDelay slows every query down, to widen concurrent-miss windows.
func (s *Source[T]) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// List returns one page of items and the total count.
func (s *Source[T]) List(ctx context.Context, offset, limit int) ([]T, int, error) {
	s.mu.Lock()
	s.calls++
	delay, err := s.delay, s.err
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		}
	}
	if err != nil {
		return nil, 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	total := len(s.items)
	if offset >= total {
		return []T{}, total, nil
	}
	end := min(offset+limit, total)
	return append([]T(nil), s.items[offset:end]...), total, nil
}

// All returns every item.
func (s *Source[T]) All(ctx context.Context) ([]T, error) {
	items, _, err := s.List(ctx, 0, int(^uint(0)>>1))
	return items, err
}

// Calls returns the number of queries served.
func (s *Source[T]) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Reset clears the query counter.
func (s *Source[T]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = 0
}
