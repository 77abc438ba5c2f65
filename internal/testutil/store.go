package testutil

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var (
	// ErrExists and ErrMissing are raw sentinels for the generic store; the
	// typed stores wrap them into the service error taxonomy.
	ErrExists  = errors.New("item already exists")
	ErrMissing = errors.New("item not found")
)

// InMemoryStore is a generic thread-safe map used as the base of the
// in-memory repository fakes.
type InMemoryStore[T any] struct {
	mu    sync.RWMutex
	items map[string]T
}

func NewInMemoryStore[T any]() *InMemoryStore[T] {
	return &InMemoryStore[T]{items: make(map[string]T)}
}

func (s *InMemoryStore[T]) Create(ctx context.Context, id string, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; ok {
		return ErrExists
	}
	s.items[id] = item
	return nil
}

func (s *InMemoryStore[T]) Get(ctx context.Context, id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		var zero T
		return zero, ErrMissing
	}
	return item, nil
}

func (s *InMemoryStore[T]) Update(ctx context.Context, id string, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return ErrMissing
	}
	s.items[id] = item
	return nil
}

func (s *InMemoryStore[T]) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return ErrMissing
	}
	delete(s.items, id)
	return nil
}

// List returns items matching filterFn, ordered by sortFn. Either function
// may be nil.
func (s *InMemoryStore[T]) List(
	ctx context.Context,
	filterFn func(ctx context.Context, item T) bool,
	sortFn func(i, j T) bool,
) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]T, 0, len(s.items))
	for _, item := range s.items {
		if filterFn == nil || filterFn(ctx, item) {
			out = append(out, item)
		}
	}
	if sortFn != nil {
		sort.Slice(out, func(i, j int) bool { return sortFn(out[i], out[j]) })
	}
	return out
}

func (s *InMemoryStore[T]) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *InMemoryStore[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]T)
}
