package inmemory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/dvloznov/exchange-desk/internal/store"
)

// Store is an in-memory implementation of store.Store.
// It is safe for concurrent use; every operation holds the lock for its whole
// read-modify-write. Data is lost on restart - use the Redis store for durability.
type Store struct {
	mu     sync.Mutex
	values map[string][]byte
	ints   map[string]int64
	sets   map[string]map[string]struct{}
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		values: make(map[string][]byte),
		ints:   make(map[string]int64),
		sets:   make(map[string]map[string]struct{}),
	}
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Create implements store.Store.
func (s *Store) Create(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.values[key]; exists {
		return store.ErrExists
	}
	s.values[key] = clone(value)
	return nil
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, exists := s.values[key]
	if !exists {
		return nil, store.ErrNotFound
	}
	return clone(v), nil
}

// Update implements store.Store.
func (s *Store) Update(ctx context.Context, key string, fn store.UpdateFunc) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, exists := s.values[key]
	if !exists {
		return nil, store.ErrNotFound
	}
	next, err := fn(clone(cur))
	if err != nil {
		return nil, err
	}
	s.values[key] = clone(next)
	return clone(next), nil
}

// Take implements store.Store.
func (s *Store) Take(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, exists := s.values[key]
	if !exists {
		return nil, store.ErrNotFound
	}
	delete(s.values, key)
	return v, nil
}

// Delete implements store.Store.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}

// Keys implements store.Store. Keys are returned sorted.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	for k := range s.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// IncrBy implements store.Store.
func (s *Store) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.ints[key]
	if (delta > 0 && cur > math.MaxInt64-delta) || (delta < 0 && cur < math.MinInt64-delta) {
		return cur, fmt.Errorf("inmemory: incrby %s would overflow", key)
	}
	s.ints[key] = cur + delta
	return s.ints[key], nil
}

// GetInt implements store.Store.
func (s *Store) GetInt(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ints[key], nil
}

// SetAdd implements store.Store.
func (s *Store) SetAdd(ctx context.Context, set, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.sets[set]
	if !ok {
		m = make(map[string]struct{})
		s.sets[set] = m
	}
	m[member] = struct{}{}
	return nil
}

// SetRemove implements store.Store.
func (s *Store) SetRemove(ctx context.Context, set, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sets[set], member)
	return nil
}

// SetContains implements store.Store.
func (s *Store) SetContains(ctx context.Context, set, member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.sets[set][member]
	return ok, nil
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// Ensure Store implements store.Store.
var _ store.Store = (*Store)(nil)
