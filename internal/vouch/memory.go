package vouch

import (
	"context"
	"sync"
)

// MemoryRepository keeps vouches in process memory.
type MemoryRepository struct {
	mu      sync.RWMutex
	vouches []Vouch
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Insert implements Repository.
func (r *MemoryRepository) Insert(ctx context.Context, v Vouch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.vouches = append(r.vouches, v)
	return nil
}

// Stats implements Repository.
func (r *MemoryRepository) Stats(ctx context.Context, targetID string) (int64, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count, sum int64
	for _, v := range r.vouches {
		if v.TargetID == targetID {
			count++
			sum += int64(v.Rating)
		}
	}
	return count, sum, nil
}

// Recent implements Repository. Insertion order is chronological.
func (r *MemoryRepository) Recent(ctx context.Context, targetID string, limit int) ([]Vouch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []Vouch{}
	for i := len(r.vouches) - 1; i >= 0 && len(out) < limit; i-- {
		if r.vouches[i].TargetID == targetID {
			out = append(out, r.vouches[i])
		}
	}
	return out, nil
}

var _ Repository = (*MemoryRepository)(nil)
