// Package store defines the keyed persistence contract shared by the ticket
// store, the aggregate ledger and the blacklist. Every method is atomic with
// respect to its key.
package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a key does not exist.
	ErrNotFound = errors.New("store: key not found")
	// ErrExists is returned by Create when the key is already present.
	ErrExists = errors.New("store: key already exists")
	// ErrConflict is returned when an update lost every optimistic attempt.
	ErrConflict = errors.New("store: concurrent update conflict")
)

// UpdateFunc receives the current value and returns the value to store.
// Returning an error aborts the update and leaves the key untouched.
type UpdateFunc func(current []byte) ([]byte, error)

// Store is key-value storage with atomic per-key operations.
type Store interface {
	// Create stores value under key only if key is absent.
	Create(ctx context.Context, key string, value []byte) error

	// Get returns the value stored under key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Update atomically replaces the value under key with fn(current).
	Update(ctx context.Context, key string, fn UpdateFunc) ([]byte, error)

	// Take atomically returns and deletes the value under key.
	Take(ctx context.Context, key string) ([]byte, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys lists keys beginning with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// IncrBy atomically adds delta to the integer under key (absent = 0)
	// and returns the new value.
	IncrBy(ctx context.Context, key string, delta int64) (int64, error)

	// GetInt returns the integer under key, or 0 when absent.
	GetInt(ctx context.Context, key string) (int64, error)

	SetAdd(ctx context.Context, set, member string) error
	SetRemove(ctx context.Context, set, member string) error
	SetContains(ctx context.Context, set, member string) (bool, error)

	Close() error
}
