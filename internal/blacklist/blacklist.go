// Package blacklist holds the users excluded from opening exchanges.
package blacklist

import (
	"context"
	"fmt"

	"github.com/dvloznov/exchange-desk/internal/store"
)

const setKey = "blacklist"

// Registry is the set of blacklisted user ids.
type Registry struct {
	store store.Store
}

// New returns a registry persisted in s.
func New(s store.Store) *Registry {
	return &Registry{store: s}
}

// IsBlacklisted reports whether userID is blacklisted.
func (r *Registry) IsBlacklisted(ctx context.Context, userID string) (bool, error) {
	ok, err := r.store.SetContains(ctx, setKey, userID)
	if err != nil {
		return false, fmt.Errorf("blacklist check %s: %w", userID, err)
	}
	return ok, nil
}

// Add blacklists userID. Adding twice is a no-op.
func (r *Registry) Add(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("blacklist add: user id is required")
	}
	if err := r.store.SetAdd(ctx, setKey, userID); err != nil {
		return fmt.Errorf("blacklist add %s: %w", userID, err)
	}
	return nil
}

// Remove lifts the blacklist for userID.
func (r *Registry) Remove(ctx context.Context, userID string) error {
	if err := r.store.SetRemove(ctx, setKey, userID); err != nil {
		return fmt.Errorf("blacklist remove %s: %w", userID, err)
	}
	return nil
}
