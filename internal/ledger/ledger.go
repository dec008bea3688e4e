// Package ledger keeps the running total of completed exchange volume.
// The total is held as integer cents so every increment is a single atomic
// store operation and never loses precision.
package ledger

import (
	"context"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/exchange-desk/internal/deskerr"
	"github.com/dvloznov/exchange-desk/internal/store"
)

const totalKey = "ledger:total_cents"

var maxCents = decimal.NewFromInt(math.MaxInt64)

// Ledger is the aggregate ledger. It only ever grows.
type Ledger struct {
	store store.Store
}

// New returns a ledger persisted in s.
func New(s store.Store) *Ledger {
	return &Ledger{store: s}
}

// Add increments the total by amount, rounded to cents, and returns the new
// total. Increments that round to zero or do not fit in int64 cents are
// refused.
func (l *Ledger) Add(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error) {
	cents := amount.Round(2).Shift(2)
	if !cents.IsPositive() {
		return decimal.Zero, deskerr.Validation("ledger increment must be positive, got %s", amount)
	}
	if cents.GreaterThan(maxCents) {
		return decimal.Zero, deskerr.Validation("ledger increment %s is too large", amount)
	}

	total, err := l.store.IncrBy(ctx, totalKey, cents.IntPart())
	if err != nil {
		return decimal.Zero, fmt.Errorf("ledger add: %w", err)
	}
	return decimal.New(total, -2), nil
}

// Total returns the current total.
func (l *Ledger) Total(ctx context.Context) (decimal.Decimal, error) {
	cents, err := l.store.GetInt(ctx, totalKey)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ledger total: %w", err)
	}
	return decimal.New(cents, -2), nil
}
