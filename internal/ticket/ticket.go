// Package ticket manages the lifecycle of exchange tickets: creation from a
// confirmed intake, claim by an exchanger, and closure.
package ticket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/exchange-desk/internal/access"
	"github.com/dvloznov/exchange-desk/internal/deskerr"
	"github.com/dvloznov/exchange-desk/internal/domain"
	"github.com/dvloznov/exchange-desk/internal/fees"
	"github.com/dvloznov/exchange-desk/internal/ledger"
	"github.com/dvloznov/exchange-desk/internal/logger"
	"github.com/dvloznov/exchange-desk/internal/store"
)

const keyPrefix = "ticket:"

// DefaultCloseReason is recorded when a closure gives no reason.
const DefaultCloseReason = "No reason provided"

// Store is the set of active tickets.
type Store struct {
	store    store.Store
	resolver access.Resolver
	ledger   *ledger.Ledger
	now      func() time.Time
}

// New returns a ticket store. Completed closures are added to l.
func New(s store.Store, r access.Resolver, l *ledger.Ledger) *Store {
	return &Store{store: s, resolver: r, ledger: l, now: time.Now}
}

func storeKey(key string) string { return keyPrefix + key }

// Create opens a ticket for a confirmed intake under key.
func (s *Store) Create(ctx context.Context, key, channelName string, intake domain.IntakeRecord) (domain.Ticket, error) {
	if key == "" {
		return domain.Ticket{}, deskerr.Validation("ticket key is required")
	}

	t := domain.Ticket{
		Key:           key,
		ChannelName:   channelName,
		RequesterID:   intake.RequesterID,
		SendMethod:    intake.SendMethod,
		SendDetail:    intake.SendDetail,
		ReceiveMethod: intake.ReceiveMethod,
		ReceiveDetail: intake.ReceiveDetail,
		Fee:           intake.Fee,
		Status:        domain.StatusOpen,
		CreatedAt:     s.now().UTC(),
	}
	if intake.Amount.IsPositive() {
		amount := intake.Amount
		t.Amount = &amount
	}

	raw, err := json.Marshal(t)
	if err != nil {
		return domain.Ticket{}, fmt.Errorf("failed to encode ticket %s: %w", key, err)
	}

	err = s.store.Create(ctx, storeKey(key), raw)
	if errors.Is(err, store.ErrExists) {
		return domain.Ticket{}, deskerr.State("a ticket already exists for %s", key)
	}
	if err != nil {
		return domain.Ticket{}, deskerr.Infrastructure(err, "failed to save ticket %s", key)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("ticket", key).
		Str("requester_id", t.RequesterID).
		Str("send", t.SendLabel()).
		Str("receive", t.ReceiveLabel()).
		Msg("Ticket created")
	return t, nil
}

// Get returns the active ticket under key. ok is false when there is none.
func (s *Store) Get(ctx context.Context, key string) (domain.Ticket, bool, error) {
	raw, err := s.store.Get(ctx, storeKey(key))
	if errors.Is(err, store.ErrNotFound) {
		return domain.Ticket{}, false, nil
	}
	if err != nil {
		return domain.Ticket{}, false, deskerr.Infrastructure(err, "failed to load ticket %s", key)
	}
	t, err := decode(raw)
	if err != nil {
		return domain.Ticket{}, false, err
	}
	return t, true, nil
}

// List returns every active ticket ordered by key.
func (s *Store) List(ctx context.Context) ([]domain.Ticket, error) {
	keys, err := s.store.Keys(ctx, keyPrefix)
	if err != nil {
		return nil, deskerr.Infrastructure(err, "failed to list tickets")
	}

	out := make([]domain.Ticket, 0, len(keys))
	for _, k := range keys {
		t, ok, err := s.Get(ctx, strings.TrimPrefix(k, keyPrefix))
		if err != nil {
			return nil, err
		}
		// Closed between Keys and Get.
		if !ok {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// Claim assigns the ticket to actor. Only exchangers may claim, and a ticket
// is claimed at most once.
func (s *Store) Claim(ctx context.Context, key string, actor domain.Actor) (domain.Ticket, error) {
	log := logger.ForActor(logger.FromContext(ctx), actor).With().Str("ticket", key).Logger()

	if !s.resolver.Resolve(actor).Exchanger {
		log.Debug().Msg("Claim rejected: not an exchanger")
		return domain.Ticket{}, deskerr.Permission("only exchangers can claim tickets")
	}

	raw, err := s.store.Update(ctx, storeKey(key), func(cur []byte) ([]byte, error) {
		t, err := decode(cur)
		if err != nil {
			return nil, err
		}
		if t.Claimed {
			return nil, deskerr.State("this ticket has already been claimed by %s", t.ClaimedBy)
		}
		t.Claimed = true
		t.ClaimedBy = actor.ID
		return json.Marshal(t)
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domain.Ticket{}, deskerr.State("no open ticket %s", key)
	case errors.Is(err, store.ErrConflict):
		return domain.Ticket{}, deskerr.State("ticket %s changed while claiming, try again", key)
	case deskerr.KindOf(err) != "":
		return domain.Ticket{}, err
	case err != nil:
		return domain.Ticket{}, deskerr.Infrastructure(err, "failed to claim ticket %s", key)
	}

	t, err := decode(raw)
	if err != nil {
		return domain.Ticket{}, err
	}
	log.Info().Msg("Ticket claimed")
	return t, nil
}

// Close ends the ticket and removes it from the active set. A positive
// amount completes it: the fee is recomputed for that amount and the ledger
// grows by it. Anything else cancels it.
//
// The returned ticket is the closed record. When the ledger update fails
// after removal, the closed record is returned together with the error.
func (s *Store) Close(ctx context.Context, key string, actor domain.Actor, amount *decimal.Decimal, reason string) (domain.Ticket, error) {
	log := logger.ForActor(logger.FromContext(ctx), actor).With().Str("ticket", key).Logger()

	current, ok, err := s.Get(ctx, key)
	if err != nil {
		return domain.Ticket{}, err
	}
	if !ok {
		return domain.Ticket{}, deskerr.State("no open ticket %s", key)
	}
	if actor.ID != current.RequesterID && !s.resolver.Resolve(actor).Staff {
		log.Debug().Msg("Close rejected: not requester or staff")
		return domain.Ticket{}, deskerr.Permission("only the ticket owner or staff can close this ticket")
	}

	raw, err := s.store.Take(ctx, storeKey(key))
	if errors.Is(err, store.ErrNotFound) {
		return domain.Ticket{}, deskerr.State("ticket %s has already been closed", key)
	}
	if err != nil {
		return domain.Ticket{}, deskerr.Infrastructure(err, "failed to close ticket %s", key)
	}
	t, err := decode(raw)
	if err != nil {
		return domain.Ticket{}, err
	}

	if strings.TrimSpace(reason) == "" {
		reason = DefaultCloseReason
	}
	closedAt := s.now().UTC()
	t.ClosedBy = actor.ID
	t.CloseReason = reason
	t.ClosedAt = &closedAt

	if amount == nil || !amount.Round(2).IsPositive() {
		t.Status = domain.StatusCancelled
		t.Amount = nil
		t.Fee = nil
		log.Info().Str("reason", reason).Msg("Ticket cancelled")
		return t, nil
	}

	final := *amount
	fee := fees.Calculate(t.SendMethod, t.SendDetail, t.ReceiveMethod, final)
	t.Status = domain.StatusCompleted
	t.Amount = &final
	t.Fee = &fee

	total, err := s.ledger.Add(ctx, final)
	if err != nil {
		log.Error().Err(err).Str("amount", final.StringFixed(2)).Msg("Ticket closed but ledger update failed")
		return t, deskerr.Infrastructure(err, "ticket %s closed but the total could not be updated", key)
	}

	log.Info().
		Str("amount", final.StringFixed(2)).
		Str("total", total.StringFixed(2)).
		Msg("Ticket completed")
	return t, nil
}

func decode(raw []byte) (domain.Ticket, error) {
	var t domain.Ticket
	if err := json.Unmarshal(raw, &t); err != nil {
		return domain.Ticket{}, deskerr.Infrastructure(err, "stored ticket is corrupt")
	}
	return t, nil
}
