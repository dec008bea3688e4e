// Package desk maps interaction commands onto the exchange desk: the intake
// wizard, the ticket lifecycle and the supporting queries. Every command
// returns an Effect or a kinded error from deskerr.
package desk

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/exchange-desk/internal/access"
	"github.com/dvloznov/exchange-desk/internal/blacklist"
	"github.com/dvloznov/exchange-desk/internal/deskerr"
	"github.com/dvloznov/exchange-desk/internal/domain"
	"github.com/dvloznov/exchange-desk/internal/fees"
	"github.com/dvloznov/exchange-desk/internal/ledger"
	"github.com/dvloznov/exchange-desk/internal/logger"
	"github.com/dvloznov/exchange-desk/internal/metrics"
	"github.com/dvloznov/exchange-desk/internal/provision"
	"github.com/dvloznov/exchange-desk/internal/ticket"
	"github.com/dvloznov/exchange-desk/internal/vouch"
	"github.com/dvloznov/exchange-desk/internal/wizard"
)

const defaultReason = "No reason provided"

// Dispatcher hands a closed ticket to background delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, t domain.Ticket) (string, error)
}

// Deps are the collaborators of a Desk. Metrics may be nil.
type Deps struct {
	Wizard        *wizard.Manager
	Tickets       *ticket.Store
	Ledger        *ledger.Ledger
	Blacklist     *blacklist.Registry
	Resolver      access.Resolver
	Provisioner   provision.Provisioner
	Transcripts   Dispatcher
	Vouches       *vouch.Service
	Metrics       *metrics.Metrics
	MiddlemanRole string
}

// Desk is the interaction coordinator.
type Desk struct {
	wizard        *wizard.Manager
	tickets       *ticket.Store
	ledger        *ledger.Ledger
	blacklist     *blacklist.Registry
	resolver      access.Resolver
	provisioner   provision.Provisioner
	transcripts   Dispatcher
	vouches       *vouch.Service
	metrics       *metrics.Metrics
	middlemanRole string
}

// New returns a desk over deps.
func New(deps Deps) *Desk {
	return &Desk{
		wizard:        deps.Wizard,
		tickets:       deps.Tickets,
		ledger:        deps.Ledger,
		blacklist:     deps.Blacklist,
		resolver:      deps.Resolver,
		provisioner:   deps.Provisioner,
		transcripts:   deps.Transcripts,
		vouches:       deps.Vouches,
		metrics:       deps.Metrics,
		middlemanRole: deps.MiddlemanRole,
	}
}

func (d *Desk) log(ctx context.Context, actor domain.Actor) zerolog.Logger {
	return logger.ForActor(logger.FromContext(ctx), actor)
}

// Start opens the intake wizard for actor unless they are blacklisted.
func (d *Desk) Start(ctx context.Context, actor domain.Actor) (Effect, error) {
	blocked, err := d.blacklist.IsBlacklisted(ctx, actor.ID)
	if err != nil {
		return Effect{}, deskerr.Infrastructure(err, "could not check the blacklist")
	}
	if blocked {
		d.metrics.WizardStarted("blacklisted")
		log := d.log(ctx, actor)
		log.Info().Msg("Blacklisted user tried to start an exchange")
		return Effect{}, deskerr.Permission("you are blacklisted and cannot open exchanges")
	}

	s := d.wizard.Start(actor)
	d.metrics.WizardStarted("started")
	log := d.log(ctx, actor)
	log.Debug().Msg("Wizard started")
	return prompt(s, "What are you sending?"), nil
}

// ChooseSendMethod records the send method.
func (d *Desk) ChooseSendMethod(ctx context.Context, actor domain.Actor, method string) (Effect, error) {
	s, err := d.wizard.ChooseSendMethod(actor.ID, domain.Method(method))
	if err != nil {
		return d.rejected(ctx, actor, err)
	}
	if s.Step == wizard.StepSendDetail {
		return prompt(s, fmt.Sprintf("Which %s option are you sending?", s.SendMethod)), nil
	}
	return prompt(s, "What do you want to receive?"), nil
}

// ChooseSendDetail records the send detail of a compound method.
func (d *Desk) ChooseSendDetail(ctx context.Context, actor domain.Actor, detail string) (Effect, error) {
	s, err := d.wizard.ChooseSendDetail(actor.ID, detail)
	if err != nil {
		return d.rejected(ctx, actor, err)
	}
	return prompt(s, "What do you want to receive?"), nil
}

// ChooseReceiveMethod records the receive method.
func (d *Desk) ChooseReceiveMethod(ctx context.Context, actor domain.Actor, method string) (Effect, error) {
	s, err := d.wizard.ChooseReceiveMethod(actor.ID, domain.Method(method))
	if err != nil {
		return d.rejected(ctx, actor, err)
	}
	if s.Step == wizard.StepReceiveDetail {
		return prompt(s, fmt.Sprintf("Which %s option do you want to receive?", s.ReceiveMethod)), nil
	}
	return prompt(s, "How much are you sending?"), nil
}

// ChooseReceiveDetail records the receive detail of a compound method.
func (d *Desk) ChooseReceiveDetail(ctx context.Context, actor domain.Actor, detail string) (Effect, error) {
	s, err := d.wizard.ChooseReceiveDetail(actor.ID, detail)
	if err != nil {
		return d.rejected(ctx, actor, err)
	}
	return prompt(s, "How much are you sending?"), nil
}

// SubmitAmount parses the amount and shows the fee breakdown for confirmation.
func (d *Desk) SubmitAmount(ctx context.Context, actor domain.Actor, raw string) (Effect, error) {
	s, err := d.wizard.SubmitAmount(actor.ID, raw)
	if err != nil {
		return d.rejected(ctx, actor, err)
	}
	msg := fmt.Sprintf("You send %s via %s and receive %s via %s (fee %s%%, %s). Confirm to open a ticket.",
		s.Amount.StringFixed(2), domain.Label(s.SendMethod, s.SendDetail),
		s.Fee.ReceiveAmount.StringFixed(2), domain.Label(s.ReceiveMethod, s.ReceiveDetail),
		s.Fee.Percent, s.Fee.FeeAmount.StringFixed(2))
	return prompt(s, msg), nil
}

// CancelWizard discards the actor's wizard.
func (d *Desk) CancelWizard(ctx context.Context, actor domain.Actor) (Effect, error) {
	if err := d.wizard.Cancel(actor.ID); err != nil {
		return d.rejected(ctx, actor, err)
	}
	return Effect{Kind: EffectWizardCancelled, Message: "Exchange cancelled."}, nil
}

// ConfirmTicket consumes the wizard, provisions a channel and opens the
// ticket. A provisioning failure leaves no ticket behind; the wizard is
// already consumed so the actor starts over.
func (d *Desk) ConfirmTicket(ctx context.Context, actor domain.Actor) (Effect, error) {
	log := d.log(ctx, actor)

	intake, err := d.wizard.Confirm(actor.ID)
	if err != nil {
		return d.rejected(ctx, actor, err)
	}

	ch, err := d.provisioner.Provision(ctx, actor, intake.SendMethod)
	if err != nil {
		log.Error().Err(err).Msg("Failed to provision ticket channel")
		return Effect{}, deskerr.Infrastructure(err, "failed to create your ticket channel, please start over")
	}

	t, err := d.tickets.Create(ctx, ch.Key, ch.Name, intake)
	if err != nil {
		log.Error().Err(err).Str("ticket", ch.Key).Msg("Failed to create ticket")
		return Effect{}, err
	}
	d.metrics.TicketCreated()

	msg := fmt.Sprintf("Ticket %s opened.", ch.Name)
	if ch.PingRole != "" {
		msg += " Exchangers for " + string(intake.SendMethod) + " have been notified."
	}
	return Effect{Kind: EffectTicketOpened, Message: msg, Ticket: &t, Channel: &ch}, nil
}

// ClaimTicket assigns the ticket to actor.
func (d *Desk) ClaimTicket(ctx context.Context, actor domain.Actor, key string) (Effect, error) {
	t, err := d.tickets.Claim(ctx, key, actor)
	if err != nil {
		return Effect{}, err
	}
	d.metrics.TicketClaimed()
	return Effect{
		Kind:    EffectTicketClaimed,
		Message: fmt.Sprintf("Ticket claimed by %s.", actor.ID),
		Ticket:  &t,
	}, nil
}

// CloseTicket closes the ticket. rawAmount is the amount actually exchanged;
// when it is empty, unparsable or not positive the ticket is cancelled.
func (d *Desk) CloseTicket(ctx context.Context, actor domain.Actor, key, rawAmount, reason string) (Effect, error) {
	log := d.log(ctx, actor).With().Str("ticket", key).Logger()

	var amount *decimal.Decimal
	if strings.TrimSpace(rawAmount) != "" {
		if a, err := domain.ParseAmount(rawAmount); err == nil {
			amount = &a
		} else {
			log.Debug().Err(err).Str("raw_amount", rawAmount).Msg("Unusable close amount, cancelling")
		}
	}

	t, closeErr := d.tickets.Close(ctx, key, actor, amount, reason)
	if closeErr != nil && t.Key == "" {
		return Effect{}, closeErr
	}

	// The ticket is gone from the active store from here on.
	d.metrics.TicketClosed(string(t.Status), t.Amount)

	eff := Effect{Kind: EffectTicketClosed, Ticket: &t}
	switch t.Status {
	case domain.StatusCompleted:
		eff.Message = fmt.Sprintf("Ticket completed: %s exchanged.", t.Amount.StringFixed(2))
	default:
		eff.Message = "Ticket cancelled."
	}

	if d.transcripts != nil {
		jobID, err := d.transcripts.Dispatch(ctx, t)
		if err != nil {
			log.Error().Err(err).Msg("Failed to enqueue transcript")
		}
		eff.JobID = jobID
	}

	if r, err := d.provisioner.Retire(ctx, t); err != nil {
		log.Warn().Err(err).Msg("No retirement plan for closed ticket")
	} else {
		eff.Retirement = &r
	}

	return eff, closeErr
}

// OpenTickets lists the open tickets. Exchangers and staff only.
func (d *Desk) OpenTickets(ctx context.Context, actor domain.Actor) ([]domain.Ticket, error) {
	if !d.resolver.Resolve(actor).Exchanger {
		return nil, deskerr.Permission("only exchangers can list tickets")
	}
	return d.tickets.List(ctx)
}

// RequestMiddleman grants the middleman role access to an open ticket.
func (d *Desk) RequestMiddleman(ctx context.Context, actor domain.Actor, key string) (Effect, error) {
	t, ok, err := d.tickets.Get(ctx, key)
	if err != nil {
		return Effect{}, err
	}
	if !ok {
		return Effect{}, deskerr.State("no open ticket %s", key)
	}
	if d.middlemanRole == "" {
		return Effect{}, deskerr.State("no middleman role is configured")
	}

	log := d.log(ctx, actor)
	log.Info().Str("ticket", key).Msg("Middleman requested")
	return Effect{
		Kind:    EffectMiddleman,
		Message: fmt.Sprintf("Middleman requested by %s.", actor.ID),
		Ticket:  &t,
		Grant: &provision.Overwrite{
			Target: d.middlemanRole,
			Kind:   provision.TargetRole,
			Allow:  []provision.Permission{provision.PermView, provision.PermSend, provision.PermHistory},
		},
	}, nil
}

// Total returns the aggregate completed volume.
func (d *Desk) Total(ctx context.Context) (Effect, error) {
	total, err := d.ledger.Total(ctx)
	if err != nil {
		return Effect{}, deskerr.Infrastructure(err, "could not read the total")
	}
	return Effect{
		Kind:    EffectTotal,
		Message: fmt.Sprintf("Total exchanged: %s", total.StringFixed(2)),
		Total:   &total,
	}, nil
}

// Fees returns the fee schedule.
func (d *Desk) Fees() Effect {
	return Effect{Kind: EffectFeeSchedule, Schedule: fees.Schedule()}
}

// Vouch records a rating from actor for targetID.
func (d *Desk) Vouch(ctx context.Context, actor domain.Actor, targetID string, rating int, comment string) (Effect, error) {
	sum, err := d.vouches.Vouch(ctx, actor, targetID, rating, comment)
	if err != nil {
		return Effect{}, err
	}
	return Effect{
		Kind:    EffectVouches,
		Message: fmt.Sprintf("Vouched for %s.", targetID),
		Vouches: &sum,
	}, nil
}

// Vouches returns the vouch summary of targetID.
func (d *Desk) Vouches(ctx context.Context, targetID string) (Effect, error) {
	sum, err := d.vouches.Summary(ctx, targetID)
	if err != nil {
		return Effect{}, err
	}
	msg := fmt.Sprintf("%d vouches, average %s/5", sum.Count, sum.Average.StringFixed(1))
	if sum.Count == 0 {
		msg = targetID + " has no vouches yet."
	}
	return Effect{Kind: EffectVouches, Message: msg, Vouches: &sum}, nil
}

// BlacklistAdd blacklists userID. Requires the blacklist capability.
func (d *Desk) BlacklistAdd(ctx context.Context, actor domain.Actor, userID, reason string) (Effect, error) {
	if err := d.requireBlacklistManager(actor); err != nil {
		return Effect{}, err
	}
	if userID == "" {
		return Effect{}, deskerr.Validation("choose a user to blacklist")
	}
	if err := d.blacklist.Add(ctx, userID); err != nil {
		return Effect{}, deskerr.Infrastructure(err, "could not update the blacklist")
	}
	if strings.TrimSpace(reason) == "" {
		reason = defaultReason
	}
	log := d.log(ctx, actor)
	log.Info().Str("user_id", userID).Str("reason", reason).Msg("User blacklisted")
	return blacklistEffect(true, fmt.Sprintf("%s has been blacklisted.", userID)), nil
}

// BlacklistRemove lifts the blacklist for userID. Requires the blacklist capability.
func (d *Desk) BlacklistRemove(ctx context.Context, actor domain.Actor, userID string) (Effect, error) {
	if err := d.requireBlacklistManager(actor); err != nil {
		return Effect{}, err
	}
	if err := d.blacklist.Remove(ctx, userID); err != nil {
		return Effect{}, deskerr.Infrastructure(err, "could not update the blacklist")
	}
	log := d.log(ctx, actor)
	log.Info().Str("user_id", userID).Msg("User removed from blacklist")
	return blacklistEffect(false, fmt.Sprintf("%s removed from blacklist.", userID)), nil
}

// BlacklistCheck reports whether userID is blacklisted.
func (d *Desk) BlacklistCheck(ctx context.Context, userID string) (Effect, error) {
	blocked, err := d.blacklist.IsBlacklisted(ctx, userID)
	if err != nil {
		return Effect{}, deskerr.Infrastructure(err, "could not check the blacklist")
	}
	msg := userID + " is not blacklisted."
	if blocked {
		msg = userID + " is blacklisted."
	}
	return blacklistEffect(blocked, msg), nil
}

func blacklistEffect(blocked bool, msg string) Effect {
	return Effect{Kind: EffectBlacklist, Message: msg, Blacklisted: &blocked}
}

func (d *Desk) requireBlacklistManager(actor domain.Actor) error {
	if !d.resolver.Resolve(actor).BlacklistManager {
		return deskerr.Permission("no permission")
	}
	return nil
}

// rejected counts and logs a refused wizard step.
func (d *Desk) rejected(ctx context.Context, actor domain.Actor, err error) (Effect, error) {
	d.metrics.WizardRejected(string(deskerr.KindOf(err)))
	log := d.log(ctx, actor)
	log.Debug().Err(err).Msg("Wizard step rejected")
	return Effect{}, err
}
