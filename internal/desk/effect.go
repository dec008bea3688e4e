package desk

import (
	"github.com/shopspring/decimal"

	"github.com/dvloznov/exchange-desk/internal/domain"
	"github.com/dvloznov/exchange-desk/internal/fees"
	"github.com/dvloznov/exchange-desk/internal/provision"
	"github.com/dvloznov/exchange-desk/internal/vouch"
	"github.com/dvloznov/exchange-desk/internal/wizard"
)

// EffectKind says what happened as the result of a command.
type EffectKind string

const (
	// EffectPrompt means the wizard is waiting for the next input.
	EffectPrompt          EffectKind = "prompt"
	EffectWizardCancelled EffectKind = "wizard_cancelled"
	EffectTicketOpened    EffectKind = "ticket_opened"
	EffectTicketClaimed   EffectKind = "ticket_claimed"
	EffectTicketClosed    EffectKind = "ticket_closed"
	EffectMiddleman       EffectKind = "middleman_requested"
	EffectTotal           EffectKind = "total"
	EffectFeeSchedule     EffectKind = "fee_schedule"
	EffectVouches         EffectKind = "vouches"
	EffectBlacklist       EffectKind = "blacklist"
)

// Effect is the outcome of a desk command. It carries data for the caller
// to present; the desk never renders.
type Effect struct {
	Kind    EffectKind `json:"kind"`
	Message string     `json:"message,omitempty"`

	// Wizard
	Step    wizard.Step     `json:"step,omitempty"`
	Options []string        `json:"options,omitempty"`
	Session *wizard.Session `json:"session,omitempty"`

	// Tickets
	Ticket     *domain.Ticket        `json:"ticket,omitempty"`
	Channel    *provision.Channel    `json:"channel,omitempty"`
	Retirement *provision.Retirement `json:"retirement,omitempty"`
	Grant      *provision.Overwrite  `json:"grant,omitempty"`
	JobID      string                `json:"job_id,omitempty"`

	// Queries
	Total       *decimal.Decimal   `json:"total,omitempty"`
	Schedule    []fees.ScheduleRow `json:"schedule,omitempty"`
	Vouches     *vouch.Summary     `json:"vouches,omitempty"`
	Blacklisted *bool              `json:"blacklisted,omitempty"`
}

func prompt(s wizard.Session, msg string) Effect {
	return Effect{
		Kind:    EffectPrompt,
		Message: msg,
		Step:    s.Step,
		Options: s.Options(),
		Session: &s,
	}
}
