// Package wizard drives the per-user intake flow that precedes a ticket.
//
// A session moves through
//
//	send method → [send detail] → receive method → [receive detail] → amount → confirm
//
// where the detail steps only appear for compound methods. Sessions live in
// memory, one per user, and expire after a period of inactivity.
package wizard

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/exchange-desk/internal/domain"
)

// Step is the input a session is waiting for.
type Step string

const (
	StepSendMethod    Step = "send_method"
	StepSendDetail    Step = "send_detail"
	StepReceiveMethod Step = "receive_method"
	StepReceiveDetail Step = "receive_detail"
	StepAmount        Step = "amount"
	StepConfirm       Step = "confirm"
)

// Session is the transient intake state of one user.
type Session struct {
	UserID        string               `json:"user_id"`
	UserName      string               `json:"user_name,omitempty"`
	Step          Step                 `json:"step"`
	SendMethod    domain.Method        `json:"send_method,omitempty"`
	SendDetail    string               `json:"send_detail,omitempty"`
	ReceiveMethod domain.Method        `json:"receive_method,omitempty"`
	ReceiveDetail string               `json:"receive_detail,omitempty"`
	Amount        *decimal.Decimal     `json:"amount,omitempty"`
	Fee           *domain.FeeBreakdown `json:"fee,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	// TouchedAt is the time of the last accepted step; expiry counts from it.
	TouchedAt time.Time `json:"touched_at"`
}

// Options returns what the user may choose at the current step.
func (s Session) Options() []string {
	switch s.Step {
	case StepSendMethod:
		return methodNames(domain.Catalog)
	case StepSendDetail:
		return s.SendMethod.Details()
	case StepReceiveMethod:
		return methodNames(domain.ReceiveOptions(s.SendMethod))
	case StepReceiveDetail:
		return s.ReceiveMethod.Details()
	}
	return nil
}

func (s *Session) intake() domain.IntakeRecord {
	rec := domain.IntakeRecord{
		RequesterID:   s.UserID,
		RequesterName: s.UserName,
		SendMethod:    s.SendMethod,
		SendDetail:    s.SendDetail,
		ReceiveMethod: s.ReceiveMethod,
		ReceiveDetail: s.ReceiveDetail,
		StartedAt:     s.CreatedAt,
	}
	if s.Amount != nil {
		rec.Amount = *s.Amount
	}
	if s.Fee != nil {
		fee := *s.Fee
		rec.Fee = &fee
	}
	return rec
}

func (s *Session) snapshot() Session {
	out := *s
	if s.Fee != nil {
		fee := *s.Fee
		out.Fee = &fee
	}
	return out
}

func methodNames(ms []domain.Method) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = string(m)
	}
	return out
}
