package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle status of a ticket.
type Status string

const (
	StatusOpen      Status = "open"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// FeeBreakdown is the derived fee for a sent amount.
// ReceiveAmount always equals the sent amount minus FeeAmount.
type FeeBreakdown struct {
	Percent       decimal.Decimal `json:"percent"`
	FeeAmount     decimal.Decimal `json:"fee_amount"`
	ReceiveAmount decimal.Decimal `json:"receive_amount"`
	Note          string          `json:"note,omitempty"`
}

// Actor is a user acting on the desk, with the role ids they hold.
type Actor struct {
	ID    string   `json:"id"`
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// IntakeRecord is the output of a confirmed wizard session.
type IntakeRecord struct {
	RequesterID   string          `json:"requester_id"`
	RequesterName string          `json:"requester_name,omitempty"`
	SendMethod    Method          `json:"send_method"`
	SendDetail    string          `json:"send_detail,omitempty"`
	ReceiveMethod Method          `json:"receive_method"`
	ReceiveDetail string          `json:"receive_detail,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Fee           *FeeBreakdown   `json:"fee,omitempty"`
	StartedAt     time.Time       `json:"started_at"`
}

// Ticket is a single exchange request, keyed by its channel key.
type Ticket struct {
	Key           string           `json:"key"`
	ChannelName   string           `json:"channel_name,omitempty"`
	RequesterID   string           `json:"requester_id"`
	SendMethod    Method           `json:"send_method"`
	SendDetail    string           `json:"send_detail,omitempty"`
	ReceiveMethod Method           `json:"receive_method"`
	ReceiveDetail string           `json:"receive_detail,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Fee           *FeeBreakdown    `json:"fee,omitempty"`
	Claimed       bool             `json:"claimed"`
	ClaimedBy     string           `json:"claimed_by,omitempty"`
	Status        Status           `json:"status"`
	CreatedAt     time.Time        `json:"created_at"`

	// Set on closure only.
	ClosedBy    string     `json:"closed_by,omitempty"`
	CloseReason string     `json:"close_reason,omitempty"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
}

// SendLabel renders the send side, e.g. "Crypto (LTC)".
func (t *Ticket) SendLabel() string { return Label(t.SendMethod, t.SendDetail) }

// ReceiveLabel renders the receive side.
func (t *Ticket) ReceiveLabel() string { return Label(t.ReceiveMethod, t.ReceiveDetail) }
