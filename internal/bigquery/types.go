package bigquery

import (
	"context"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

// ArchiveRepository provides an interface for the closed-ticket archive.
type ArchiveRepository interface {
	// InsertClosedTicket appends a closed ticket to the archive.
	InsertClosedTicket(ctx context.Context, row *ClosedTicketRow) error

	// ListClosedTickets returns archived tickets closed within the filter's date range.
	ListClosedTickets(ctx context.Context, filter ArchiveFilter) ([]*ClosedTicketRow, error)

	// VolumeByMethod sums completed volume per send method within the date range.
	VolumeByMethod(ctx context.Context, from, to civil.Date) ([]*MethodVolumeRow, error)

	// Close releases the underlying client.
	Close() error
}

// ArchiveFilter selects archived tickets. Zero dates are open bounds.
type ArchiveFilter struct {
	From   civil.Date
	To     civil.Date
	Status string
	Limit  int
}

// ClosedTicketRow is one row of exchange.closed_tickets.
type ClosedTicketRow struct {
	TicketKey   string              `bigquery:"ticket_key"`   // REQUIRED
	ChannelName bigquery.NullString `bigquery:"channel_name"` // NULLABLE
	RequesterID string              `bigquery:"requester_id"` // REQUIRED

	SendMethod    string              `bigquery:"send_method"`    // REQUIRED
	SendDetail    bigquery.NullString `bigquery:"send_detail"`    // NULLABLE
	ReceiveMethod string              `bigquery:"receive_method"` // REQUIRED
	ReceiveDetail bigquery.NullString `bigquery:"receive_detail"` // NULLABLE

	Status string `bigquery:"status"` // REQUIRED: completed | cancelled

	Amount        *big.Rat            `bigquery:"amount"`         // NULLABLE NUMERIC
	FeePercent    *big.Rat            `bigquery:"fee_percent"`    // NULLABLE NUMERIC
	FeeAmount     *big.Rat            `bigquery:"fee_amount"`     // NULLABLE NUMERIC
	ReceiveAmount *big.Rat            `bigquery:"receive_amount"` // NULLABLE NUMERIC
	FeeNote       bigquery.NullString `bigquery:"fee_note"`       // NULLABLE

	ClaimedBy   bigquery.NullString `bigquery:"claimed_by"` // NULLABLE
	ClosedBy    string              `bigquery:"closed_by"`
	CloseReason string              `bigquery:"close_reason"`

	CreatedTS  time.Time  `bigquery:"created_ts"`
	ClosedTS   time.Time  `bigquery:"closed_ts"`
	ClosedDate civil.Date `bigquery:"closed_date"` // partition column
}

// MethodVolumeRow is the completed volume of one send method.
type MethodVolumeRow struct {
	SendMethod string   `bigquery:"send_method"`
	Tickets    int64    `bigquery:"tickets"`
	Volume     *big.Rat `bigquery:"volume"`
}
