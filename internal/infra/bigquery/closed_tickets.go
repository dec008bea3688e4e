package bigquery

import (
	"math/big"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/exchange-desk/internal/domain"
)

// ClosedTicketRowFromTicket converts a closed ticket into its archive row.
func ClosedTicketRowFromTicket(t domain.Ticket) *ClosedTicketRow {
	row := &ClosedTicketRow{
		TicketKey:     t.Key,
		ChannelName:   nullString(t.ChannelName),
		RequesterID:   t.RequesterID,
		SendMethod:    string(t.SendMethod),
		SendDetail:    nullString(t.SendDetail),
		ReceiveMethod: string(t.ReceiveMethod),
		ReceiveDetail: nullString(t.ReceiveDetail),
		Status:        string(t.Status),
		ClaimedBy:     nullString(t.ClaimedBy),
		ClosedBy:      t.ClosedBy,
		CloseReason:   t.CloseReason,
		CreatedTS:     t.CreatedAt.UTC(),
	}

	if t.ClosedAt != nil {
		row.ClosedTS = t.ClosedAt.UTC()
		row.ClosedDate = civil.DateOf(row.ClosedTS)
	}
	if t.Amount != nil {
		row.Amount = rat(*t.Amount)
	}
	if t.Fee != nil {
		row.FeePercent = rat(t.Fee.Percent)
		row.FeeAmount = rat(t.Fee.FeeAmount)
		row.ReceiveAmount = rat(t.Fee.ReceiveAmount)
		row.FeeNote = nullString(t.Fee.Note)
	}
	return row
}

func rat(d decimal.Decimal) *big.Rat {
	return d.Rat()
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}
