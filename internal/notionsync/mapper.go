package notionsync

import (
	"github.com/jomei/notionapi"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/exchange-desk/internal/domain"
)

// Exchange log column names.
const (
	PropChannel       = "Channel"
	PropTicketKey     = "Ticket Key"
	PropStatus        = "Status"
	PropSend          = "Send"
	PropReceive       = "Receive"
	PropAmount        = "Amount"
	PropFeePercent    = "Fee %"
	PropFee           = "Fee"
	PropReceiveAmount = "Receive Amount"
	PropRequester     = "Requester"
	PropClaimedBy     = "Claimed By"
	PropClosedBy      = "Closed By"
	PropReason        = "Reason"
	PropCreated       = "Created"
	PropClosed        = "Closed"
)

// TicketToNotionProperties converts a closed ticket to exchange log properties.
func TicketToNotionProperties(t domain.Ticket) notionapi.Properties {
	title := t.ChannelName
	if title == "" {
		title = t.Key
	}

	props := notionapi.Properties{
		PropChannel: notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{Content: title},
				},
			},
		},
		PropTicketKey: richText(t.Key),
		PropStatus: notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(t.Status)},
		},
		PropSend:      richText(t.SendLabel()),
		PropReceive:   richText(t.ReceiveLabel()),
		PropRequester: richText(t.RequesterID),
		PropClosedBy:  richText(t.ClosedBy),
		PropReason:    richText(t.CloseReason),
		PropCreated: notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: (*notionapi.Date)(&t.CreatedAt),
			},
		},
	}

	if t.ClaimedBy != "" {
		props[PropClaimedBy] = richText(t.ClaimedBy)
	}

	if t.ClosedAt != nil {
		closed := *t.ClosedAt
		props[PropClosed] = notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: (*notionapi.Date)(&closed),
			},
		}
	}

	if t.Amount != nil {
		props[PropAmount] = number(*t.Amount)
	}

	if t.Fee != nil {
		props[PropFeePercent] = number(t.Fee.Percent)
		props[PropFee] = number(t.Fee.FeeAmount)
		props[PropReceiveAmount] = number(t.Fee.ReceiveAmount)
	}

	return props
}

func richText(s string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		RichText: []notionapi.RichText{
			{
				Type: notionapi.ObjectTypeText,
				Text: &notionapi.Text{Content: s},
			},
		},
	}
}

func number(d decimal.Decimal) notionapi.NumberProperty {
	return notionapi.NumberProperty{Number: d.InexactFloat64()}
}
