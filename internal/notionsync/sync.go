package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/exchange-desk/internal/domain"
	"github.com/dvloznov/exchange-desk/internal/logger"
)

// LogClosedTicket writes a closed ticket to the exchange log database and
// returns the page id. The ticket key is the idempotency key: a ticket that
// is already logged has its page updated instead of duplicated.
func LogClosedTicket(ctx context.Context, notionClient NotionService, notionDBID string, t domain.Ticket) (string, error) {
	log := logger.FromContext(ctx).With().Str("ticket", t.Key).Logger()

	existing, err := findPageByTicketKey(ctx, notionClient, notionDBID, t.Key)
	if err != nil {
		return "", fmt.Errorf("LogClosedTicket: %w", err)
	}

	props := TicketToNotionProperties(t)

	if existing != "" {
		if _, err := notionClient.UpdatePage(ctx, existing, props); err != nil {
			return "", fmt.Errorf("LogClosedTicket: update page %s: %w", existing, err)
		}
		log.Info().Str("page_id", existing).Msg("Updated exchange log page")
		return existing, nil
	}

	page, err := notionClient.CreatePage(ctx, notionDBID, props)
	if err != nil {
		return "", fmt.Errorf("LogClosedTicket: create page: %w", err)
	}
	log.Info().Str("page_id", string(page.ID)).Msg("Created exchange log page")
	return string(page.ID), nil
}

// findPageByTicketKey returns the id of the page logging key, or "".
func findPageByTicketKey(ctx context.Context, notionClient NotionService, databaseID, key string) (string, error) {
	resp, err := notionClient.QueryDatabase(ctx, databaseID, &notionapi.DatabaseQueryRequest{
		Filter: &notionapi.PropertyFilter{
			Property: PropTicketKey,
			RichText: &notionapi.TextFilterCondition{Equals: key},
		},
		PageSize: 1,
	})
	if err != nil {
		return "", fmt.Errorf("findPageByTicketKey: %w", err)
	}

	for _, page := range resp.Results {
		if extractTicketKey(page) == key {
			return string(page.ID), nil
		}
	}
	return "", nil
}

// extractTicketKey extracts the ticket key from a Notion page's properties.
// Returns empty string if not found.
func extractTicketKey(page notionapi.Page) string {
	if prop, ok := page.Properties[PropTicketKey]; ok {
		if rt, ok := prop.(*notionapi.RichTextProperty); ok {
			if len(rt.RichText) > 0 {
				return rt.RichText[0].PlainText
			}
		}
	}
	return ""
}
