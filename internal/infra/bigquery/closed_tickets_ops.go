package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"
)

const (
	// DefaultDataset is the dataset holding the archive tables.
	DefaultDataset     = "exchange"
	closedTicketsTable = "closed_tickets"
	defaultListLimit   = 100
)

// InsertClosedTicketWithClient appends row to exchange.closed_tickets.
func InsertClosedTicketWithClient(ctx context.Context, client *bigquery.Client, projectID, datasetID string, row *ClosedTicketRow) error {
	if row == nil || row.TicketKey == "" {
		return fmt.Errorf("InsertClosedTicket: ticket key is required")
	}

	table := client.DatasetInProject(projectID, datasetID).Table(closedTicketsTable)
	if err := table.Inserter().Put(ctx, row); err != nil {
		return fmt.Errorf("InsertClosedTicket: inserting row: %w", err)
	}
	return nil
}

// ListClosedTicketsWithClient returns archived tickets, newest first.
func ListClosedTicketsWithClient(ctx context.Context, client *bigquery.Client, projectID, datasetID string, filter ArchiveFilter) ([]*ClosedTicketRow, error) {
	sql, params := buildListQuery(projectID, datasetID, filter)
	q := client.Query(sql)
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListClosedTickets: query read: %w", err)
	}

	var rows []*ClosedTicketRow
	for {
		var r ClosedTicketRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListClosedTickets: iter next: %w", err)
		}
		rows = append(rows, &r)
	}
	return rows, nil
}

// VolumeByMethodWithClient sums completed volume per send method.
func VolumeByMethodWithClient(ctx context.Context, client *bigquery.Client, projectID, datasetID string, from, to civil.Date) ([]*MethodVolumeRow, error) {
	where, params := dateRange(from, to)
	where = append(where, "status = 'completed'")

	q := client.Query(fmt.Sprintf(`
		SELECT
			send_method,
			COUNT(*) AS tickets,
			SUM(amount) AS volume
		FROM `+"`%s.%s.%s`"+`
		WHERE %s
		GROUP BY send_method
		ORDER BY volume DESC
	`, projectID, datasetID, closedTicketsTable, joinAnd(where)))
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("VolumeByMethod: query read: %w", err)
	}

	var rows []*MethodVolumeRow
	for {
		var r MethodVolumeRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("VolumeByMethod: iter next: %w", err)
		}
		rows = append(rows, &r)
	}
	return rows, nil
}

func buildListQuery(projectID, datasetID string, filter ArchiveFilter) (string, []bigquery.QueryParameter) {
	where, params := dateRange(filter.From, filter.To)
	if filter.Status != "" {
		where = append(where, "status = @status")
		params = append(params, bigquery.QueryParameter{Name: "status", Value: filter.Status})
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	params = append(params, bigquery.QueryParameter{Name: "limit", Value: limit})

	sql := fmt.Sprintf(`
		SELECT
			ticket_key, channel_name, requester_id,
			send_method, send_detail, receive_method, receive_detail,
			status, amount, fee_percent, fee_amount, receive_amount, fee_note,
			claimed_by, closed_by, close_reason,
			created_ts, closed_ts, closed_date
		FROM `+"`%s.%s.%s`"+`
		WHERE %s
		ORDER BY closed_ts DESC
		LIMIT @limit
	`, projectID, datasetID, closedTicketsTable, joinAnd(where))
	return sql, params
}

func dateRange(from, to civil.Date) ([]string, []bigquery.QueryParameter) {
	var (
		where  []string
		params []bigquery.QueryParameter
	)
	if from.IsValid() {
		where = append(where, "closed_date >= @from_date")
		params = append(params, bigquery.QueryParameter{Name: "from_date", Value: from})
	}
	if to.IsValid() {
		where = append(where, "closed_date <= @to_date")
		params = append(params, bigquery.QueryParameter{Name: "to_date", Value: to})
	}
	return where, params
}

func joinAnd(conds []string) string {
	if len(conds) == 0 {
		return "TRUE"
	}
	out := conds[0]
	for _, c := range conds[1:] {
		out += " AND " + c
	}
	return out
}
