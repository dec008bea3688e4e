package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	bq "github.com/dvloznov/exchange-desk/internal/bigquery"
)

// Re-export types from the shared package so callers need one import.
type (
	ArchiveRepository = bq.ArchiveRepository
	ArchiveFilter     = bq.ArchiveFilter
	ClosedTicketRow   = bq.ClosedTicketRow
	MethodVolumeRow   = bq.MethodVolumeRow
)

// BigQueryArchiveRepository is the concrete implementation of ArchiveRepository
// that interacts with BigQuery. It holds a shared client for all operations.
type BigQueryArchiveRepository struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

// NewBigQueryArchiveRepository creates a repository over projectID.datasetID.
func NewBigQueryArchiveRepository(ctx context.Context, projectID, datasetID string) (*BigQueryArchiveRepository, error) {
	if projectID == "" {
		return nil, fmt.Errorf("NewBigQueryArchiveRepository: project id is required")
	}
	if datasetID == "" {
		datasetID = DefaultDataset
	}
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryArchiveRepository: creating client: %w", err)
	}
	return &BigQueryArchiveRepository{
		client:    client,
		projectID: projectID,
		datasetID: datasetID,
	}, nil
}

// Close closes the BigQuery client connection.
func (r *BigQueryArchiveRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// InsertClosedTicket delegates to InsertClosedTicketWithClient with the shared client.
func (r *BigQueryArchiveRepository) InsertClosedTicket(ctx context.Context, row *ClosedTicketRow) error {
	return InsertClosedTicketWithClient(ctx, r.client, r.projectID, r.datasetID, row)
}

// ListClosedTickets delegates to ListClosedTicketsWithClient with the shared client.
func (r *BigQueryArchiveRepository) ListClosedTickets(ctx context.Context, filter ArchiveFilter) ([]*ClosedTicketRow, error) {
	return ListClosedTicketsWithClient(ctx, r.client, r.projectID, r.datasetID, filter)
}

// VolumeByMethod delegates to VolumeByMethodWithClient with the shared client.
func (r *BigQueryArchiveRepository) VolumeByMethod(ctx context.Context, from, to civil.Date) ([]*MethodVolumeRow, error) {
	return VolumeByMethodWithClient(ctx, r.client, r.projectID, r.datasetID, from, to)
}

var _ ArchiveRepository = (*BigQueryArchiveRepository)(nil)
