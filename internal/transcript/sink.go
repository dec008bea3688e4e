package transcript

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/dvloznov/exchange-desk/internal/domain"
	"github.com/dvloznov/exchange-desk/internal/gcs"
	bqinfra "github.com/dvloznov/exchange-desk/internal/infra/bigquery"
	"github.com/dvloznov/exchange-desk/internal/notionsync"
)

// Sink is one delivery target for a closed ticket.
type Sink interface {
	// Name identifies the sink in job results and logs.
	Name() string
	// Deliver stores the transcript and returns where it went.
	Deliver(ctx context.Context, t domain.Ticket, html []byte) (string, error)
}

// LocalSink writes transcripts to a directory.
type LocalSink struct {
	Dir string
}

func (s LocalSink) Name() string { return "local" }

func (s LocalSink) Deliver(ctx context.Context, t domain.Ticket, html []byte) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create transcript dir: %w", err)
	}
	p := filepath.Join(s.Dir, Filename(t))
	if err := os.WriteFile(p, html, 0o644); err != nil {
		return "", fmt.Errorf("write transcript: %w", err)
	}
	return p, nil
}

// GCSSink uploads transcripts to a bucket under Prefix/YYYY/MM/.
type GCSSink struct {
	Storage gcs.StorageService
	Bucket  string
	Prefix  string
}

func (s GCSSink) Name() string { return "gcs" }

func (s GCSSink) Deliver(ctx context.Context, t domain.Ticket, html []byte) (string, error) {
	closed := t.CreatedAt
	if t.ClosedAt != nil {
		closed = *t.ClosedAt
	}
	object := path.Join(s.Prefix, closed.UTC().Format("2006/01"), Filename(t))
	return s.Storage.Upload(ctx, s.Bucket, object, html, "text/html; charset=utf-8")
}

// ArchiveSink appends the closed ticket to the BigQuery archive.
type ArchiveSink struct {
	Repo bqinfra.ArchiveRepository
}

func (s ArchiveSink) Name() string { return "bigquery" }

func (s ArchiveSink) Deliver(ctx context.Context, t domain.Ticket, _ []byte) (string, error) {
	if err := s.Repo.InsertClosedTicket(ctx, bqinfra.ClosedTicketRowFromTicket(t)); err != nil {
		return "", err
	}
	return "closed_tickets/" + t.Key, nil
}

// NotionSink records the closed ticket in the Notion exchange log.
type NotionSink struct {
	Client     notionsync.NotionService
	DatabaseID string
}

func (s NotionSink) Name() string { return "notion" }

func (s NotionSink) Deliver(ctx context.Context, t domain.Ticket, _ []byte) (string, error) {
	pageID, err := notionsync.LogClosedTicket(ctx, s.Client, s.DatabaseID, t)
	if err != nil {
		return "", err
	}
	return "notion:" + pageID, nil
}
