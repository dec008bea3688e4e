package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// bigQueryTarget keeps schema_migrations in the archive dataset.
type bigQueryTarget struct {
	client    *bigquery.Client
	projectID string
	datasetID string
	appliedBy string
}

func (t *bigQueryTarget) table() string {
	return fmt.Sprintf("`%s.%s.schema_migrations`", t.projectID, t.datasetID)
}

// run executes sql and waits for the job to finish.
func (t *bigQueryTarget) run(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}

	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}

	return nil
}

func (t *bigQueryTarget) EnsureSchemaTable(ctx context.Context) error {
	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version       INT64 NOT NULL,
			name          STRING NOT NULL,
			applied_at    TIMESTAMP NOT NULL,
			checksum      STRING,
			applied_by    STRING
		)
	`, t.table())
	return t.run(ctx, t.client.Query(sql))
}

func (t *bigQueryTarget) Applied(ctx context.Context) ([]AppliedMigration, error) {
	sql := fmt.Sprintf(`
		SELECT version, name, applied_at, checksum, applied_by
		FROM %s
		ORDER BY version ASC
	`, t.table())

	it, err := t.client.Query(sql).Read(ctx)
	if err != nil {
		// If table doesn't exist yet, return empty list
		if strings.Contains(err.Error(), "Not found") {
			return []AppliedMigration{}, nil
		}
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}

	var applied []AppliedMigration
	for {
		var row struct {
			Version   int64
			Name      string
			AppliedAt time.Time
			Checksum  bigquery.NullString
			AppliedBy bigquery.NullString
		}

		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating results: %w", err)
		}

		applied = append(applied, AppliedMigration{
			Version:   int(row.Version),
			Name:      row.Name,
			AppliedAt: row.AppliedAt,
			Checksum:  row.Checksum.StringVal,
			AppliedBy: row.AppliedBy.StringVal,
		})
	}

	return applied, nil
}

// Apply runs the migration then records it. BigQuery DDL is not
// transactional, so a failure between the two leaves the migration
// unrecorded and it must be idempotent.
func (t *bigQueryTarget) Apply(ctx context.Context, m Migration) error {
	if err := t.run(ctx, t.client.Query(m.SQL)); err != nil {
		return err
	}

	q := t.client.Query(fmt.Sprintf(`
		INSERT INTO %s
		(version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)
	`, t.table()))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "version", Value: m.Version},
		{Name: "name", Value: m.Name},
		{Name: "checksum", Value: m.Checksum},
		{Name: "applied_by", Value: t.appliedBy},
	}
	if err := t.run(ctx, q); err != nil {
		return fmt.Errorf("recording migration: %w", err)
	}
	return nil
}

func (t *bigQueryTarget) Close() error { return t.client.Close() }
