package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"cloud.google.com/go/bigquery"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	infraBQ "github.com/dvloznov/exchange-desk/internal/infra/bigquery"
	"github.com/dvloznov/exchange-desk/internal/logger"
)

// target is a database that records which migrations it has applied.
type target interface {
	EnsureSchemaTable(ctx context.Context) error
	Applied(ctx context.Context) ([]AppliedMigration, error)
	Apply(ctx context.Context, m Migration) error
	Close() error
}

var (
	targetName    = flag.String("target", "bigquery", "Migration target: bigquery or postgres")
	projectID     = flag.String("project", os.Getenv("BQ_PROJECT"), "GCP project ID (bigquery target)")
	datasetID     = flag.String("dataset", infraBQ.DefaultDataset, "BigQuery dataset ID")
	dsn           = flag.String("dsn", os.Getenv("POSTGRES_DSN"), "Postgres connection string (postgres target)")
	appliedBy     = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
	migrationsDir = flag.String("migrations", "", "Path to migrations directory (default migrations/<target>)")
)

func main() {
	flag.Parse()
	log := logger.New()

	if err := run(context.Background(), log); err != nil {
		log.Fatal().Err(err).Str("target", *targetName).Msg("Migration failed")
	}
}

func run(ctx context.Context, log zerolog.Logger) error {
	dir := *migrationsDir
	if dir == "" {
		dir = "migrations/" + *targetName
	}

	t, placeholders, err := openTarget(ctx)
	if err != nil {
		return err
	}
	defer t.Close()

	if err := t.EnsureSchemaTable(ctx); err != nil {
		return fmt.Errorf("ensure schema_migrations table: %w", err)
	}

	all, err := readMigrations(dir, placeholders, log)
	if err != nil {
		return err
	}
	log.Info().Int("files", len(all)).Str("dir", dir).Msg("Read migrations")

	applied, err := t.Applied(ctx)
	if err != nil {
		return err
	}
	todo, err := pending(all, applied)
	if err != nil {
		return err
	}

	for _, m := range todo {
		log.Info().Msgf("[RUN]  %04d_%s", m.Version, m.Name)
		if err := t.Apply(ctx, m); err != nil {
			return fmt.Errorf("apply %04d_%s: %w", m.Version, m.Name, err)
		}
		log.Info().Msgf("[OK]   %04d_%s", m.Version, m.Name)
	}

	if len(todo) == 0 {
		log.Info().Msg("No new migrations to apply. Database is up to date.")
	} else {
		log.Info().Int("applied", len(todo)).Msg("Successfully applied migrations")
	}
	return nil
}

func openTarget(ctx context.Context) (target, map[string]string, error) {
	switch *targetName {
	case "bigquery":
		if *projectID == "" {
			return nil, nil, fmt.Errorf("-project flag is required for the bigquery target")
		}
		client, err := bigquery.NewClient(ctx, *projectID)
		if err != nil {
			return nil, nil, fmt.Errorf("create BigQuery client: %w", err)
		}
		return &bigQueryTarget{
				client:    client,
				projectID: *projectID,
				datasetID: *datasetID,
				appliedBy: *appliedBy,
			}, map[string]string{
				"{{PROJECT_ID}}": *projectID,
				"{{DATASET_ID}}": *datasetID,
			}, nil

	case "postgres":
		if *dsn == "" {
			return nil, nil, fmt.Errorf("-dsn flag or POSTGRES_DSN is required for the postgres target")
		}
		cfg, err := pgxpool.ParseConfig(*dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("parse dsn: %w", err)
		}
		// Migration files hold several statements.
		cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		return &postgresTarget{pool: pool, appliedBy: *appliedBy}, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown target %q", *targetName)
}
