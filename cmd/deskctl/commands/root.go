// Package commands implements deskctl, the operator CLI for the exchange desk.
// It talks to the same store and archives as the API process.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dvloznov/exchange-desk/internal/bigquery"
	"github.com/dvloznov/exchange-desk/internal/config"
	"github.com/dvloznov/exchange-desk/internal/gcs"
	"github.com/dvloznov/exchange-desk/internal/gcsuploader"
	infraBQ "github.com/dvloznov/exchange-desk/internal/infra/bigquery"
	"github.com/dvloznov/exchange-desk/internal/logger"
	"github.com/dvloznov/exchange-desk/internal/store"
	storemem "github.com/dvloznov/exchange-desk/internal/store/inmemory"
	"github.com/dvloznov/exchange-desk/internal/store/redisstore"
	"github.com/dvloznov/exchange-desk/internal/vouch"
)

// app holds the backends commands use. Each is opened on first use so a
// command only needs the settings it touches.
type app struct {
	cfg config.Config
	log zerolog.Logger

	store   store.Store
	vouches vouch.Repository
	archive bigquery.ArchiveRepository
	storage gcs.StorageService

	closers []func() error
}

func (a *app) Store(ctx context.Context) (store.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	if a.cfg.StoreBackend != config.BackendRedis {
		a.log.Warn().Msg("STORE_BACKEND is memory; deskctl sees an empty desk")
		a.store = storemem.NewStore()
		return a.store, nil
	}
	s, err := redisstore.New(ctx, redisstore.Options{
		Addrs:      a.cfg.RedisAddrs,
		Password:   a.cfg.RedisPassword,
		UseCluster: a.cfg.RedisCluster,
		Namespace:  a.cfg.RedisNamespace,
	})
	if err != nil {
		return nil, err
	}
	a.store = s
	a.closers = append(a.closers, s.Close)
	return s, nil
}

func (a *app) Vouches(ctx context.Context) (vouch.Repository, error) {
	if a.vouches != nil {
		return a.vouches, nil
	}
	if a.cfg.PostgresDSN == "" {
		return nil, errMissing("POSTGRES_DSN")
	}
	pool, err := config.ConnectPostgres(ctx, a.cfg.PostgresDSN, a.log)
	if err != nil {
		return nil, err
	}
	a.vouches = vouch.NewPostgresRepository(pool)
	a.closers = append(a.closers, func() error { pool.Close(); return nil })
	return a.vouches, nil
}

func (a *app) Archive(ctx context.Context) (bigquery.ArchiveRepository, error) {
	if a.archive != nil {
		return a.archive, nil
	}
	if a.cfg.BigQueryProject == "" {
		return nil, errMissing("BQ_PROJECT")
	}
	repo, err := infraBQ.NewBigQueryArchiveRepository(ctx, a.cfg.BigQueryProject, a.cfg.BigQueryDataset)
	if err != nil {
		return nil, err
	}
	a.archive = repo
	a.closers = append(a.closers, repo.Close)
	return repo, nil
}

func (a *app) Storage(ctx context.Context) (gcs.StorageService, error) {
	if a.storage != nil {
		return a.storage, nil
	}
	svc, err := gcsuploader.NewGCSStorageService(ctx)
	if err != nil {
		return nil, err
	}
	a.storage = svc
	a.closers = append(a.closers, svc.Close)
	return svc, nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.log.Error().Err(err).Msg("Failed to close backend")
		}
	}
}

func errMissing(name string) error { return fmt.Errorf("%s is not set", name) }

// Execute runs deskctl with the process arguments.
func Execute() error {
	a := &app{}
	root := newRoot(a, true)
	defer a.Close()
	return root.Execute()
}

// newRoot builds the command tree over a. When load is set the environment
// is parsed before any command runs.
func newRoot(a *app, load bool) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "deskctl",
		Short:         "Operate the exchange desk",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := "warn"
			if verbose {
				level = "debug"
			}
			log, err := logger.Configure(level, logger.FormatConsole, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			a.log = log
			if !load {
				return nil
			}
			cfg, err := config.Load(log)
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		blacklistCmd(a),
		totalCmd(a),
		feesCmd(),
		ticketsCmd(a),
		vouchesCmd(a),
		archiveCmd(a),
		transcriptCmd(a),
	)
	return root
}

func ctxFor(cmd *cobra.Command, a *app) context.Context {
	return logger.WithContext(cmd.Context(), a.log)
}

func out(cmd *cobra.Command) io.Writer { return cmd.OutOrStdout() }
