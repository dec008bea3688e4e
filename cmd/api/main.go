package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/dvloznov/exchange-desk/internal/access"
	"github.com/dvloznov/exchange-desk/internal/api"
	"github.com/dvloznov/exchange-desk/internal/blacklist"
	"github.com/dvloznov/exchange-desk/internal/config"
	"github.com/dvloznov/exchange-desk/internal/desk"
	"github.com/dvloznov/exchange-desk/internal/gcsuploader"
	infraBQ "github.com/dvloznov/exchange-desk/internal/infra/bigquery"
	"github.com/dvloznov/exchange-desk/internal/jobs/inmemory"
	"github.com/dvloznov/exchange-desk/internal/ledger"
	"github.com/dvloznov/exchange-desk/internal/logger"
	"github.com/dvloznov/exchange-desk/internal/metrics"
	"github.com/dvloznov/exchange-desk/internal/notionsync"
	"github.com/dvloznov/exchange-desk/internal/provision"
	"github.com/dvloznov/exchange-desk/internal/store"
	storemem "github.com/dvloznov/exchange-desk/internal/store/inmemory"
	"github.com/dvloznov/exchange-desk/internal/store/redisstore"
	"github.com/dvloznov/exchange-desk/internal/ticket"
	"github.com/dvloznov/exchange-desk/internal/transcript"
	"github.com/dvloznov/exchange-desk/internal/vouch"
	"github.com/dvloznov/exchange-desk/internal/wizard"
)

func main() {
	cfg, err := config.Load(logger.New())
	if err != nil {
		fallback := logger.New()
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log, err := logger.Configure(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err != nil {
		fallback := logger.New()
		fallback.Fatal().Err(err).Msg("Invalid logging configuration")
	}

	deskCfg, err := config.LoadDesk(cfg.DeskFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load desk file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	kv, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer kv.Close()

	vouchRepo, closeVouches := openVouches(ctx, cfg, log)
	defer closeVouches()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	sinks, closeSinks := openSinks(ctx, cfg, log)
	defer closeSinks()

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.TranscriptQueue, cfg.TranscriptWorkers, jobStore)
	// Workers outlive the signal so Stop can drain queued transcripts.
	workerCtx := context.WithoutCancel(ctx)
	if err := jobQueue.Start(workerCtx, transcript.Counted(transcript.Handler(sinks, nil), m)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start transcript workers")
	}

	resolver := access.NewDeskResolver(deskCfg)
	l := ledger.New(kv)
	wiz := wizard.NewManager(wizard.Options{
		Timeout:        cfg.WizardTimeout,
		ConfirmTimeout: cfg.ConfirmTimeout,
	})
	go wiz.RunSweeper(ctx, cfg.SweepInterval, log)

	d := desk.New(desk.Deps{
		Wizard:        wiz,
		Tickets:       ticket.New(kv, resolver, l),
		Ledger:        l,
		Blacklist:     blacklist.New(kv),
		Resolver:      resolver,
		Provisioner:   provision.NewLocal(deskCfg),
		Transcripts:   transcript.NewDispatcher(jobQueue),
		Vouches:       vouch.NewService(vouchRepo),
		Metrics:       m,
		MiddlemanRole: deskCfg.MiddlemanRole,
	})

	server := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: api.NewRouter(api.Deps{
			Desk:     d,
			Jobs:     jobStore,
			Metrics:  m,
			Gatherer: reg,
			Log:      log,
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("store", cfg.StoreBackend).Msg("Starting exchange desk API")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}

func openStore(ctx context.Context, cfg config.Config, log zerolog.Logger) (store.Store, error) {
	if cfg.StoreBackend == config.BackendRedis {
		s, err := redisstore.New(ctx, redisstore.Options{
			Addrs:      cfg.RedisAddrs,
			Password:   cfg.RedisPassword,
			UseCluster: cfg.RedisCluster,
			Namespace:  cfg.RedisNamespace,
		})
		if err != nil {
			return nil, err
		}
		log.Info().Strs("addrs", cfg.RedisAddrs).Msg("Using Redis store")
		return s, nil
	}
	log.Warn().Msg("Using in-memory store; tickets are lost on restart")
	return storemem.NewStore(), nil
}

func openVouches(ctx context.Context, cfg config.Config, log zerolog.Logger) (vouch.Repository, func()) {
	if cfg.PostgresDSN == "" {
		log.Warn().Msg("POSTGRES_DSN not set; vouches are kept in memory")
		return vouch.NewMemoryRepository(), func() {}
	}
	pool, err := config.ConnectPostgres(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Postgres")
	}
	return vouch.NewPostgresRepository(pool), pool.Close
}

// openSinks builds the transcript sinks enabled by cfg. The local sink is
// always present.
func openSinks(ctx context.Context, cfg config.Config, log zerolog.Logger) ([]transcript.Sink, func()) {
	sinks := []transcript.Sink{transcript.LocalSink{Dir: cfg.TranscriptDir}}
	var closers []func() error

	if cfg.GCSBucket != "" {
		svc, err := gcsuploader.NewGCSStorageService(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create GCS client")
		}
		sinks = append(sinks, transcript.GCSSink{Storage: svc, Bucket: cfg.GCSBucket, Prefix: "transcripts"})
		closers = append(closers, svc.Close)
	}

	if cfg.BigQueryProject != "" {
		repo, err := infraBQ.NewBigQueryArchiveRepository(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create archive repository")
		}
		sinks = append(sinks, transcript.ArchiveSink{Repo: repo})
		closers = append(closers, repo.Close)
	}

	if cfg.NotionToken != "" && cfg.NotionDatabaseID != "" {
		sinks = append(sinks, transcript.NotionSink{
			Client:     notionsync.NewNotionClient(cfg.NotionToken),
			DatabaseID: cfg.NotionDatabaseID,
		})
	}

	names := make([]string, 0, len(sinks))
	for _, s := range sinks {
		names = append(names, s.Name())
	}
	log.Info().Strs("sinks", names).Msg("Transcript sinks configured")

	return sinks, func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Error().Err(err).Msg("Failed to close sink client")
			}
		}
	}
}
