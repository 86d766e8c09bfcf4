package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"fiscaldoc/internal/authority"
	"fiscaldoc/internal/calc"
	"fiscaldoc/internal/config"
	"fiscaldoc/internal/email/noop"
	"fiscaldoc/internal/email/ses"
	"fiscaldoc/internal/handler"
	"fiscaldoc/internal/ledger"
	memlock "fiscaldoc/internal/lock/memory"
	redislock "fiscaldoc/internal/lock/redis"
	"fiscaldoc/internal/logger"
	"fiscaldoc/internal/port"
	"fiscaldoc/internal/repository/memory"
	"fiscaldoc/internal/repository/postgres"
	redisrepo "fiscaldoc/internal/repository/redis"
	"fiscaldoc/internal/router"
	"fiscaldoc/internal/series"
	"fiscaldoc/internal/service"
	memstorage "fiscaldoc/internal/storage/memory"
	s3storage "fiscaldoc/internal/storage/s3"
)

// @title						Fiscal Document Engine API
// @version					1.0
// @description				Computation and lifecycle engine for invoices, receipts, credit notes and debit notes.
// @BasePath					/api/v1
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// stores groups the persistence collaborators chosen by configuration.
type stores struct {
	documents   port.DocumentRepository
	payments    port.PaymentRepository
	history     port.StateHistoryRepository
	submissions port.SubmissionRepository
	customers   port.CustomerLookup
	products    port.ProductLookup
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]handler.Checker{}

	var db *sqlx.DB
	if cfg.Server.Storage == "postgres" || cfg.Series.Store == "postgres" {
		db, err = postgres.NewDB(&cfg.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		checks["database"] = db.PingContext
	}

	var rdb goredis.UniversalClient
	if cfg.Series.Store == "redis" || cfg.Lock.Provider == "redis" {
		rdb, err = redisrepo.NewClient(ctx, &cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer rdb.Close()
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	st, err := newStores(cfg, db, log)
	if err != nil {
		return err
	}

	var seriesStore port.SeriesStore
	switch cfg.Series.Store {
	case "postgres":
		seriesStore = postgres.NewSeriesStore(db)
	case "redis":
		seriesStore = redisrepo.NewSeriesStore(rdb, redisrepo.KeyPrefix)
	default:
		seriesStore = memory.NewSeriesStore()
	}
	seriesSvc := service.NewSeriesService(seriesStore, log)
	if cfg.Series.Store != "postgres" {
		n, err := service.SeedSeries(ctx, seriesSvc, service.DefaultSeries)
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"store": cfg.Series.Store, "created": n}).Info("default series seeded")
	}

	var locker port.Locker
	if cfg.Lock.Provider == "redis" {
		locker = redislock.NewLocker(rdb, redislock.Config{
			Prefix:     redisrepo.KeyPrefix + "lock:",
			TTL:        cfg.Lock.TTL,
			RetryEvery: cfg.Lock.RetryEvery,
			MaxRetries: cfg.Lock.MaxRetries,
		})
	} else {
		locker = memlock.NewLocker()
	}

	artifacts, err := newArtifactStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	notifier, err := newNotifier(ctx, cfg, log)
	if err != nil {
		return err
	}

	allocator := series.NewAllocator(seriesStore, series.Config{
		MaxAttempts: cfg.Engine.AllocationAttempts,
		Backoff:     cfg.Engine.AllocationBackoff,
	}, log)

	docSvc := service.NewDocumentService(service.DocumentServiceDeps{
		Documents:      st.documents,
		Series:         seriesStore,
		Allocator:      allocator,
		HistoryRepo:    st.history,
		SubmissionRepo: st.submissions,
		Customers:      st.customers,
		Products:       st.products,
		Authority:      authority.NewClient(&cfg.Authority, cfg.Engine.IssuerRUC, log),
		Locker:         locker,
		Artifacts:      artifacts,
		Notifier:       notifier,
		VoidPolicy:     service.NewWindowVoidPolicy(cfg.Engine.VoidWindowDays),
		Calculator:     calc.NewCalculator(cfg.Engine.TaxRate, cfg.Engine.HomeCurrency),
		Logger:         log,
	}, service.DocumentServiceConfig{
		HomeCurrency: cfg.Engine.HomeCurrency,
		IssuerRUC:    cfg.Engine.IssuerRUC,
	})
	paymentSvc := service.NewPaymentService(st.documents, st.payments, locker,
		ledger.New(cfg.Engine.OverpaymentTolerance), cfg.Engine.HomeCurrency, log)

	var background sync.WaitGroup

	if cfg.Worker.Enabled {
		worker := service.NewSubmissionWorker(st.documents, docSvc, service.SubmissionWorkerConfig{
			PollInterval:   time.Duration(cfg.Worker.PollIntervalSecs) * time.Second,
			BatchSize:      cfg.Worker.BatchSize,
			Concurrency:    cfg.Worker.Concurrency,
			SubmitTimeout:  time.Duration(cfg.Authority.TimeoutSecs*(cfg.Authority.MaxRetries+1)) * time.Second,
			RefusalBackoff: time.Duration(cfg.Worker.RefusalBackoffSecs) * time.Second,
		}, log)
		background.Add(1)
		go func() {
			defer background.Done()
			worker.Start(ctx)
		}()
	}

	if cfg.PubSub.Enabled {
		psClient, err := authority.NewPubSubClient(ctx, &cfg.PubSub)
		if err != nil {
			return err
		}
		defer psClient.Close()
		sub := authority.NewSubscriber(psClient, &cfg.PubSub, docSvc, log)
		background.Add(1)
		go func() {
			defer background.Done()
			if err := sub.Run(ctx); err != nil {
				log.WithError(err).Error("resolution subscriber stopped")
			}
		}()
	}

	r := router.Setup(log, cfg.CORS.AllowedOrigins, router.Handlers{
		Health:      handler.NewHealthHandler(checks),
		Document:    handler.NewDocumentHandler(docSvc),
		Calculation: handler.NewCalculationHandler(docSvc),
		Payment:     handler.NewPaymentHandler(paymentSvc),
		Resolution:  handler.NewResolutionHandler(docSvc),
		Series:      handler.NewSeriesHandler(seriesSvc),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	serverErr := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"addr":    cfg.Server.Port,
			"storage": cfg.Server.Storage,
			"series":  cfg.Series.Store,
			"lock":    cfg.Lock.Provider,
		}).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		stop()
		background.Wait()
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	background.Wait()
	log.Info("server stopped")
	return nil
}

func newStores(cfg *config.Config, db *sqlx.DB, log logrus.FieldLogger) (stores, error) {
	if cfg.Server.Storage == "postgres" {
		dir := postgres.NewDirectory(db)
		return stores{
			documents:   postgres.NewDocumentRepo(db),
			payments:    postgres.NewPaymentRepo(db),
			history:     postgres.NewStateHistoryRepo(db),
			submissions: postgres.NewSubmissionRepo(db),
			customers:   dir,
			products:    dir,
		}, nil
	}
	dir := memory.NewDirectory()
	if cfg.Server.Fixtures != "" {
		f, err := os.Open(cfg.Server.Fixtures)
		if err != nil {
			return stores{}, fmt.Errorf("opening fixtures: %w", err)
		}
		defer f.Close()
		customers, products, err := dir.LoadYAML(f)
		if err != nil {
			return stores{}, err
		}
		log.WithFields(logrus.Fields{"customers": customers, "products": products}).Info("fixtures loaded")
	}
	return stores{
		documents:   memory.NewDocumentRepo(),
		payments:    memory.NewPaymentRepo(),
		history:     memory.NewStateHistoryRepo(),
		submissions: memory.NewSubmissionRepo(),
		customers:   dir,
		products:    dir,
	}, nil
}

func newArtifactStore(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (port.ArtifactStore, error) {
	if cfg.Server.Storage != "postgres" || cfg.S3.Bucket == "" {
		log.Info("artifacts kept in memory")
		return memstorage.NewArtifactStore(), nil
	}
	store, err := s3storage.NewArtifactStore(ctx, &cfg.S3)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 artifact store: %w", err)
	}
	return store, nil
}

func newNotifier(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (port.Notifier, error) {
	if cfg.Email.Provider != "ses" {
		return noop.NewNoopNotifier(log), nil
	}
	n, err := ses.NewSESNotifier(ctx, &cfg.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SES notifier: %w", err)
	}
	return n, nil
}
