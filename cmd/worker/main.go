package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/lead-verifier/internal/api"
	"github.com/ignite/lead-verifier/internal/cache"
	"github.com/ignite/lead-verifier/internal/config"
	"github.com/ignite/lead-verifier/internal/metrics"
	"github.com/ignite/lead-verifier/internal/pkg/distlock"
	"github.com/ignite/lead-verifier/internal/pkg/logger"
	"github.com/ignite/lead-verifier/internal/provider"
	"github.com/ignite/lead-verifier/internal/repository/postgres"
	"github.com/ignite/lead-verifier/internal/service/verification"
	"github.com/ignite/lead-verifier/internal/storage"
	"github.com/ignite/lead-verifier/internal/worker"
)

func main() {
	cfg, err := config.LoadFromEnv(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedactPII(cfg.Logging.ShouldRedact())
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger.Info("starting lead verification worker")

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime())
	db.SetConnMaxIdleTime(time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.PingContext(ctx); err != nil {
		cancel()
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	cancel()
	logger.Info("connected to database")

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
		logger.Info("redis configured, result cache enabled")
	}

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	statusClient := provider.NewStatusClient(cfg.Provider.StatusURL, cfg.Provider.Secret, cfg.Provider.Timeout())
	var downloader provider.Downloader = provider.NewHTTPDownloader(cfg.Provider.Timeout(), cfg.Provider.DownloadRetries)

	opts := verification.Options{
		BatchLimit: cfg.Worker.BatchLimit,
		ChunkSize:  cfg.Worker.UpdateChunkSize,
		Metrics:    m,
		Logger:     logger.Default(),
	}
	if redisClient != nil {
		resultCache := cache.NewResultCache(redisClient, downloader, cfg.Redis.CacheTTL())
		downloader = resultCache
		opts.Forgetter = resultCache
	}
	if cfg.Archive.Enabled() {
		archive, err := storage.NewS3ResultArchive(rootCtx, cfg.Archive.S3Bucket, cfg.Archive.S3Prefix,
			cfg.Archive.AWSRegion, cfg.Archive.GetAWSProfile())
		if err != nil {
			logger.Error("failed to init result archive", "error", err)
			os.Exit(1)
		}
		opts.Archive = archive
		logger.Info("result archive enabled", "bucket", cfg.Archive.S3Bucket)
	}
	if cfg.Lock.Enabled {
		opts.Lock = distlock.NewLock(redisClient, db, cfg.Lock.Key, cfg.Lock.TTL())
		logger.Info("tick lock enabled", "key", cfg.Lock.Key)
	}

	driver := verification.NewDriver(
		postgres.NewBatchRepo(db),
		postgres.NewLeadRepo(db),
		statusClient,
		provider.NewResultFetcher(downloader),
		opts,
	)

	deps := api.Deps{
		Ticker:         driver,
		DB:             db,
		Redis:          redisClient,
		Gatherer:       reg,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RunTimeout:     worker.DefaultTickTimeout,
	}

	var ticker *worker.ReconcileWorker
	if interval := cfg.Worker.Interval(); interval > 0 {
		ticker = worker.NewReconcileWorker(driver, interval).WithInitialDelay(5 * time.Second)
		ticker.Start(rootCtx)
		deps.Worker = ticker
		logger.Info("reconcile ticker started", "interval", interval.String())
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
		// POST /run is synchronous and may take as long as a tick.
		WriteTimeout: worker.DefaultTickTimeout + time.Minute,
	}

	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-rootCtx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	if ticker != nil {
		ticker.Stop()
	}
	stop()
	logger.Info("worker stopped")
}
