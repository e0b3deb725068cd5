package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	httpadapter "leadscout/internal/adapters/http"
	pg "leadscout/internal/adapters/postgres"
	redisadapter "leadscout/internal/adapters/redis"
	"leadscout/internal/app"
	"leadscout/internal/config"
	"leadscout/internal/logging"
	"leadscout/internal/metrics"
	"leadscout/internal/ports"
	runsvc "leadscout/internal/services/runs"
	"leadscout/internal/workers/discoveryrunner"
)

func main() {
	cfg, err := config.Load()
	if err != nil && !errors.Is(err, config.ErrDatabaseURLMissing) {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	if cfg.Database.URL == "" {
		logger.Fatal("DATABASE_URL is required for the server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := pg.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	var _ ports.RunRepository = db
	var _ ports.JobRepository = db

	var cache ports.ProbeCache
	if cfg.Redis.URL != "" {
		pc, err := redisadapter.Open(ctx, cfg.Redis.URL, cfg.Redis.TTL)
		if err != nil {
			logger.Warn("probe cache disabled", zap.Error(err))
		} else {
			defer pc.Close()
			cache = pc
		}
	}

	m := metrics.New()
	factory := app.NewFactory(cfg, cache, m, logger)
	processor := discoveryrunner.PipelineProcessor{Repo: db, Discoverer: factory}
	srv := httpadapter.New(httpadapter.Config{WaitTimeout: cfg.Server.WaitTimeout},
		runsvc.New(db), db, processor, factory, m, logger)

	workersDone := discoveryrunner.Run(ctx, db, processor, cfg.Discovery.RunWorkers, cfg.Discovery.PollInterval, logger)
	if cfg.Discovery.RunWorkers > 0 {
		logger.Info("discovery workers started", zap.Int("workers", cfg.Discovery.RunWorkers))
	}

	httpSrv := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      srv.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()
	logger.Info("listening", zap.String("addr", cfg.Server.ListenAddr))

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	select {
	case <-workersDone:
	case <-shutdownCtx.Done():
		logger.Warn("workers still running at shutdown deadline")
	}
}
