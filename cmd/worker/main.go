package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/lagerhof/lagerhof/internal/app"
	"github.com/lagerhof/lagerhof/internal/identity"
	"github.com/lagerhof/lagerhof/internal/observability"
	"github.com/lagerhof/lagerhof/internal/platform/cache"
	"github.com/lagerhof/lagerhof/internal/platform/db"
	"github.com/lagerhof/lagerhof/internal/platform/rowstore"
	"github.com/lagerhof/lagerhof/internal/rentals"
	"github.com/lagerhof/lagerhof/internal/settings"
	"github.com/lagerhof/lagerhof/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	metrics := observability.NewMetrics()
	store := rowstore.New(pool)

	customerRepo := identity.NewRepository(pool)
	fetcher := rentals.NewFetcher(store, logger)
	identityService := identity.NewService(customerRepo, fetcher, logger)
	settingsService := settings.NewService(store, redisClient, cfg.SettingsCacheTTL, logger)

	syncTask, err := jobs.NewCustomerSyncTask()
	if err != nil {
		logger.Error("build sync task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskCustomerSync, Handler: jobs.CustomerSyncHandler(identityService, metrics, logger)},
			{Type: jobs.TaskSettingsWarmup, Handler: jobs.SettingsWarmupHandler(settingsService, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.SyncSchedule, Task: syncTask},
			{Spec: "@every 30m", Task: jobs.NewSettingsWarmupTask()},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker", slog.String("sync_schedule", cfg.SyncSchedule))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
