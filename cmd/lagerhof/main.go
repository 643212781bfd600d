package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/lagerhof/lagerhof/internal/app"
	"github.com/lagerhof/lagerhof/internal/billing"
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
		slog.Default().Info("test mode detected, skipping runtime startup")
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
		// Settings fall back to uncached reads without Redis.
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
	identityHandler := identity.NewHandler(logger, identityService, metrics)

	settingsService := settings.NewService(store, redisClient, cfg.SettingsCacheTTL, logger)
	selector := billing.NewSelector(store, logger, metrics)
	builder := billing.NewBuilder(selector, settingsService)
	billingHandler := billing.NewHandler(logger, identityService, builder, metrics)

	queue := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Warn("queue close", slog.Any("error", err))
		}
	}()
	// Seed the queue so a fresh instance syncs without waiting for cron.
	if _, err := queue.EnqueueCustomerSync(ctx); err != nil {
		logger.Warn("enqueue initial sync", slog.Any("error", err))
	}

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		IdentityHandler: identityHandler,
		BillingHandler:  billingHandler,
		Pool:            pool,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
