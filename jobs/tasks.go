// Package jobs runs the background work that keeps the canonical customer
// store current. The identity engine itself never schedules anything;
// periodic invocation lives here.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/lagerhof/lagerhof/internal/identity"
	"github.com/lagerhof/lagerhof/internal/observability"
	"github.com/lagerhof/lagerhof/internal/settings"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCustomerSync merges the rental sources into the customer table.
	TaskCustomerSync = "customer:sync"
	// TaskSettingsWarmup primes the company settings cache.
	TaskSettingsWarmup = "settings:warmup"
)

// CustomerSyncPayload correlates a queued sync with its log lines.
type CustomerSyncPayload struct {
	RunID string `json:"run_id"`
}

// NewCustomerSyncTask constructs a customer sync task with a fresh run id.
func NewCustomerSyncTask() (*asynq.Task, error) {
	data, err := json.Marshal(CustomerSyncPayload{RunID: uuid.NewString()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCustomerSync, data), nil
}

// NewSettingsWarmupTask constructs a settings warmup task.
func NewSettingsWarmupTask() *asynq.Task {
	return asynq.NewTask(TaskSettingsWarmup, nil)
}

// CustomerSyncHandler returns the asynq handler for TaskCustomerSync.
func CustomerSyncHandler(svc *identity.Service, metrics *observability.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload CustomerSyncPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		res, err := svc.Sync(ctx)
		if err != nil {
			logger.Error("scheduled customer sync failed",
				slog.String("run_id", payload.RunID),
				slog.Any("error", err))
			return err
		}
		metrics.ObserveSync(res.Inserted, res.Updated)
		logger.Info("scheduled customer sync done",
			slog.String("run_id", payload.RunID),
			slog.Int("inserted", res.Inserted),
			slog.Int("updated", res.Updated))
		return nil
	}
}

// SettingsWarmupHandler returns the asynq handler for TaskSettingsWarmup.
func SettingsWarmupHandler(svc *settings.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		if err := svc.Invalidate(ctx); err != nil {
			return err
		}
		if _, err := svc.All(ctx); err != nil {
			logger.Warn("settings warmup failed", slog.Any("error", err))
			return err
		}
		return nil
	}
}
