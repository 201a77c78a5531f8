package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/satchel/internal/common"
	"github.com/ternarybob/satchel/internal/interfaces"
	"github.com/ternarybob/satchel/internal/models"
)

// Retention runs the periodic maintenance schedules: sweeping terminal jobs
// past their KeepUntil and enqueueing the auth token cleanup job. Deletion
// happens only here, never inline in the hot path.
type Retention struct {
	manager *Manager
	storage interfaces.JobStorage
	logger  arbor.ILogger
	cron    *cron.Cron

	sweepSchedule        string
	tokenCleanupSchedule string
}

// NewRetention creates the retention scheduler.
func NewRetention(manager *Manager, storage interfaces.JobStorage, cfg *common.Config, logger arbor.ILogger) *Retention {
	return &Retention{
		manager:              manager,
		storage:              storage,
		logger:               logger,
		cron:                 cron.New(),
		sweepSchedule:        cfg.Retention.SweepSchedule,
		tokenCleanupSchedule: cfg.Retention.TokenCleanupSchedule,
	}
}

// Start registers the schedules and starts the cron runner.
func (r *Retention) Start() error {
	if _, err := r.cron.AddFunc(r.sweepSchedule, r.sweepOnce); err != nil {
		return fmt.Errorf("invalid retention sweep schedule %q: %w", r.sweepSchedule, err)
	}
	if r.tokenCleanupSchedule != "" {
		if _, err := r.cron.AddFunc(r.tokenCleanupSchedule, r.enqueueTokenCleanup); err != nil {
			return fmt.Errorf("invalid token cleanup schedule %q: %w", r.tokenCleanupSchedule, err)
		}
	}

	r.cron.Start()
	if r.logger != nil {
		r.logger.Info().
			Str("sweep_schedule", r.sweepSchedule).
			Str("token_cleanup_schedule", r.tokenCleanupSchedule).
			Msg("Retention scheduler started")
	}
	return nil
}

// Stop stops the cron runner, waiting for a running sweep to finish.
func (r *Retention) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

// SweepNow removes terminal jobs past their retention window immediately.
func (r *Retention) SweepNow(ctx context.Context) (int, error) {
	return r.storage.SweepTerminal(ctx, time.Now())
}

func (r *Retention) sweepOnce() {
	removed, err := r.storage.SweepTerminal(context.Background(), time.Now())
	if err != nil {
		if r.logger != nil {
			r.logger.Error().Err(err).Msg("Retention sweep failed")
		}
		return
	}
	if removed > 0 && r.logger != nil {
		r.logger.Info().Int("removed", removed).Msg("Retention sweep removed terminal jobs")
	}
}

// enqueueTokenCleanup submits the cleanup job. The singleton key collapses
// overlapping schedules onto one pending job.
func (r *Retention) enqueueTokenCleanup() {
	_, err := r.manager.Enqueue(context.Background(), models.QueueCleanupAuthTokens, struct{}{}, EnqueueOptions{
		SingletonKey: models.QueueCleanupAuthTokens,
	})
	if err != nil && r.logger != nil {
		r.logger.Error().Err(err).Msg("Failed to enqueue token cleanup job")
	}
}
