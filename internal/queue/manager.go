// Package queue is the job queue and worker runtime: typed payload
// submission with singleton dedupe, claim/lease dispatch to per-queue
// handlers, retry bookkeeping, and retention sweeps.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/satchel/internal/common"
	"github.com/ternarybob/satchel/internal/interfaces"
	"github.com/ternarybob/satchel/internal/models"
)

// ErrJobNotCancellable is returned when cancelling a job that is active or
// already terminal. Jobs are cancellable only between attempts.
var ErrJobNotCancellable = errors.New("job is not in a cancellable state")

// EnqueueOptions are per-submission overrides of queue defaults.
type EnqueueOptions struct {
	SingletonKey string
	RetryLimit   *int
	RetryDelay   time.Duration
	RetryBackoff string
	Priority     int

	// KeepUntil pins the retention deadline for this job. Zero means the
	// configured completed/failed window is stamped on the terminal
	// transition instead.
	KeepUntil time.Time
}

// Manager owns job submission and state transitions. Handlers never touch
// job rows directly; the worker pool routes every transition through here.
type Manager struct {
	storage  interfaces.JobStorage
	logger   arbor.ILogger
	hooks    Hooks
	validate *validator.Validate

	// singletonMu serializes singleton-keyed submissions so the find/insert
	// pair cannot race into a duplicate.
	singletonMu sync.Mutex

	defaultRetryLimit int
	defaultRetryDelay time.Duration
	defaultBackoff    string
	completedWindow   time.Duration
	failedWindow      time.Duration
}

// NewManager creates a queue manager from configuration.
func NewManager(storage interfaces.JobStorage, cfg *common.Config, hooks Hooks, logger arbor.ILogger) *Manager {
	return &Manager{
		storage:           storage,
		logger:            logger,
		hooks:             hooks,
		validate:          validator.New(),
		defaultRetryLimit: cfg.Queue.RetryLimit,
		defaultRetryDelay: common.ParseDurationOr(cfg.Queue.RetryDelay, 30*time.Second),
		defaultBackoff:    cfg.Queue.RetryBackoff,
		completedWindow:   common.ParseDurationOr(cfg.Retention.CompletedWindow, 24*time.Hour),
		failedWindow:      common.ParseDurationOr(cfg.Retention.FailedWindow, 168*time.Hour),
	}
}

// Enqueue submits a job. A submission carrying a singleton key already held
// by a non-terminal job on the same queue returns that job's id instead of
// creating a duplicate.
func (m *Manager) Enqueue(ctx context.Context, queueName string, data interface{}, opts EnqueueOptions) (string, error) {
	if queueName == "" {
		return "", errors.New("queue name is required")
	}
	if err := m.validatePayload(data); err != nil {
		return "", fmt.Errorf("invalid payload for queue %s: %w", queueName, err)
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload for queue %s: %w", queueName, err)
	}

	if opts.SingletonKey != "" {
		m.singletonMu.Lock()
		defer m.singletonMu.Unlock()

		existing, err := m.storage.FindSingleton(ctx, queueName, opts.SingletonKey)
		if err == nil {
			if m.logger != nil {
				m.logger.Debug().
					Str("queue", queueName).
					Str("singleton_key", opts.SingletonKey).
					Str("job_id", existing.ID).
					Msg("Singleton job already pending, returning existing id")
			}
			return existing.ID, nil
		}
		if !errors.Is(err, interfaces.ErrNotFound) {
			return "", fmt.Errorf("singleton lookup failed: %w", err)
		}
	}

	retryLimit := m.defaultRetryLimit
	if opts.RetryLimit != nil {
		retryLimit = *opts.RetryLimit
	}
	retryDelay := opts.RetryDelay
	if retryDelay <= 0 {
		retryDelay = m.defaultRetryDelay
	}
	backoff := opts.RetryBackoff
	if backoff == "" {
		backoff = m.defaultBackoff
	}

	now := time.Now()
	job := &models.Job{
		ID:           common.NewJobID(),
		Queue:        queueName,
		Name:         queueName,
		Data:         payload,
		State:        models.JobStateCreated,
		Priority:     opts.Priority,
		RetryLimit:   retryLimit,
		RetryDelay:   retryDelay,
		RetryBackoff: backoff,
		SingletonKey: opts.SingletonKey,
		CreatedAt:    now,
		VisibleAt:    now,
		KeepUntil:    opts.KeepUntil,
	}

	if err := m.storage.SaveJob(ctx, job); err != nil {
		return "", fmt.Errorf("failed to save job: %w", err)
	}

	if m.logger != nil {
		m.logger.Info().
			Str("queue", queueName).
			Str("job_id", job.ID).
			Int("retry_limit", retryLimit).
			Msg("Job enqueued")
	}
	m.hooks.enqueued(job)
	return job.ID, nil
}

// GetJob returns a job by id.
func (m *Manager) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	return m.storage.GetJob(ctx, jobID)
}

// ExtendLease pushes an active job's visibility forward so a long-running
// handler is not reclaimed mid-attempt.
func (m *Manager) ExtendLease(ctx context.Context, jobID string, lease time.Duration) error {
	return m.storage.ExtendLease(ctx, jobID, lease)
}

// Cancel cancels a created or retry job. Active jobs cannot be interrupted
// mid-attempt and terminal jobs cannot change state.
func (m *Manager) Cancel(ctx context.Context, jobID string) error {
	job, err := m.storage.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.State != models.JobStateCreated && job.State != models.JobStateRetry {
		return fmt.Errorf("%w: job %s is %s", ErrJobNotCancellable, jobID, job.State)
	}

	job.MarkCancelled()
	if job.KeepUntil.IsZero() {
		job.KeepUntil = time.Now().Add(m.completedWindow)
	}
	if err := m.storage.SaveJob(ctx, job); err != nil {
		return fmt.Errorf("failed to save cancelled job: %w", err)
	}
	if m.logger != nil {
		m.logger.Info().Str("job_id", jobID).Msg("Job cancelled")
	}
	return nil
}

// completeJob marks a job completed and stamps its retention deadline.
func (m *Manager) completeJob(ctx context.Context, job *models.Job, output json.RawMessage) error {
	job.MarkCompleted(output)
	if job.KeepUntil.IsZero() {
		job.KeepUntil = time.Now().Add(m.completedWindow)
	}
	if err := m.storage.SaveJob(ctx, job); err != nil {
		return fmt.Errorf("failed to save completed job %s: %w", job.ID, err)
	}
	m.hooks.completed(job)
	return nil
}

// failJob records a failure, scheduling a retry when budget remains.
func (m *Manager) failJob(ctx context.Context, job *models.Job, errMsg string) error {
	delay := RetryDelay(job.RetryBackoff, job.RetryDelay, job.RetryCount+1)
	job.MarkFailed(errMsg, delay)
	if job.State == models.JobStateFailed && job.KeepUntil.IsZero() {
		job.KeepUntil = time.Now().Add(m.failedWindow)
	}

	if err := m.storage.SaveJob(ctx, job); err != nil {
		return fmt.Errorf("failed to save failed job %s: %w", job.ID, err)
	}

	if job.State == models.JobStateRetry {
		if m.logger != nil {
			m.logger.Warn().
				Str("job_id", job.ID).
				Str("queue", job.Queue).
				Int("retry_count", job.RetryCount).
				Str("delay", delay.String()).
				Msg("Job failed, retry scheduled")
		}
		m.hooks.retried(job)
	} else {
		if m.logger != nil {
			m.logger.Error().
				Str("job_id", job.ID).
				Str("queue", job.Queue).
				Str("error", errMsg).
				Msg("Job failed terminally")
		}
		m.hooks.failed(job)
	}
	return nil
}

// QueueSummary is the introspection shape exposed for health endpoints.
type QueueSummary struct {
	Queue  string                  `json:"queue"`
	Counts map[models.JobState]int `json:"counts"`
}

// Summary reports per-state job counts for each queue.
func (m *Manager) Summary(ctx context.Context, queues []string) ([]QueueSummary, error) {
	summaries := make([]QueueSummary, 0, len(queues))
	for _, q := range queues {
		counts, err := m.storage.CountByState(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("failed to count jobs for queue %s: %w", q, err)
		}
		summaries = append(summaries, QueueSummary{Queue: q, Counts: counts})
	}
	return summaries, nil
}

// validatePayload runs struct validation tags when the payload is a struct.
func (m *Manager) validatePayload(data interface{}) error {
	if data == nil {
		return errors.New("payload is required")
	}
	v := reflect.ValueOf(data)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return errors.New("payload is nil")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}
	return m.validate.Struct(v.Interface())
}
