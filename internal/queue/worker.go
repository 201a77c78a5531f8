package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/satchel/internal/common"
	"github.com/ternarybob/satchel/internal/interfaces"
	"github.com/ternarybob/satchel/internal/models"
)

// Handler processes a claimed batch (size >= 1) and must handle every job in
// it. Returning an error fails the whole batch; the runtime then evaluates
// retry eligibility per job.
type Handler func(ctx context.Context, jobs []*models.Job) error

// WorkerPool runs concurrent consumers per registered queue. Each consumer
// processes one claimed batch to completion before polling again; the
// claim/lease in storage is what keeps two consumers off the same job.
type WorkerPool struct {
	manager  *Manager
	storage  interfaces.JobStorage
	handlers map[string]Handler
	logger   arbor.ILogger

	pollInterval time.Duration
	concurrency  int
	batchSize    int
	lease        time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// NewWorkerPool creates a worker pool over a queue manager.
func NewWorkerPool(manager *Manager, storage interfaces.JobStorage, cfg *common.Config, logger arbor.ILogger) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	concurrency := cfg.Queue.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	batchSize := cfg.Queue.BatchSize
	if batchSize < 1 {
		batchSize = 1
	}

	return &WorkerPool{
		manager:      manager,
		storage:      storage,
		handlers:     make(map[string]Handler),
		logger:       logger,
		pollInterval: common.ParseDurationOr(cfg.Queue.PollInterval, time.Second),
		concurrency:  concurrency,
		batchSize:    batchSize,
		lease:        common.ParseDurationOr(cfg.Queue.VisibilityTimeout, 5*time.Minute),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// RegisterHandler binds a handler to a queue. Must be called before Start.
func (wp *WorkerPool) RegisterHandler(queueName string, handler Handler) {
	wp.handlers[queueName] = handler
	if wp.logger != nil {
		wp.logger.Debug().Str("queue", queueName).Msg("Queue handler registered")
	}
}

// Start launches the consumer goroutines.
func (wp *WorkerPool) Start() error {
	if len(wp.handlers) == 0 {
		return errors.New("no queue handlers registered")
	}

	if wp.logger != nil {
		wp.logger.Info().
			Int("queues", len(wp.handlers)).
			Int("concurrency", wp.concurrency).
			Str("poll_interval", wp.pollInterval.String()).
			Msg("Starting worker pool")
	}

	for queueName := range wp.handlers {
		for i := 0; i < wp.concurrency; i++ {
			go wp.consumer(queueName, i)
		}
	}
	return nil
}

// Stop signals all consumers to exit after their current batch.
func (wp *WorkerPool) Stop() {
	if wp.logger != nil {
		wp.logger.Info().Msg("Stopping worker pool")
	}
	wp.cancel()
}

// consumer is the poll loop for one worker slot on one queue.
func (wp *WorkerPool) consumer(queueName string, workerID int) {
	// Stagger starts to spread claim contention across the poll interval.
	stagger := (wp.pollInterval / time.Duration(wp.concurrency)) * time.Duration(workerID)
	if stagger > 0 {
		select {
		case <-wp.ctx.Done():
			return
		case <-time.After(stagger):
		}
	}

	ticker := time.NewTicker(wp.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-wp.ctx.Done():
			if wp.logger != nil {
				wp.logger.Debug().
					Str("queue", queueName).
					Int("worker_id", workerID).
					Msg("Consumer stopped")
			}
			return
		case <-ticker.C:
			// Drain everything claimable before sleeping again.
			for {
				processed, err := wp.processBatch(queueName)
				if err != nil && wp.logger != nil {
					wp.logger.Warn().
						Err(err).
						Str("queue", queueName).
						Int("worker_id", workerID).
						Msg("Batch processing error")
				}
				if !processed {
					wp.manager.hooks.drained(queueName)
					break
				}
				if wp.ctx.Err() != nil {
					return
				}
			}
		}
	}
}

// processBatch claims and runs one batch. Returns false when the queue had
// nothing claimable.
func (wp *WorkerPool) processBatch(queueName string) (bool, error) {
	jobs, err := wp.storage.ClaimNext(wp.ctx, queueName, wp.batchSize, wp.lease)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("claim failed: %w", err)
	}
	if len(jobs) == 0 {
		return false, nil
	}

	for _, job := range jobs {
		wp.manager.hooks.claimed(job)
	}

	handler := wp.handlers[queueName]
	handlerErr := wp.runHandler(handler, jobs)

	for _, job := range jobs {
		// A handler may have completed or failed individual jobs through the
		// manager already; only jobs still active at the batch boundary get
		// the batch outcome applied.
		current, err := wp.storage.GetJob(wp.ctx, job.ID)
		if err != nil {
			if wp.logger != nil {
				wp.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to reload job after batch")
			}
			continue
		}
		if current.State != models.JobStateActive {
			continue
		}

		if handlerErr != nil {
			if err := wp.manager.failJob(wp.ctx, current, handlerErr.Error()); err != nil && wp.logger != nil {
				wp.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to record job failure")
			}
			continue
		}
		if err := wp.manager.completeJob(wp.ctx, current, nil); err != nil && wp.logger != nil {
			wp.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to record job completion")
		}
	}

	return true, nil
}

// runHandler invokes the handler with panic recovery; a panic fails the
// batch like a returned error.
func (wp *WorkerPool) runHandler(handler Handler, jobs []*models.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v\n%s", r, common.GetStackTrace())
			if wp.logger != nil {
				wp.logger.Error().Str("panic", fmt.Sprint(r)).Msg("Queue handler panicked")
			}
		}
	}()
	return handler(wp.ctx, jobs)
}
