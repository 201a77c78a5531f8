package badger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/satchel/internal/interfaces"
	"github.com/ternarybob/satchel/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// JobStorage implements the JobStorage interface for Badger.
//
// The at-most-one-active-per-job guarantee is enforced here with a
// claim/lease marker (Job.VisibleAt) plus an in-process claim mutex: the
// mutex serializes competing claims from this process's worker pool, and the
// lease keeps a crashed worker's job invisible until the lease expires, after
// which it becomes claimable again (at-least-once delivery).
type JobStorage struct {
	db      *BadgerDB
	logger  arbor.ILogger
	claimMu sync.Mutex
}

// NewJobStorage creates a new JobStorage instance
func NewJobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.JobStorage {
	return &JobStorage{
		db:     db,
		logger: logger,
	}
}

func (s *JobStorage) SaveJob(ctx context.Context, job *models.Job) error {
	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	if err := s.db.Store().Upsert(job.ID, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

func (s *JobStorage) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	if err := s.db.Store().Get(jobID, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

func (s *JobStorage) FindSingleton(ctx context.Context, queue, singletonKey string) (*models.Job, error) {
	var jobs []models.Job
	query := badgerhold.Where("Queue").Eq(queue).
		And("SingletonKey").Eq(singletonKey).
		And("State").In(models.JobStateCreated, models.JobStateRetry, models.JobStateActive)
	if err := s.db.Store().Find(&jobs, query.Limit(1)); err != nil {
		return nil, fmt.Errorf("failed to query singleton jobs: %w", err)
	}
	if len(jobs) == 0 {
		return nil, interfaces.ErrNotFound
	}
	return &jobs[0], nil
}

func (s *JobStorage) ClaimNext(ctx context.Context, queue string, limit int, lease time.Duration) ([]*models.Job, error) {
	if limit < 1 {
		limit = 1
	}

	s.claimMu.Lock()
	defer s.claimMu.Unlock()

	now := time.Now()
	var candidates []models.Job
	query := badgerhold.Where("Queue").Eq(queue).
		And("State").In(models.JobStateCreated, models.JobStateRetry).
		And("VisibleAt").Le(now).
		SortBy("CreatedAt").
		Limit(limit)
	if err := s.db.Store().Find(&candidates, query); err != nil {
		return nil, fmt.Errorf("failed to query claimable jobs: %w", err)
	}
	if len(candidates) == 0 {
		return nil, interfaces.ErrNotFound
	}

	claimed := make([]*models.Job, 0, len(candidates))
	for i := range candidates {
		job := candidates[i]
		job.MarkActive(lease)
		if err := s.db.Store().Upsert(job.ID, &job); err != nil {
			return nil, fmt.Errorf("failed to claim job %s: %w", job.ID, err)
		}
		claimed = append(claimed, &job)
	}
	return claimed, nil
}

func (s *JobStorage) ExtendLease(ctx context.Context, jobID string, lease time.Duration) error {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.State != models.JobStateActive {
		return fmt.Errorf("job %s is not active (state %s)", jobID, job.State)
	}
	job.VisibleAt = time.Now().Add(lease)
	return s.SaveJob(ctx, job)
}

func (s *JobStorage) ListJobs(ctx context.Context, queue string, state models.JobState, limit int) ([]*models.Job, error) {
	query := badgerhold.Where("Queue").Eq(queue)
	if state != "" {
		query = query.And("State").Eq(state)
	}
	query = query.SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var jobs []models.Job
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	result := make([]*models.Job, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

func (s *JobStorage) CountByState(ctx context.Context, queue string) (map[models.JobState]int, error) {
	var jobs []models.Job
	if err := s.db.Store().Find(&jobs, badgerhold.Where("Queue").Eq(queue)); err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}

	counts := make(map[models.JobState]int)
	for _, job := range jobs {
		counts[job.State]++
	}
	return counts, nil
}

func (s *JobStorage) SweepTerminal(ctx context.Context, now time.Time) (int, error) {
	var jobs []models.Job
	query := badgerhold.Where("State").In(models.JobStateCompleted, models.JobStateCancelled, models.JobStateFailed).
		And("KeepUntil").Le(now)
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return 0, fmt.Errorf("failed to query sweepable jobs: %w", err)
	}

	deleted := 0
	for _, job := range jobs {
		if err := s.db.Store().Delete(job.ID, &models.Job{}); err != nil {
			s.logger.Warn().Str("job_id", job.ID).Err(err).Msg("Failed to delete job during retention sweep")
			continue
		}
		deleted++
	}
	return deleted, nil
}
