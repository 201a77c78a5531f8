package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/satchel/internal/interfaces"
	"github.com/ternarybob/satchel/internal/models"
)

// memoryJobStorage is an in-memory JobStorage implementing the same
// claim/lease semantics as the badger store.
type memoryJobStorage struct {
	mu   sync.Mutex
	jobs map[string]*models.Job
}

func newMemoryJobStorage() *memoryJobStorage {
	return &memoryJobStorage{jobs: make(map[string]*models.Job)}
}

func (s *memoryJobStorage) SaveJob(ctx context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *job
	s.jobs[job.ID] = &copied
	return nil
}

func (s *memoryJobStorage) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (s *memoryJobStorage) FindSingleton(ctx context.Context, queue, singletonKey string) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range s.jobs {
		if job.Queue == queue && job.SingletonKey == singletonKey && !job.IsTerminal() {
			copied := *job
			return &copied, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (s *memoryJobStorage) ClaimNext(ctx context.Context, queue string, limit int, lease time.Duration) ([]*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var claimable []*models.Job
	for _, job := range s.jobs {
		if job.Queue != queue {
			continue
		}
		if job.State != models.JobStateCreated && job.State != models.JobStateRetry {
			continue
		}
		if job.VisibleAt.After(now) {
			continue
		}
		claimable = append(claimable, job)
	}
	if len(claimable) == 0 {
		return nil, interfaces.ErrNotFound
	}

	sort.Slice(claimable, func(i, j int) bool {
		return claimable[i].CreatedAt.Before(claimable[j].CreatedAt)
	})
	if len(claimable) > limit {
		claimable = claimable[:limit]
	}

	claimed := make([]*models.Job, 0, len(claimable))
	for _, job := range claimable {
		job.MarkActive(lease)
		copied := *job
		claimed = append(claimed, &copied)
	}
	return claimed, nil
}

func (s *memoryJobStorage) ExtendLease(ctx context.Context, jobID string, lease time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return interfaces.ErrNotFound
	}
	job.VisibleAt = time.Now().Add(lease)
	return nil
}

func (s *memoryJobStorage) ListJobs(ctx context.Context, queue string, state models.JobState, limit int) ([]*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Job
	for _, job := range s.jobs {
		if job.Queue == queue && job.State == state {
			copied := *job
			out = append(out, &copied)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *memoryJobStorage) CountByState(ctx context.Context, queue string) (map[models.JobState]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[models.JobState]int)
	for _, job := range s.jobs {
		if job.Queue == queue {
			counts[job.State]++
		}
	}
	return counts, nil
}

func (s *memoryJobStorage) SweepTerminal(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, job := range s.jobs {
		if job.IsTerminal() && !job.KeepUntil.IsZero() && !job.KeepUntil.After(now) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed, nil
}
