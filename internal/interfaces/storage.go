package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/satchel/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// JobStorage persists queue jobs and powers the claim/lease mechanism.
type JobStorage interface {
	SaveJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, jobID string) (*models.Job, error)

	// FindSingleton returns the non-terminal (created|retry|active) job on
	// the given queue carrying the singleton key, or ErrNotFound.
	FindSingleton(ctx context.Context, queue, singletonKey string) (*models.Job, error)

	// ClaimNext atomically claims the next visible created|retry jobs on the
	// queue: marks them active and pushes VisibleAt forward by lease. Returns
	// up to limit jobs; ErrNotFound when nothing is claimable.
	ClaimNext(ctx context.Context, queue string, limit int, lease time.Duration) ([]*models.Job, error)

	// ExtendLease pushes an active job's visibility forward for long handlers.
	ExtendLease(ctx context.Context, jobID string, lease time.Duration) error

	ListJobs(ctx context.Context, queue string, state models.JobState, limit int) ([]*models.Job, error)
	CountByState(ctx context.Context, queue string) (map[models.JobState]int, error)

	// SweepTerminal deletes terminal jobs whose KeepUntil has passed.
	// Returns the number of jobs removed.
	SweepTerminal(ctx context.Context, now time.Time) (int, error)
}

// EpisodeStorage persists episodes owned by bookmarks.
type EpisodeStorage interface {
	SaveEpisode(ctx context.Context, episode *models.Episode) error
	GetEpisode(ctx context.Context, id string) (*models.Episode, error)
	ListEpisodesByUser(ctx context.Context, userID string, limit int) ([]*models.Episode, error)
}

// ArchiveStorage persists archives owned by bookmarks.
type ArchiveStorage interface {
	SaveArchive(ctx context.Context, archive *models.Archive) error
	GetArchive(ctx context.Context, id string) (*models.Archive, error)
	ListArchivesByUser(ctx context.Context, userID string, limit int) ([]*models.Archive, error)
}

// WebhookStorage records processed webhook deliveries for idempotency.
type WebhookStorage interface {
	// RecordEvent inserts the event if its id is unseen. Returns true when
	// the event was new; a duplicate delivery returns false with no error.
	RecordEvent(ctx context.Context, event *models.WebhookEvent) (bool, error)
	GetEvent(ctx context.Context, eventID string) (*models.WebhookEvent, error)
}

// TokenStorage persists auth tokens and supports expiry sweeps.
type TokenStorage interface {
	SaveToken(ctx context.Context, token *models.AuthToken) error
	GetToken(ctx context.Context, id string) (*models.AuthToken, error)
	// DeleteExpired removes tokens whose ExpiresAt precedes now, returning
	// the number deleted.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// StorageManager aggregates all typed stores over one database.
type StorageManager interface {
	JobStorage() JobStorage
	EpisodeStorage() EpisodeStorage
	ArchiveStorage() ArchiveStorage
	WebhookStorage() WebhookStorage
	TokenStorage() TokenStorage
	CacheStorage() CacheStorage
	Close() error
}
