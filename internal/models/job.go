// -----------------------------------------------------------------------
// Queue Job - persistent job record with retry bookkeeping
// -----------------------------------------------------------------------

package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// JobState represents the lifecycle state of a queued job.
type JobState string

const (
	JobStateCreated   JobState = "created"
	JobStateRetry     JobState = "retry"
	JobStateActive    JobState = "active"
	JobStateCompleted JobState = "completed"
	JobStateCancelled JobState = "cancelled"
	JobStateFailed    JobState = "failed"
)

// Queue names consumed by the worker runtime.
const (
	QueueResolveBookmark   = "resolveBookmark"
	QueueResolveEpisode    = "resolveEpisode"
	QueueResolveArchive    = "resolveArchive"
	QueueSyncSubscription  = "syncSubscription"
	QueueCleanupAuthTokens = "cleanupAuthTokens"
)

// Job is the persistent unit of asynchronous work.
//
// Lifecycle: created on enqueue; created -> active -> {completed|failed};
// failed -> retry -> active up to RetryLimit. Terminal rows are retained for
// a bounded window (longer for failed jobs) and removed by the retention
// sweep, never inline.
type Job struct {
	ID           string          `json:"id" badgerhold:"key"`
	Queue        string          `json:"queue" badgerholdIndex:"Queue"`
	Name         string          `json:"name"`
	Data         json.RawMessage `json:"data"`
	State        JobState        `json:"state" badgerholdIndex:"State"`
	Priority     int             `json:"priority"`
	RetryCount   int             `json:"retry_count"`
	RetryLimit   int             `json:"retry_limit"`
	RetryDelay   time.Duration   `json:"retry_delay"`
	RetryBackoff string          `json:"retry_backoff"` // "fixed" or "exponential"
	SingletonKey string          `json:"singleton_key,omitempty" badgerholdIndex:"SingletonKey"`
	CreatedAt    time.Time       `json:"created_at"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	KeepUntil    time.Time       `json:"keep_until"`
	Output       json.RawMessage `json:"output,omitempty"`

	// VisibleAt is the claim lease marker: a job is claimable only when
	// VisibleAt <= now and State is created or retry. A claimed (active) job
	// stays invisible until its lease expires, which is what keeps two
	// workers from holding the same job at once.
	VisibleAt time.Time `json:"visible_at"`
}

// IsTerminal returns true when the job has reached a final state.
func (j *Job) IsTerminal() bool {
	switch j.State {
	case JobStateCompleted, JobStateCancelled, JobStateFailed:
		return true
	}
	return false
}

// MarkActive transitions the job to active and stamps StartedAt.
func (j *Job) MarkActive(lease time.Duration) {
	now := time.Now()
	j.State = JobStateActive
	j.StartedAt = &now
	j.VisibleAt = now.Add(lease)
}

// MarkCompleted transitions the job to completed with an optional output payload.
func (j *Job) MarkCompleted(output json.RawMessage) {
	now := time.Now()
	j.State = JobStateCompleted
	j.CompletedAt = &now
	j.Output = output
}

// MarkFailed records the failure. If retry budget remains the job moves to
// retry and becomes visible again after the backoff delay; otherwise it is
// terminal failed with the error preserved verbatim in Output.
func (j *Job) MarkFailed(errMsg string, backoff time.Duration) {
	now := time.Now()
	out, _ := json.Marshal(map[string]string{"error": errMsg})
	j.Output = out

	if j.RetryCount < j.RetryLimit {
		j.RetryCount++
		j.State = JobStateRetry
		j.VisibleAt = now.Add(backoff)
		return
	}

	j.State = JobStateFailed
	j.CompletedAt = &now
}

// MarkCancelled transitions the job to cancelled.
func (j *Job) MarkCancelled() {
	now := time.Now()
	j.State = JobStateCancelled
	j.CompletedAt = &now
}

// DecodeData unmarshals the job payload into dst.
func (j *Job) DecodeData(dst interface{}) error {
	if err := json.Unmarshal(j.Data, dst); err != nil {
		return fmt.Errorf("failed to decode job %s payload: %w", j.ID, err)
	}
	return nil
}

// -----------------------------------------------------------------------
// Job payloads
// -----------------------------------------------------------------------

// ResolveBookmarkData fans a new bookmark out into its derived artifacts.
type ResolveBookmarkData struct {
	UserID         string `json:"userId" validate:"required"`
	BookmarkID     string `json:"bookmarkId" validate:"required"`
	URL            string `json:"url" validate:"required,url"`
	ResolveEpisode bool   `json:"resolveEpisode"`
	EpisodeID      string `json:"episodeId,omitempty"`
	Medium         string `json:"medium,omitempty"`
	ResolveArchive bool   `json:"resolveArchive"`
	ArchiveID      string `json:"archiveId,omitempty"`
	ResolveEmbed   bool   `json:"resolveEmbed"`
}

// ResolveEpisodeData resolves one episode's media metadata.
type ResolveEpisodeData struct {
	UserID        string `json:"userId" validate:"required"`
	BookmarkTitle string `json:"bookmarkTitle,omitempty"`
	EpisodeID     string `json:"episodeId" validate:"required"`
	URL           string `json:"url" validate:"required,url"`
	Medium        string `json:"medium" validate:"required,oneof=audio video"`
}

// ResolveArchiveData resolves one archive's readability extraction.
type ResolveArchiveData struct {
	URL       string `json:"url" validate:"required,url"`
	UserID    string `json:"userId" validate:"required"`
	ArchiveID string `json:"archiveId" validate:"required"`
}

// SyncSubscriptionData is enqueued by the billing webhook collaborator with
// the webhook event id as singleton key, so retried deliveries collapse onto
// the existing non-terminal job.
type SyncSubscriptionData struct {
	CustomerID string `json:"customerId" validate:"required"`
}
