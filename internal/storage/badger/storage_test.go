package badger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/satchel/internal/common"
	"github.com/ternarybob/satchel/internal/interfaces"
	"github.com/ternarybob/satchel/internal/models"
)

func openTestDB(t *testing.T) *BadgerDB {
	t.Helper()
	db, err := NewBadgerDB(arbor.NewLogger(), &common.BadgerConfig{
		Path: filepath.Join(t.TempDir(), "satchel-test"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestJob(id, queue string) *models.Job {
	now := time.Now()
	return &models.Job{
		ID:         id,
		Queue:      queue,
		Name:       queue,
		Data:       []byte(`{}`),
		State:      models.JobStateCreated,
		RetryLimit: 2,
		CreatedAt:  now,
		VisibleAt:  now,
	}
}

func TestJobStorageSaveAndGet(t *testing.T) {
	db := openTestDB(t)
	store := NewJobStorage(db, arbor.NewLogger())
	ctx := context.Background()

	job := newTestJob("job_1", models.QueueResolveArchive)
	require.NoError(t, store.SaveJob(ctx, job))

	got, err := store.GetJob(ctx, "job_1")
	require.NoError(t, err)
	assert.Equal(t, models.JobStateCreated, got.State)
	assert.Equal(t, models.QueueResolveArchive, got.Queue)

	_, err = store.GetJob(ctx, "job_missing")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestJobStorageClaimLease(t *testing.T) {
	db := openTestDB(t)
	store := NewJobStorage(db, arbor.NewLogger())
	ctx := context.Background()

	require.NoError(t, store.SaveJob(ctx, newTestJob("job_1", models.QueueResolveArchive)))

	claimed, err := store.ClaimNext(ctx, models.QueueResolveArchive, 1, time.Minute)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, models.JobStateActive, claimed[0].State)
	assert.NotNil(t, claimed[0].StartedAt)

	// Claimed job is invisible within its lease.
	_, err = store.ClaimNext(ctx, models.QueueResolveArchive, 1, time.Minute)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestJobStorageClaimOrderAndBatch(t *testing.T) {
	db := openTestDB(t)
	store := NewJobStorage(db, arbor.NewLogger())
	ctx := context.Background()

	older := newTestJob("job_older", models.QueueResolveEpisode)
	older.CreatedAt = time.Now().Add(-time.Hour)
	older.VisibleAt = older.CreatedAt
	require.NoError(t, store.SaveJob(ctx, older))
	require.NoError(t, store.SaveJob(ctx, newTestJob("job_newer", models.QueueResolveEpisode)))

	// A job scheduled for the future is not claimable.
	future := newTestJob("job_future", models.QueueResolveEpisode)
	future.VisibleAt = time.Now().Add(time.Hour)
	require.NoError(t, store.SaveJob(ctx, future))

	claimed, err := store.ClaimNext(ctx, models.QueueResolveEpisode, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	assert.Equal(t, "job_older", claimed[0].ID, "oldest jobs claim first")
	assert.Equal(t, "job_newer", claimed[1].ID)
}

func TestJobStorageFindSingleton(t *testing.T) {
	db := openTestDB(t)
	store := NewJobStorage(db, arbor.NewLogger())
	ctx := context.Background()

	job := newTestJob("job_1", models.QueueSyncSubscription)
	job.SingletonKey = "evt_1"
	require.NoError(t, store.SaveJob(ctx, job))

	found, err := store.FindSingleton(ctx, models.QueueSyncSubscription, "evt_1")
	require.NoError(t, err)
	assert.Equal(t, "job_1", found.ID)

	// Terminal jobs do not count as pending singletons.
	job.MarkCompleted(nil)
	require.NoError(t, store.SaveJob(ctx, job))
	_, err = store.FindSingleton(ctx, models.QueueSyncSubscription, "evt_1")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestJobStorageSweepTerminal(t *testing.T) {
	db := openTestDB(t)
	store := NewJobStorage(db, arbor.NewLogger())
	ctx := context.Background()

	expired := newTestJob("job_expired", models.QueueResolveArchive)
	expired.MarkCompleted(nil)
	expired.KeepUntil = time.Now().Add(-time.Minute)
	require.NoError(t, store.SaveJob(ctx, expired))

	kept := newTestJob("job_kept", models.QueueResolveArchive)
	kept.MarkCompleted(nil)
	kept.KeepUntil = time.Now().Add(time.Hour)
	require.NoError(t, store.SaveJob(ctx, kept))

	pending := newTestJob("job_pending", models.QueueResolveArchive)
	require.NoError(t, store.SaveJob(ctx, pending))

	removed, err := store.SweepTerminal(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = store.GetJob(ctx, "job_expired")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
	_, err = store.GetJob(ctx, "job_kept")
	assert.NoError(t, err)
	_, err = store.GetJob(ctx, "job_pending")
	assert.NoError(t, err)
}

func TestWebhookStorageDuplicateDelivery(t *testing.T) {
	db := openTestDB(t)
	store := NewWebhookStorage(db, arbor.NewLogger())
	ctx := context.Background()

	event := &models.WebhookEvent{
		EventID:    "evt_1",
		EventType:  "customer.subscription.updated",
		CustomerID: "cus_1",
		ReceivedAt: time.Now(),
	}

	wasNew, err := store.RecordEvent(ctx, event)
	require.NoError(t, err)
	assert.True(t, wasNew)

	wasNew, err = store.RecordEvent(ctx, event)
	require.NoError(t, err)
	assert.False(t, wasNew, "duplicate delivery is skipped, not an error")
}

func TestCacheStorageRoundTripAndDelete(t *testing.T) {
	db := openTestDB(t)
	store := NewCacheStorage(db, arbor.NewLogger())
	ctx := context.Background()

	_, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Set(ctx, "k", []byte(`{"a":1}`), time.Hour))
	value, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"a":1}`, string(value))

	require.NoError(t, store.Delete(ctx, "k"))
	_, found, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestEpisodeStorageUpsertPreservesCreatedAt(t *testing.T) {
	db := openTestDB(t)
	store := NewEpisodeStorage(db, arbor.NewLogger())
	ctx := context.Background()

	ep := &models.Episode{ID: "ep_1", UserID: "u1", Medium: models.MediumAudio}
	require.NoError(t, store.SaveEpisode(ctx, ep))

	first, err := store.GetEpisode(ctx, "ep_1")
	require.NoError(t, err)
	require.False(t, first.CreatedAt.IsZero())

	first.Ready = true
	require.NoError(t, store.SaveEpisode(ctx, first))

	second, err := store.GetEpisode(ctx, "ep_1")
	require.NoError(t, err)
	assert.True(t, second.Ready)
	assert.Equal(t, first.CreatedAt.Unix(), second.CreatedAt.Unix())
	assert.NotNil(t, second.UpdatedAt)
}
