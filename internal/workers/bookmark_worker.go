// Package workers contains the per-queue job handlers. Each worker decodes
// its payload, drives the relevant resolver, and persists results onto the
// owning entity. Error policy differs per worker: the bookmark worker
// re-raises so the job fails, the episode and archive workers record the
// error on the entity and let the job succeed.
package workers

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/satchel/internal/models"
	"github.com/ternarybob/satchel/internal/queue"
)

// Enqueuer is the slice of the queue manager workers use for fan-out.
type Enqueuer interface {
	Enqueue(ctx context.Context, queueName string, data interface{}, opts queue.EnqueueOptions) (string, error)
}

// EmbedResolver resolves an embed preview, returning nil for "no embed".
type EmbedResolver interface {
	Resolve(ctx context.Context, rawURL string) (*models.Embed, error)
}

// BookmarkWorker fans a resolveBookmark job out into the per-artifact jobs
// and warms the embed cache inline. A fan-out failure fails the bookmark job
// itself; the artifact jobs own their downstream failures.
type BookmarkWorker struct {
	enqueuer Enqueuer
	embeds   EmbedResolver
	logger   arbor.ILogger
}

// NewBookmarkWorker creates the bookmark fan-out worker.
func NewBookmarkWorker(enqueuer Enqueuer, embeds EmbedResolver, logger arbor.ILogger) *BookmarkWorker {
	return &BookmarkWorker{enqueuer: enqueuer, embeds: embeds, logger: logger}
}

// Handle processes a batch of resolveBookmark jobs.
func (w *BookmarkWorker) Handle(ctx context.Context, jobs []*models.Job) error {
	for _, job := range jobs {
		if err := w.handleOne(ctx, job); err != nil {
			return err
		}
	}
	return nil
}

func (w *BookmarkWorker) handleOne(ctx context.Context, job *models.Job) error {
	var data models.ResolveBookmarkData
	if err := job.DecodeData(&data); err != nil {
		return err
	}

	if data.ResolveEpisode {
		if data.EpisodeID == "" || data.Medium == "" {
			return fmt.Errorf("bookmark %s requests episode resolution without episodeId or medium", data.BookmarkID)
		}
		_, err := w.enqueuer.Enqueue(ctx, models.QueueResolveEpisode, models.ResolveEpisodeData{
			UserID:    data.UserID,
			EpisodeID: data.EpisodeID,
			URL:       data.URL,
			Medium:    data.Medium,
		}, queue.EnqueueOptions{})
		if err != nil {
			return fmt.Errorf("failed to enqueue episode resolution for bookmark %s: %w", data.BookmarkID, err)
		}
	}

	if data.ResolveArchive {
		if data.ArchiveID == "" {
			return fmt.Errorf("bookmark %s requests archive resolution without archiveId", data.BookmarkID)
		}
		_, err := w.enqueuer.Enqueue(ctx, models.QueueResolveArchive, models.ResolveArchiveData{
			URL:       data.URL,
			UserID:    data.UserID,
			ArchiveID: data.ArchiveID,
		}, queue.EnqueueOptions{})
		if err != nil {
			return fmt.Errorf("failed to enqueue archive resolution for bookmark %s: %w", data.BookmarkID, err)
		}
	}

	if data.ResolveEmbed && w.embeds != nil {
		if _, err := w.embeds.Resolve(ctx, data.URL); err != nil {
			return fmt.Errorf("failed to resolve embed for bookmark %s: %w", data.BookmarkID, err)
		}
	}

	if w.logger != nil {
		w.logger.Info().
			Str("bookmark_id", data.BookmarkID).
			Bool("episode", data.ResolveEpisode).
			Bool("archive", data.ResolveArchive).
			Bool("embed", data.ResolveEmbed).
			Msg("Bookmark fan-out complete")
	}
	return nil
}
