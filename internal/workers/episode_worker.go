package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/satchel/internal/interfaces"
	"github.com/ternarybob/satchel/internal/models"
	"github.com/ternarybob/satchel/internal/services/cache"
	"github.com/ternarybob/satchel/internal/services/metadata"
)

// MetadataResolver is the slice of the metadata resolver workers need.
type MetadataResolver interface {
	Resolve(ctx context.Context, opts metadata.ResolveOptions) (*models.Metadata, error)
}

// EpisodeWorker resolves episode media metadata. Resolution failures are
// written onto the episode entity and the job still succeeds; only a missing
// or unloadable entity fails the job.
type EpisodeWorker struct {
	resolver MetadataResolver
	episodes interfaces.EpisodeStorage
	cache    *cache.Service
	logger   arbor.ILogger
}

// NewEpisodeWorker creates the episode resolution worker.
func NewEpisodeWorker(resolver MetadataResolver, episodes interfaces.EpisodeStorage, cacheService *cache.Service, logger arbor.ILogger) *EpisodeWorker {
	return &EpisodeWorker{
		resolver: resolver,
		episodes: episodes,
		cache:    cacheService,
		logger:   logger,
	}
}

// Handle processes a batch of resolveEpisode jobs.
func (w *EpisodeWorker) Handle(ctx context.Context, jobs []*models.Job) error {
	for _, job := range jobs {
		if err := w.handleOne(ctx, job); err != nil {
			return err
		}
	}
	return nil
}

func (w *EpisodeWorker) handleOne(ctx context.Context, job *models.Job) error {
	var data models.ResolveEpisodeData
	if err := job.DecodeData(&data); err != nil {
		return err
	}

	episode, err := w.episodes.GetEpisode(ctx, data.EpisodeID)
	if err != nil {
		return fmt.Errorf("episode %s not found for job %s: %w", data.EpisodeID, job.ID, err)
	}

	// The job's retry count shifts the cache key so a re-enqueued job never
	// reads the previous run's cached failure.
	md, err := w.resolver.Resolve(ctx, metadata.ResolveOptions{
		URL:     data.URL,
		Medium:  data.Medium,
		Attempt: job.RetryCount,
	})
	if err != nil {
		episode.Error = err.Error()
		episode.Ready = false
		if saveErr := w.episodes.SaveEpisode(ctx, episode); saveErr != nil {
			return fmt.Errorf("failed to record episode error: %w", saveErr)
		}
		if w.logger != nil {
			w.logger.Warn().
				Str("episode_id", episode.ID).
				Str("url", data.URL).
				Err(err).
				Msg("Episode resolution failed, error recorded on entity")
		}
		return nil
	}

	title := md.Title
	if title == "" {
		title = data.BookmarkTitle
	}

	episode.URL = md.URL
	episode.Type = models.EpisodeTypeRedirect
	episode.Medium = data.Medium
	episode.Title = title
	episode.Ext = md.Ext
	episode.MimeType = metadata.ResolveMimeType(md)
	episode.DurationInSeconds = int(md.Duration)
	episode.SizeInBytes = md.FilesizeApprox
	episode.AuthorName = md.Channel
	episode.Filename = buildFilename(title, md.Ext)
	episode.SrcType = metadata.ResolveType(md)
	episode.Ready = true
	episode.Error = ""

	if err := w.episodes.SaveEpisode(ctx, episode); err != nil {
		return fmt.Errorf("failed to save resolved episode %s: %w", episode.ID, err)
	}

	// Cache the resolved redirect URL so playback lookups skip re-resolution.
	if w.cache != nil && md.URL != "" {
		key := cache.FileKey(data.UserID, episode.ID, data.URL, episode.SrcType, data.Medium)
		if err := w.cache.Set(ctx, key, md.URL, 24*time.Hour); err != nil && w.logger != nil {
			w.logger.Warn().Str("key", key).Err(err).Msg("file cache write failed")
		}
	}

	if w.logger != nil {
		w.logger.Info().
			Str("episode_id", episode.ID).
			Str("medium", data.Medium).
			Str("mime_type", episode.MimeType).
			Msg("Episode resolved")
	}
	return nil
}

func buildFilename(title, ext string) string {
	if title == "" || ext == "" {
		return ""
	}
	return title + "." + ext
}
