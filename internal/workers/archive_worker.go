package workers

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/satchel/internal/interfaces"
	"github.com/ternarybob/satchel/internal/models"
	"github.com/ternarybob/satchel/internal/services/archive"
)

// ArchiveExtractor is the slice of the archive extractor workers need.
type ArchiveExtractor interface {
	Extract(ctx context.Context, opts archive.Options) (*archive.Result, error)
}

// ArchiveWorker resolves readability archives. Extraction failures are
// written onto the archive entity and the job still succeeds; only a missing
// or unloadable entity fails the job.
type ArchiveWorker struct {
	extractor ArchiveExtractor
	archives  interfaces.ArchiveStorage
	logger    arbor.ILogger
}

// NewArchiveWorker creates the archive resolution worker.
func NewArchiveWorker(extractor ArchiveExtractor, archives interfaces.ArchiveStorage, logger arbor.ILogger) *ArchiveWorker {
	return &ArchiveWorker{
		extractor: extractor,
		archives:  archives,
		logger:    logger,
	}
}

// Handle processes a batch of resolveArchive jobs.
func (w *ArchiveWorker) Handle(ctx context.Context, jobs []*models.Job) error {
	for _, job := range jobs {
		if err := w.handleOne(ctx, job); err != nil {
			return err
		}
	}
	return nil
}

func (w *ArchiveWorker) handleOne(ctx context.Context, job *models.Job) error {
	var data models.ResolveArchiveData
	if err := job.DecodeData(&data); err != nil {
		return err
	}

	arc, err := w.archives.GetArchive(ctx, data.ArchiveID)
	if err != nil {
		return fmt.Errorf("archive %s not found for job %s: %w", data.ArchiveID, job.ID, err)
	}

	result, err := w.extractor.Extract(ctx, archive.Options{URL: data.URL})
	if err != nil {
		arc.Error = err.Error()
		arc.Ready = false
		if saveErr := w.archives.SaveArchive(ctx, arc); saveErr != nil {
			return fmt.Errorf("failed to record archive error: %w", saveErr)
		}
		if w.logger != nil {
			w.logger.Warn().
				Str("archive_id", arc.ID).
				Str("url", data.URL).
				Err(err).
				Msg("Archive extraction failed, error recorded on entity")
		}
		return nil
	}

	arc.URL = data.URL
	arc.Title = result.Title
	arc.SiteName = result.SiteName
	arc.HTMLContent = result.HTMLContent
	arc.MarkdownContent = result.MarkdownContent
	arc.TextContent = result.TextContent
	arc.Length = result.Length
	arc.Excerpt = result.Excerpt
	arc.Byline = result.Byline
	arc.Direction = result.Direction
	arc.Language = result.Language
	arc.ExtractionMethod = result.ExtractionMethod
	arc.Ready = true
	arc.Error = ""

	if err := w.archives.SaveArchive(ctx, arc); err != nil {
		return fmt.Errorf("failed to save resolved archive %s: %w", arc.ID, err)
	}

	if w.logger != nil {
		w.logger.Info().
			Str("archive_id", arc.ID).
			Int("length", arc.Length).
			Str("method", arc.ExtractionMethod).
			Msg("Archive resolved")
	}
	return nil
}
