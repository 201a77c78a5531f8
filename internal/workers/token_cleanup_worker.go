package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/satchel/internal/interfaces"
	"github.com/ternarybob/satchel/internal/models"
)

// TokenCleanupWorker deletes expired auth tokens. Enqueued on a schedule by
// the retention scheduler with a singleton key, so at most one cleanup is
// ever pending.
type TokenCleanupWorker struct {
	tokens interfaces.TokenStorage
	logger arbor.ILogger
}

// NewTokenCleanupWorker creates the token cleanup worker.
func NewTokenCleanupWorker(tokens interfaces.TokenStorage, logger arbor.ILogger) *TokenCleanupWorker {
	return &TokenCleanupWorker{tokens: tokens, logger: logger}
}

// Handle processes a batch of cleanupAuthTokens jobs.
func (w *TokenCleanupWorker) Handle(ctx context.Context, jobs []*models.Job) error {
	deleted, err := w.tokens.DeleteExpired(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("token cleanup failed: %w", err)
	}
	if w.logger != nil {
		w.logger.Info().Int("deleted", deleted).Int("jobs", len(jobs)).Msg("Expired auth tokens removed")
	}
	return nil
}
