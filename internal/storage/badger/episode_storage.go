package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/satchel/internal/interfaces"
	"github.com/ternarybob/satchel/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// EpisodeStorage implements the EpisodeStorage interface for Badger
type EpisodeStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewEpisodeStorage creates a new EpisodeStorage instance
func NewEpisodeStorage(db *BadgerDB, logger arbor.ILogger) interfaces.EpisodeStorage {
	return &EpisodeStorage{
		db:     db,
		logger: logger,
	}
}

func (s *EpisodeStorage) SaveEpisode(ctx context.Context, episode *models.Episode) error {
	if episode.ID == "" {
		return fmt.Errorf("episode ID is required")
	}

	// Preserve CreatedAt on update
	var existing models.Episode
	if err := s.db.Store().Get(episode.ID, &existing); err == nil {
		episode.CreatedAt = existing.CreatedAt
		now := time.Now()
		episode.UpdatedAt = &now
	} else if episode.CreatedAt.IsZero() {
		episode.CreatedAt = time.Now()
	}

	if err := s.db.Store().Upsert(episode.ID, episode); err != nil {
		return fmt.Errorf("failed to save episode: %w", err)
	}
	return nil
}

func (s *EpisodeStorage) GetEpisode(ctx context.Context, id string) (*models.Episode, error) {
	var episode models.Episode
	if err := s.db.Store().Get(id, &episode); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get episode: %w", err)
	}
	return &episode, nil
}

func (s *EpisodeStorage) ListEpisodesByUser(ctx context.Context, userID string, limit int) ([]*models.Episode, error) {
	query := badgerhold.Where("UserID").Eq(userID).SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var episodes []models.Episode
	if err := s.db.Store().Find(&episodes, query); err != nil {
		return nil, fmt.Errorf("failed to list episodes: %w", err)
	}

	result := make([]*models.Episode, len(episodes))
	for i := range episodes {
		result[i] = &episodes[i]
	}
	return result, nil
}
