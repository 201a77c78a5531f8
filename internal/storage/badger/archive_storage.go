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

// ArchiveStorage implements the ArchiveStorage interface for Badger
type ArchiveStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewArchiveStorage creates a new ArchiveStorage instance
func NewArchiveStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ArchiveStorage {
	return &ArchiveStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ArchiveStorage) SaveArchive(ctx context.Context, archive *models.Archive) error {
	if archive.ID == "" {
		return fmt.Errorf("archive ID is required")
	}

	// Preserve CreatedAt on update
	var existing models.Archive
	if err := s.db.Store().Get(archive.ID, &existing); err == nil {
		archive.CreatedAt = existing.CreatedAt
		now := time.Now()
		archive.UpdatedAt = &now
	} else if archive.CreatedAt.IsZero() {
		archive.CreatedAt = time.Now()
	}

	if err := s.db.Store().Upsert(archive.ID, archive); err != nil {
		return fmt.Errorf("failed to save archive: %w", err)
	}
	return nil
}

func (s *ArchiveStorage) GetArchive(ctx context.Context, id string) (*models.Archive, error) {
	var archive models.Archive
	if err := s.db.Store().Get(id, &archive); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get archive: %w", err)
	}
	return &archive, nil
}

func (s *ArchiveStorage) ListArchivesByUser(ctx context.Context, userID string, limit int) ([]*models.Archive, error) {
	query := badgerhold.Where("UserID").Eq(userID).SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var archives []models.Archive
	if err := s.db.Store().Find(&archives, query); err != nil {
		return nil, fmt.Errorf("failed to list archives: %w", err)
	}

	result := make([]*models.Archive, len(archives))
	for i := range archives {
		result[i] = &archives[i]
	}
	return result, nil
}
