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

// TokenStorage implements the TokenStorage interface for Badger
type TokenStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewTokenStorage creates a new TokenStorage instance
func NewTokenStorage(db *BadgerDB, logger arbor.ILogger) interfaces.TokenStorage {
	return &TokenStorage{
		db:     db,
		logger: logger,
	}
}

func (s *TokenStorage) SaveToken(ctx context.Context, token *models.AuthToken) error {
	if token.ID == "" {
		return fmt.Errorf("token ID is required")
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}
	if err := s.db.Store().Upsert(token.ID, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

func (s *TokenStorage) GetToken(ctx context.Context, id string) (*models.AuthToken, error) {
	var token models.AuthToken
	if err := s.db.Store().Get(id, &token); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	return &token, nil
}

func (s *TokenStorage) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	var tokens []models.AuthToken
	if err := s.db.Store().Find(&tokens, badgerhold.Where("ExpiresAt").Le(now)); err != nil {
		return 0, fmt.Errorf("failed to query expired tokens: %w", err)
	}

	deleted := 0
	for _, token := range tokens {
		if err := s.db.Store().Delete(token.ID, &models.AuthToken{}); err != nil {
			s.logger.Warn().Str("token_id", token.ID).Err(err).Msg("Failed to delete expired token")
			continue
		}
		deleted++
	}
	return deleted, nil
}
