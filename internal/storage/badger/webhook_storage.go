package badger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/satchel/internal/interfaces"
	"github.com/ternarybob/satchel/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// WebhookStorage implements the WebhookStorage interface for Badger
type WebhookStorage struct {
	db       *BadgerDB
	logger   arbor.ILogger
	insertMu sync.Mutex
}

// NewWebhookStorage creates a new WebhookStorage instance
func NewWebhookStorage(db *BadgerDB, logger arbor.ILogger) interfaces.WebhookStorage {
	return &WebhookStorage{
		db:     db,
		logger: logger,
	}
}

// RecordEvent inserts the event keyed by its delivery id. A duplicate
// delivery is detected and silently skipped: the return value reports whether
// the event was new, and duplicates are not errors.
func (s *WebhookStorage) RecordEvent(ctx context.Context, event *models.WebhookEvent) (bool, error) {
	if event.EventID == "" {
		return false, fmt.Errorf("webhook event ID is required")
	}
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now()
	}

	s.insertMu.Lock()
	defer s.insertMu.Unlock()

	err := s.db.Store().Insert(event.EventID, event)
	if err == badgerhold.ErrKeyExists {
		s.logger.Debug().
			Str("event_id", event.EventID).
			Msg("Duplicate webhook delivery, skipped")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to record webhook event: %w", err)
	}
	return true, nil
}

func (s *WebhookStorage) GetEvent(ctx context.Context, eventID string) (*models.WebhookEvent, error) {
	var event models.WebhookEvent
	if err := s.db.Store().Get(eventID, &event); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get webhook event: %w", err)
	}
	return &event, nil
}
