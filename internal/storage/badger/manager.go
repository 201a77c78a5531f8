package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/satchel/internal/common"
	"github.com/ternarybob/satchel/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db      *BadgerDB
	job     interfaces.JobStorage
	episode interfaces.EpisodeStorage
	archive interfaces.ArchiveStorage
	webhook interfaces.WebhookStorage
	token   interfaces.TokenStorage
	cache   interfaces.CacheStorage
	logger  arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:      db,
		job:     NewJobStorage(db, logger),
		episode: NewEpisodeStorage(db, logger),
		archive: NewArchiveStorage(db, logger),
		webhook: NewWebhookStorage(db, logger),
		token:   NewTokenStorage(db, logger),
		cache:   NewCacheStorage(db, logger),
		logger:  logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// JobStorage returns the Job storage interface
func (m *Manager) JobStorage() interfaces.JobStorage {
	return m.job
}

// EpisodeStorage returns the Episode storage interface
func (m *Manager) EpisodeStorage() interfaces.EpisodeStorage {
	return m.episode
}

// ArchiveStorage returns the Archive storage interface
func (m *Manager) ArchiveStorage() interfaces.ArchiveStorage {
	return m.archive
}

// WebhookStorage returns the Webhook storage interface
func (m *Manager) WebhookStorage() interfaces.WebhookStorage {
	return m.webhook
}

// TokenStorage returns the Token storage interface
func (m *Manager) TokenStorage() interfaces.TokenStorage {
	return m.token
}

// CacheStorage returns the Cache storage interface
func (m *Manager) CacheStorage() interfaces.CacheStorage {
	return m.cache
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
