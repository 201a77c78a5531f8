package badger

import (
	"context"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/satchel/internal/interfaces"
)

// Default cache TTL when a Set passes zero.
const defaultCacheTTL = 24 * time.Hour

// CacheStorage implements the CacheStorage interface on the raw Badger DB,
// using Badger's native per-entry TTL for expiry. Entries share the key
// space with typed stores under the "cache:" prefix.
type CacheStorage struct {
	db     *badgerdb.DB
	logger arbor.ILogger
}

// NewCacheStorage creates a new CacheStorage instance
func NewCacheStorage(db *BadgerDB, logger arbor.ILogger) interfaces.CacheStorage {
	return &CacheStorage{
		db:     db.Badger(),
		logger: logger,
	}
}

func (s *CacheStorage) cacheKey(key string) []byte {
	return []byte("cache:" + key)
}

// Get returns the raw cached bytes and an explicit presence flag. Expired or
// never-written keys report found=false; a stored empty value reports
// found=true. Presence is never conflated with value content.
func (s *CacheStorage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(s.cacheKey(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err == badgerdb.ErrKeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache key: %w", err)
	}
	return value, true, nil
}

func (s *CacheStorage) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		entry := badgerdb.NewEntry(s.cacheKey(key), value).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("failed to write cache key: %w", err)
	}
	return nil
}

func (s *CacheStorage) Delete(ctx context.Context, key string) error {
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete(s.cacheKey(key))
	})
	if err != nil && err != badgerdb.ErrKeyNotFound {
		return fmt.Errorf("failed to delete cache key: %w", err)
	}
	return nil
}
