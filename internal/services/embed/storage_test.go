package embed

import (
	"context"
	"time"
)

// memoryCacheStorage is a test double for interfaces.CacheStorage.
type memoryCacheStorage struct {
	values map[string][]byte
}

func newMemoryCacheStorage() *memoryCacheStorage {
	return &memoryCacheStorage{values: make(map[string][]byte)}
}

func (m *memoryCacheStorage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memoryCacheStorage) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.values[key] = value
	return nil
}

func (m *memoryCacheStorage) Delete(ctx context.Context, key string) error {
	delete(m.values, key)
	return nil
}
