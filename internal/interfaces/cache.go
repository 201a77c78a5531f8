package interfaces

import (
	"context"
	"time"
)

// CacheStorage is the raw TTL'd key/value substrate behind the cache service.
// Get reports presence explicitly: an expired or never-written key is
// (nil, false, nil), while a stored empty value is ([], true, nil).
type CacheStorage interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
