// Package cache provides the shared TTL'd cache used by the metadata, embed,
// and archive resolvers. Reads are surfaced as a tagged union so a cached
// negative result (present null) is never conflated with a cache miss.
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/satchel/internal/interfaces"
)

// ReadResult is the outcome of a cache read. Exactly one of the states holds:
// a miss (nothing stored, or expired), or a hit carrying the stored JSON
// value. A hit's value may be JSON null; that is a cached negative result and
// callers must treat it as "resolved, found nothing" rather than retrying.
type ReadResult struct {
	hit   bool
	value json.RawMessage
}

// Miss reports whether the key was absent.
func (r ReadResult) Miss() bool { return !r.hit }

// Hit reports whether a value (possibly a cached negative) was present.
func (r ReadResult) Hit() bool { return r.hit }

// Negative reports whether the hit is a cached null.
func (r ReadResult) Negative() bool {
	return r.hit && isJSONNull(r.value)
}

// Value returns the raw JSON of a hit. Nil for misses.
func (r ReadResult) Value() json.RawMessage {
	if !r.hit {
		return nil
	}
	return r.value
}

// Decode unmarshals a non-negative hit into dst. Returns false without
// touching dst for misses and cached negatives.
func (r ReadResult) Decode(dst interface{}) (bool, error) {
	if !r.hit || isJSONNull(r.value) {
		return false, nil
	}
	if err := json.Unmarshal(r.value, dst); err != nil {
		return false, fmt.Errorf("failed to decode cached value: %w", err)
	}
	return true, nil
}

// Service is the cache abstraction shared by all resolvers.
type Service struct {
	storage interfaces.CacheStorage
	logger  arbor.ILogger
}

// NewService creates a new cache service.
func NewService(storage interfaces.CacheStorage, logger arbor.ILogger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

// Get reads a key and unwraps legacy value envelopes. Earlier cache layers
// stored values wrapped as {"item": v} or {"value": v}; both shapes and raw
// values are accepted here, once, so resolvers never see the difference.
func (s *Service) Get(ctx context.Context, key string) (ReadResult, error) {
	raw, found, err := s.storage.Get(ctx, key)
	if err != nil {
		return ReadResult{}, fmt.Errorf("cache get %s: %w", key, err)
	}
	if !found {
		return ReadResult{}, nil
	}
	return ReadResult{hit: true, value: unwrapLegacy(raw)}, nil
}

// Set marshals value to JSON and stores it with the given TTL (zero uses the
// store default). A nil value stores JSON null, the cacheable negative.
func (s *Service) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache set %s: failed to marshal value: %w", key, err)
	}
	if err := s.storage.Set(ctx, key, data, ttl); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// SetNegative stores a cached null under the key.
func (s *Service) SetNegative(ctx context.Context, key string, ttl time.Duration) error {
	return s.Set(ctx, key, nil, ttl)
}

// Delete removes a key.
func (s *Service) Delete(ctx context.Context, key string) error {
	return s.storage.Delete(ctx, key)
}

// unwrapLegacy peels a single {"item": v} or {"value": v} envelope off the
// stored JSON. Anything else is returned as-is.
func unwrapLegacy(raw []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return trimmed
	}
	if len(envelope) != 1 {
		return trimmed
	}
	if v, ok := envelope["item"]; ok {
		return v
	}
	if v, ok := envelope["value"]; ok {
		return v
	}
	return trimmed
}

func isJSONNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
