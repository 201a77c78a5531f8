package metadata

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/satchel/internal/models"
	"github.com/ternarybob/satchel/internal/services/cache"
)

var (
	// ErrInvalidMedium is a configuration error, never retried.
	ErrInvalidMedium = errors.New("medium must be \"audio\" or \"video\"")
	// ErrInvalidURL is a configuration error, never retried.
	ErrInvalidURL = errors.New("url is not parseable")
)

const defaultRetryDelay = 5 * time.Second

// youtubeRetryBudget applies to URLs on hosts known to fail intermittently.
const youtubeRetryBudget = 3

// ResolveOptions controls a single resolution. Attempt shifts the cache key
// so a re-enqueued job never reads a previous run's cached failure.
type ResolveOptions struct {
	URL        string
	Medium     string
	Attempt    int
	MaxRetries *int
	RetryDelay time.Duration
}

// Resolver wraps a Fetcher with caching and a fixed-delay retry loop. The
// delay is deliberately constant across retries, not exponential.
type Resolver struct {
	fetcher Fetcher
	cache   *cache.Service
	logger  arbor.ILogger

	// sleep is injectable so tests run without real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewResolver creates a metadata resolver.
func NewResolver(fetcher Fetcher, cacheService *cache.Service, logger arbor.ILogger) *Resolver {
	return &Resolver{
		fetcher: fetcher,
		cache:   cacheService,
		logger:  logger,
		sleep:   sleepContext,
	}
}

// Resolve fetches metadata for a URL/medium, consulting the cache at a
// per-attempt key before each network call. The retry budget defaults to 3
// for YouTube URLs and 0 for everything else unless overridden.
func (r *Resolver) Resolve(ctx context.Context, opts ResolveOptions) (*models.Metadata, error) {
	if !models.IsValidMedium(opts.Medium) {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidMedium, opts.Medium)
	}
	parsed, err := url.Parse(opts.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, opts.URL)
	}

	maxRetries := 0
	if opts.MaxRetries != nil {
		maxRetries = *opts.MaxRetries
	} else if isYouTubeHost(parsed.Host) {
		maxRetries = youtubeRetryBudget
	}

	retryDelay := opts.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}

	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return nil, fmt.Errorf("%w (last attempt: %v)", err, lastErr)
			}
			return nil, err
		}

		key := cache.MetadataKey(opts.URL, opts.Medium, opts.Attempt+i)
		if r.cache != nil {
			res, err := r.cache.Get(ctx, key)
			if err != nil {
				r.logWarn("cache read failed", key, err)
			} else if res.Hit() && !res.Negative() {
				var md models.Metadata
				if ok, err := res.Decode(&md); err == nil && ok {
					return &md, nil
				}
			}
		}

		md, err := r.fetcher.Fetch(ctx, opts.URL, opts.Medium)
		if err == nil {
			if r.cache != nil {
				if cacheErr := r.cache.Set(ctx, key, md, 0); cacheErr != nil {
					r.logWarn("cache write failed", key, cacheErr)
				}
			}
			return md, nil
		}
		lastErr = err

		if i < maxRetries {
			if r.logger != nil {
				r.logger.Warn().
					Str("url", opts.URL).
					Int("attempt", opts.Attempt+i).
					Err(err).
					Msg("Metadata fetch failed, retrying")
			}
			if sleepErr := r.sleep(ctx, retryDelay); sleepErr != nil {
				return nil, fmt.Errorf("%w (last attempt: %v)", sleepErr, lastErr)
			}
		}
	}

	return nil, lastErr
}

func (r *Resolver) logWarn(msg, key string, err error) {
	if r.logger != nil {
		r.logger.Warn().Str("key", key).Err(err).Msg(msg)
	}
}

func isYouTubeHost(host string) bool {
	host = strings.ToLower(host)
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")
	return host == "youtube.com" || host == "youtu.be"
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
