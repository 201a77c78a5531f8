package metadata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/satchel/internal/models"
)

type fakeFetcher struct {
	calls   int
	results []fetchResult
}

type fetchResult struct {
	md  *models.Metadata
	err error
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL, medium string) (*models.Metadata, error) {
	idx := f.calls
	f.calls++
	if idx >= len(f.results) {
		idx = len(f.results) - 1
	}
	r := f.results[idx]
	return r.md, r.err
}

func newTestResolver(f Fetcher) *Resolver {
	r := NewResolver(f, nil, nil)
	r.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return r
}

func intPtr(v int) *int { return &v }

func TestResolveInvalidMedium(t *testing.T) {
	fetcher := &fakeFetcher{results: []fetchResult{{md: &models.Metadata{}}}}
	r := newTestResolver(fetcher)

	_, err := r.Resolve(context.Background(), ResolveOptions{URL: "https://example.com/a", Medium: "image"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidMedium)
	assert.Equal(t, 0, fetcher.calls)
}

func TestResolveInvalidURL(t *testing.T) {
	fetcher := &fakeFetcher{results: []fetchResult{{md: &models.Metadata{}}}}
	r := newTestResolver(fetcher)

	_, err := r.Resolve(context.Background(), ResolveOptions{URL: "not a url", Medium: models.MediumAudio})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidURL)
	assert.Equal(t, 0, fetcher.calls)
}

func TestResolveRetryBudgetExhausted(t *testing.T) {
	boom := errors.New("extraction failed")
	fetcher := &fakeFetcher{results: []fetchResult{{err: boom}}}
	r := newTestResolver(fetcher)

	_, err := r.Resolve(context.Background(), ResolveOptions{
		URL:        "https://example.com/audio",
		Medium:     models.MediumAudio,
		MaxRetries: intPtr(2),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, fetcher.calls, "maxRetries=2 means initial call plus two retries")
}

func TestResolveZeroRetriesSingleCall(t *testing.T) {
	boom := errors.New("extraction failed")
	fetcher := &fakeFetcher{results: []fetchResult{{err: boom}}}
	r := newTestResolver(fetcher)

	_, err := r.Resolve(context.Background(), ResolveOptions{
		URL:        "https://example.com/audio",
		Medium:     models.MediumAudio,
		MaxRetries: intPtr(0),
	})
	require.Error(t, err)
	assert.Equal(t, 1, fetcher.calls)
}

func TestResolveYouTubeDefaultsToThreeRetries(t *testing.T) {
	boom := errors.New("extraction failed")
	fetcher := &fakeFetcher{results: []fetchResult{{err: boom}}}
	r := newTestResolver(fetcher)

	_, err := r.Resolve(context.Background(), ResolveOptions{
		URL:    "https://www.youtube.com/watch?v=abc123",
		Medium: models.MediumVideo,
	})
	require.Error(t, err)
	assert.Equal(t, 4, fetcher.calls)
}

func TestResolveNonYouTubeDefaultsToZeroRetries(t *testing.T) {
	boom := errors.New("extraction failed")
	fetcher := &fakeFetcher{results: []fetchResult{{err: boom}}}
	r := newTestResolver(fetcher)

	_, err := r.Resolve(context.Background(), ResolveOptions{
		URL:    "https://example.com/podcast.mp3",
		Medium: models.MediumAudio,
	})
	require.Error(t, err)
	assert.Equal(t, 1, fetcher.calls)
}

func TestResolveSucceedsAfterRetry(t *testing.T) {
	fetcher := &fakeFetcher{results: []fetchResult{
		{err: errors.New("transient")},
		{md: &models.Metadata{URL: "https://youtu.be/abc123", Title: "hello", Ext: "m4a"}},
	}}
	r := newTestResolver(fetcher)

	md, err := r.Resolve(context.Background(), ResolveOptions{
		URL:    "https://youtu.be/abc123",
		Medium: models.MediumAudio,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.calls)
	assert.Equal(t, "hello", md.Title)
}

func TestResolveStopsOnCancelledContext(t *testing.T) {
	fetcher := &fakeFetcher{results: []fetchResult{{err: errors.New("transient")}}}
	r := newTestResolver(fetcher)

	ctx, cancel := context.WithCancel(context.Background())
	r.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return nil
	}

	_, err := r.Resolve(ctx, ResolveOptions{
		URL:        "https://example.com/a",
		Medium:     models.MediumAudio,
		MaxRetries: intPtr(5),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, fetcher.calls, "no further attempts after cancellation")
}
