package embed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/satchel/internal/common"
	"github.com/ternarybob/satchel/internal/models"
	"github.com/ternarybob/satchel/internal/services/cache"
)

func compileTestProviders(t *testing.T, entries []models.OEmbedProvider) []*Provider {
	t.Helper()
	providers, err := CompileProviders(entries)
	require.NoError(t, err)
	return providers
}

func newCacheService() *cache.Service {
	return cache.NewService(newMemoryCacheStorage(), nil)
}

func TestResolveTemplateProviderSkipsNetwork(t *testing.T) {
	// Endpoint is unreachable; a template match must never touch it.
	providers := compileTestProviders(t, []models.OEmbedProvider{{
		Name:        "Broken",
		Endpoint:    "http://127.0.0.1:1/oembed",
		URLPatterns: []string{`.*`},
	}})
	r := NewResolver(common.EmbedConfig{RequestTimeout: "1s"}, providers, nil, nil)

	embed, err := r.Resolve(context.Background(), "https://youtu.be/abc123")
	require.NoError(t, err)
	require.NotNil(t, embed)
	assert.Equal(t, "YouTube", embed.ProviderName)
	assert.Contains(t, embed.HTML, "abc123")
}

func TestResolveUnmatchedURLCachesNegative(t *testing.T) {
	var fetches int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&fetches, 1)
	}))
	defer server.Close()

	providers := compileTestProviders(t, []models.OEmbedProvider{{
		Name:        "Narrow",
		Endpoint:    server.URL,
		URLPatterns: []string{`^https://only\.example\.com/.+`},
	}})
	r := NewResolver(common.EmbedConfig{RequestTimeout: "1s", CacheTTL: "1h"}, providers, newCacheService(), nil)

	embed, err := r.Resolve(context.Background(), "https://unmatched.example.org/page")
	require.NoError(t, err)
	assert.Nil(t, embed)
	assert.EqualValues(t, 0, atomic.LoadInt64(&fetches))

	// Second call is served by the negative cache.
	embed, err = r.Resolve(context.Background(), "https://unmatched.example.org/page")
	require.NoError(t, err)
	assert.Nil(t, embed)
	assert.EqualValues(t, 0, atomic.LoadInt64(&fetches))
}

func TestResolveFailedFetchCachesNegative(t *testing.T) {
	var fetches int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&fetches, 1)
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	providers := compileTestProviders(t, []models.OEmbedProvider{{
		Name:        "Flaky",
		Endpoint:    server.URL,
		URLPatterns: []string{`^https://flaky\.example\.com/.+`},
	}})
	r := NewResolver(common.EmbedConfig{RequestTimeout: "1s", CacheTTL: "1h"}, providers, newCacheService(), nil)

	embed, err := r.Resolve(context.Background(), "https://flaky.example.com/thing")
	require.NoError(t, err)
	assert.Nil(t, embed)
	assert.EqualValues(t, 1, atomic.LoadInt64(&fetches))

	embed, err = r.Resolve(context.Background(), "https://flaky.example.com/thing")
	require.NoError(t, err)
	assert.Nil(t, embed)
	assert.EqualValues(t, 1, atomic.LoadInt64(&fetches), "negative result served from cache, no second fetch")
}

func TestResolveFetchedProviderNormalizes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "https://tracks.example.com/song", r.URL.Query().Get("url"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "800", r.URL.Query().Get("maxwidth"))
		w.Header().Set("Content-Type", "application/json")
		// String-typed dimensions and no provider fields.
		w.Write([]byte(`{"type":"rich","version":"1.0","html":"<iframe src=\"x\"></iframe>","width":"480","height":"270","title":"A Song"}`))
	}))
	defer server.Close()

	providers := compileTestProviders(t, []models.OEmbedProvider{{
		Name:        "Tracks",
		Endpoint:    server.URL,
		ProviderURL: "https://tracks.example.com/",
		URLPatterns: []string{`^https://tracks\.example\.com/.+`},
	}})
	r := NewResolver(common.EmbedConfig{RequestTimeout: "1s", CacheTTL: "1h", MaxWidth: 800}, providers, newCacheService(), nil)

	embed, err := r.Resolve(context.Background(), "https://tracks.example.com/song")
	require.NoError(t, err)
	require.NotNil(t, embed)
	assert.Equal(t, 480, embed.Width)
	assert.Equal(t, 270, embed.Height)
	assert.Equal(t, "Tracks", embed.ProviderName, "provider_name backfilled from registry")
	assert.Equal(t, "https://tracks.example.com/", embed.ProviderURL)
	assert.Equal(t, "A Song", embed.Title)
}

func TestResolveMissingHTMLIsNegative(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"type":"rich","version":"1.0","title":"no html here"}`))
	}))
	defer server.Close()

	providers := compileTestProviders(t, []models.OEmbedProvider{{
		Name:        "Empty",
		Endpoint:    server.URL,
		URLPatterns: []string{`^https://empty\.example\.com/.+`},
	}})
	r := NewResolver(common.EmbedConfig{RequestTimeout: "1s", CacheTTL: "1h"}, providers, newCacheService(), nil)

	embed, err := r.Resolve(context.Background(), "https://empty.example.com/post")
	require.NoError(t, err)
	assert.Nil(t, embed)
}

func TestResolveSecondCallServedFromCache(t *testing.T) {
	var fetches int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&fetches, 1)
		w.Write([]byte(`{"type":"rich","version":"1.0","html":"<blockquote>post</blockquote>"}`))
	}))
	defer server.Close()

	providers := compileTestProviders(t, []models.OEmbedProvider{{
		Name:        "Posts",
		Endpoint:    server.URL,
		URLPatterns: []string{`^https://posts\.example\.com/.+`},
	}})
	r := NewResolver(common.EmbedConfig{RequestTimeout: "1s", CacheTTL: "1h"}, providers, newCacheService(), nil)

	first, err := r.Resolve(context.Background(), "https://posts.example.com/1")
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := r.Resolve(context.Background(), "https://posts.example.com/1")
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, first.HTML, second.HTML)
	assert.EqualValues(t, 1, atomic.LoadInt64(&fetches))
}

func TestCompileProvidersRejectsBadPattern(t *testing.T) {
	_, err := CompileProviders([]models.OEmbedProvider{{
		Name:        "Bad",
		Endpoint:    "https://bad.example.com/oembed",
		URLPatterns: []string{`([`},
	}})
	require.Error(t, err)
}

func TestLoadProvidersDefaultRegistry(t *testing.T) {
	providers, err := LoadProviders("")
	require.NoError(t, err)
	require.NotEmpty(t, providers)

	p := matchProvider(providers, "https://soundcloud.com/artist/track")
	require.NotNil(t, p)
	assert.Equal(t, "SoundCloud", p.Name)
}
