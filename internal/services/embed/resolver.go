package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/satchel/internal/common"
	"github.com/ternarybob/satchel/internal/models"
	"github.com/ternarybob/satchel/internal/services/cache"
)

// Resolver produces embed previews. Template providers are checked first and
// never hit the network; fetched providers go through the registry with
// negative caching for unmatched and failed lookups.
type Resolver struct {
	providers  []*Provider
	cache      *cache.Service
	httpClient *http.Client
	cacheTTL   time.Duration
	maxWidth   int
	maxHeight  int
	logger     arbor.ILogger
}

// NewResolver creates an embed resolver over a compiled provider registry.
func NewResolver(cfg common.EmbedConfig, providers []*Provider, cacheService *cache.Service, logger arbor.ILogger) *Resolver {
	return &Resolver{
		providers:  providers,
		cache:      cacheService,
		httpClient: &http.Client{Timeout: common.ParseDurationOr(cfg.RequestTimeout, 10*time.Second)},
		cacheTTL:   common.ParseDurationOr(cfg.CacheTTL, 24*time.Hour),
		maxWidth:   cfg.MaxWidth,
		maxHeight:  cfg.MaxHeight,
		logger:     logger,
	}
}

// Resolve returns the embed for a URL, or (nil, nil) when no embed exists.
// "No embed" is a cacheable negative result, not an error.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (*models.Embed, error) {
	if embed := GenerateTemplateEmbed(rawURL); embed != nil {
		return embed, nil
	}

	key := cache.OEmbedKey(rawURL)
	if r.cache != nil {
		res, err := r.cache.Get(ctx, key)
		if err != nil {
			r.logWarn("embed cache read failed", rawURL, err)
		} else if res.Hit() {
			if res.Negative() {
				return nil, nil
			}
			var cached models.Embed
			if ok, err := res.Decode(&cached); err == nil && ok {
				return &cached, nil
			}
		}
	}

	provider := matchProvider(r.providers, rawURL)
	if provider == nil {
		r.cacheNegative(ctx, key)
		return nil, nil
	}

	embed, err := r.fetchEmbed(ctx, provider, rawURL)
	if err != nil {
		return nil, err
	}
	if embed == nil {
		r.cacheNegative(ctx, key)
		return nil, nil
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, embed, r.cacheTTL); err != nil {
			r.logWarn("embed cache write failed", rawURL, err)
		}
	}
	return embed, nil
}

// oembedPayload tolerates providers that send width/height as strings.
type oembedPayload struct {
	Type         string  `json:"type"`
	Version      string  `json:"version"`
	HTML         string  `json:"html"`
	Width        flexInt `json:"width"`
	Height       flexInt `json:"height"`
	Title        string  `json:"title"`
	AuthorName   string  `json:"author_name"`
	AuthorURL    string  `json:"author_url"`
	ProviderName string  `json:"provider_name"`
	ProviderURL  string  `json:"provider_url"`
	ThumbnailURL string  `json:"thumbnail_url"`
}

// fetchEmbed calls the provider endpoint and normalizes the response. A
// non-2xx status, a non-JSON body, and a missing html field all mean "no
// embed" (nil, nil); only transport failures are errors.
func (r *Resolver) fetchEmbed(ctx context.Context, provider *Provider, rawURL string) (*models.Embed, error) {
	endpoint, err := url.Parse(provider.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("oembed provider %s has invalid endpoint: %w", provider.Name, err)
	}
	q := endpoint.Query()
	q.Set("url", rawURL)
	q.Set("format", "json")
	if r.maxWidth > 0 {
		q.Set("maxwidth", strconv.Itoa(r.maxWidth))
	}
	if r.maxHeight > 0 {
		q.Set("maxheight", strconv.Itoa(r.maxHeight))
	}
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build oembed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oembed request to %s failed: %w", provider.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		r.logDebug("oembed endpoint returned non-2xx", rawURL, resp.StatusCode)
		return nil, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read oembed response: %w", err)
	}

	var payload oembedPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		r.logDebug("oembed endpoint returned non-JSON body", rawURL, resp.StatusCode)
		return nil, nil
	}
	if strings.TrimSpace(payload.HTML) == "" {
		return nil, nil
	}

	embed := &models.Embed{
		Type:         payload.Type,
		Version:      payload.Version,
		HTML:         payload.HTML,
		Width:        int(payload.Width),
		Height:       int(payload.Height),
		Title:        payload.Title,
		AuthorName:   payload.AuthorName,
		AuthorURL:    payload.AuthorURL,
		ProviderName: payload.ProviderName,
		ProviderURL:  payload.ProviderURL,
		ThumbnailURL: payload.ThumbnailURL,
	}
	if embed.ProviderName == "" {
		embed.ProviderName = provider.Name
	}
	if embed.ProviderURL == "" {
		embed.ProviderURL = provider.ProviderURL
	}
	return embed, nil
}

func (r *Resolver) cacheNegative(ctx context.Context, key string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.SetNegative(ctx, key, r.cacheTTL); err != nil {
		r.logWarn("embed negative cache write failed", key, err)
	}
}

func (r *Resolver) logWarn(msg, subject string, err error) {
	if r.logger != nil {
		r.logger.Warn().Str("subject", subject).Err(err).Msg(msg)
	}
}

func (r *Resolver) logDebug(msg, rawURL string, status int) {
	if r.logger != nil {
		r.logger.Debug().Str("url", rawURL).Int("status", status).Msg(msg)
	}
}

// flexInt decodes a JSON number or a numeric string. Some oEmbed providers
// send "480" where oEmbed defines a number.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexInt(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = flexInt(v)
	return nil
}
