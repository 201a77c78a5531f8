// Package metadata resolves structured media metadata for bookmark URLs via
// an external extraction service, with a fixed-delay retry policy and
// per-attempt cache keys.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/satchel/internal/common"
	"github.com/ternarybob/satchel/internal/models"
)

// Fetcher performs a single extraction-service call for a URL/medium pair.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL, medium string) (*models.Metadata, error)
}

// Client calls the metadata extraction service. Basic-auth credentials are
// taken from the configured endpoint URL's userinfo and stripped from the
// request URL before use.
type Client struct {
	endpoint   *url.URL
	username   string
	password   string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     arbor.ILogger
}

var _ Fetcher = (*Client)(nil)

// NewClient creates a metadata service client from resolver configuration.
func NewClient(cfg common.ResolverConfig, logger arbor.ILogger) (*Client, error) {
	endpoint, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid resolver endpoint: %w", err)
	}
	if endpoint.Scheme == "" || endpoint.Host == "" {
		return nil, fmt.Errorf("resolver endpoint must be an absolute URL, got %q", cfg.Endpoint)
	}

	var username, password string
	if endpoint.User != nil {
		username = endpoint.User.Username()
		password, _ = endpoint.User.Password()
		endpoint.User = nil
	}

	timeout := common.ParseDurationOr(cfg.RequestTimeout, 30*time.Second)

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	return &Client{
		endpoint:   endpoint,
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger,
	}, nil
}

// Fetch calls GET <endpoint>/unified?url=<url>&format=<medium> and decodes
// the response. Non-200 responses carry a {code, name, description} body
// which is surfaced as a MetadataServiceError.
func (c *Client) Fetch(ctx context.Context, rawURL, medium string) (*models.Metadata, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	reqURL := *c.endpoint
	reqURL.Path = joinPath(reqURL.Path, "unified")
	q := reqURL.Query()
	q.Set("url", rawURL)
	q.Set("format", medium)
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build metadata request: %w", err)
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("metadata service request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		svcErr := &models.MetadataServiceError{Code: resp.StatusCode}
		if jsonErr := json.Unmarshal(body, svcErr); jsonErr != nil || svcErr.Description == "" {
			svcErr.Description = fmt.Sprintf("metadata service returned status %d", resp.StatusCode)
		}
		return nil, svcErr
	}

	var md models.Metadata
	if err := json.Unmarshal(body, &md); err != nil {
		return nil, fmt.Errorf("failed to decode metadata response: %w", err)
	}
	if md.URL == "" {
		md.URL = rawURL
	}

	if c.logger != nil {
		c.logger.Debug().
			Str("url", rawURL).
			Str("medium", medium).
			Str("ext", md.Ext).
			Msg("Metadata fetched")
	}
	return &md, nil
}

func joinPath(base, elem string) string {
	if base == "" || base == "/" {
		return "/" + elem
	}
	if base[len(base)-1] == '/' {
		return base + elem
	}
	return base + "/" + elem
}
