package archive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/satchel/internal/common"
	"github.com/ternarybob/satchel/internal/models"
	"github.com/ternarybob/satchel/internal/services/cache"
	"github.com/ternarybob/satchel/internal/services/metadata"
)

// MetadataResolver is the slice of the metadata resolver the extractor needs
// for the video platform bypass.
type MetadataResolver interface {
	Resolve(ctx context.Context, opts metadata.ResolveOptions) (*models.Metadata, error)
}

// Result is the content portion of an archive. The owning worker copies it
// onto the Archive entity; the extractor never touches entity identity.
type Result struct {
	Title            string `json:"title,omitempty"`
	SiteName         string `json:"site_name,omitempty"`
	HTMLContent      string `json:"html_content,omitempty"`
	MarkdownContent  string `json:"markdown_content,omitempty"`
	TextContent      string `json:"text_content,omitempty"`
	Length           int    `json:"length,omitempty"`
	Excerpt          string `json:"excerpt,omitempty"`
	Byline           string `json:"byline,omitempty"`
	Direction        string `json:"direction,omitempty"`
	Language         string `json:"language,omitempty"`
	ExtractionMethod string `json:"extraction_method"`
}

// Options controls a single extraction. InitialHTML, when supplied by the
// caller, skips the fetch and records the client extraction method.
type Options struct {
	URL         string
	InitialHTML string
}

// Extractor fetches, extracts, and sanitizes page content. Results are
// cached by URL alone; unlike metadata there is no per-attempt dimension.
type Extractor struct {
	metadata   MetadataResolver
	cache      *cache.Service
	httpClient *http.Client
	converter  *md.Converter
	userAgent  string
	maxBody    int64
	cacheTTL   time.Duration
	logger     arbor.ILogger
}

// <style> blocks are stripped before DOM construction so unsupported CSS
// cannot abort the extraction.
var styleBlockRe = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style>`)

// NewExtractor creates an archive extractor.
func NewExtractor(cfg common.ArchiveConfig, metadataResolver MetadataResolver, cacheService *cache.Service, logger arbor.ILogger) *Extractor {
	maxBody := int64(cfg.MaxBodySize)
	if maxBody <= 0 {
		maxBody = 10 << 20
	}
	return &Extractor{
		metadata:   metadataResolver,
		cache:      cacheService,
		httpClient: &http.Client{Timeout: common.ParseDurationOr(cfg.RequestTimeout, 30*time.Second)},
		converter:  md.NewConverter("", true, nil),
		userAgent:  cfg.UserAgent,
		maxBody:    maxBody,
		cacheTTL:   common.ParseDurationOr(cfg.CacheTTL, 24*time.Hour),
		logger:     logger,
	}
}

// Extract produces the archive content for a URL. Video platform URLs are
// synthesized from resolver metadata instead of DOM extraction.
func (e *Extractor) Extract(ctx context.Context, opts Options) (*Result, error) {
	parsed, err := url.Parse(opts.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("archive url is not parseable: %q", opts.URL)
	}

	key := cache.ArchiveKey(opts.URL)
	if e.cache != nil {
		res, err := e.cache.Get(ctx, key)
		if err == nil && res.Hit() && !res.Negative() {
			var cached Result
			if ok, err := res.Decode(&cached); err == nil && ok {
				return &cached, nil
			}
		}
	}

	var result *Result
	if isVideoPlatform(parsed.Host) {
		result, err = e.synthesizeFromMetadata(ctx, opts.URL)
	} else {
		result, err = e.extractFromHTML(ctx, opts)
	}
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if cacheErr := e.cache.Set(ctx, key, result, e.cacheTTL); cacheErr != nil && e.logger != nil {
			e.logger.Warn().Str("key", key).Err(cacheErr).Msg("archive cache write failed")
		}
	}
	return result, nil
}

// synthesizeFromMetadata builds an archive-shaped record for video player
// pages, where readability extraction is meaningless.
func (e *Extractor) synthesizeFromMetadata(ctx context.Context, rawURL string) (*Result, error) {
	meta, err := e.metadata.Resolve(ctx, metadata.ResolveOptions{URL: rawURL, Medium: models.MediumVideo})
	if err != nil {
		return nil, fmt.Errorf("video platform metadata lookup failed: %w", err)
	}

	siteName := meta.UploaderURL
	if siteName == "" {
		siteName = meta.ChannelURL
	}

	return &Result{
		Title:            meta.Title,
		TextContent:      meta.Description,
		Length:           len(meta.Description),
		Excerpt:          truncate(collapseWhitespace(meta.Description), 300),
		Byline:           meta.Channel,
		SiteName:         siteName,
		ExtractionMethod: models.ExtractionMethodServer,
	}, nil
}

func (e *Extractor) extractFromHTML(ctx context.Context, opts Options) (*Result, error) {
	rawHTML := opts.InitialHTML
	method := models.ExtractionMethodClient
	if rawHTML == "" {
		fetched, err := e.fetch(ctx, opts.URL)
		if err != nil {
			return nil, err
		}
		rawHTML = fetched
		method = models.ExtractionMethodServer
	}

	rawHTML = styleBlockRe.ReplaceAllString(rawHTML, "")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	article, err := extractArticle(doc)
	if err != nil {
		return nil, err
	}

	sanitized, err := sanitizeHTML(article.HTML)
	if err != nil {
		return nil, fmt.Errorf("failed to sanitize extracted HTML: %w", err)
	}

	textContent, err := htmlToText(sanitized)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(textContent) == "" {
		return nil, ErrNoArticle
	}

	markdown, err := e.converter.ConvertString(sanitized)
	if err != nil {
		if e.logger != nil {
			e.logger.Warn().Str("url", opts.URL).Err(err).Msg("markdown conversion failed")
		}
		markdown = ""
	}

	excerpt := article.Excerpt
	if excerpt == "" {
		excerpt = truncate(collapseWhitespace(textContent), 300)
	}

	return &Result{
		Title:            article.Title,
		SiteName:         article.SiteName,
		HTMLContent:      sanitized,
		MarkdownContent:  markdown,
		TextContent:      textContent,
		Length:           len(textContent),
		Excerpt:          excerpt,
		Byline:           article.Byline,
		Direction:        article.Direction,
		Language:         article.Language,
		ExtractionMethod: method,
	}, nil
}

func (e *Extractor) fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build archive fetch request: %w", err)
	}
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("archive fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("archive fetch returned status %d for %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.maxBody))
	if err != nil {
		return "", fmt.Errorf("failed to read archive body: %w", err)
	}
	return string(body), nil
}

func htmlToText(fragment string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", fmt.Errorf("failed to parse sanitized HTML: %w", err)
	}
	return collapseWhitespace(doc.Text()), nil
}

// isVideoPlatform reports whether the host is a video platform whose pages
// carry no readable article content.
func isVideoPlatform(host string) bool {
	host = strings.ToLower(host)
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")
	return host == "youtube.com" || host == "youtu.be"
}
