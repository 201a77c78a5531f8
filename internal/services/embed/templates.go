// Package embed resolves oEmbed-style previews for bookmark URLs. Template
// providers synthesize embed HTML deterministically from the URL with no
// network call; fetched providers call a registered oEmbed endpoint.
package embed

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/ternarybob/satchel/internal/models"
)

// templateProvider derives embed HTML purely from the URL. extractID returns
// the platform's video id, or "" when the URL is not recognized.
type templateProvider struct {
	name      string
	extractID func(u *url.URL) string
	render    func(id string) *models.Embed
}

// Ordered; first match wins.
var templateProviders = []templateProvider{
	{
		name:      "YouTube",
		extractID: youtubeVideoID,
		render: func(id string) *models.Embed {
			return &models.Embed{
				Type:         "video",
				Version:      "1.0",
				ProviderName: "YouTube",
				ProviderURL:  "https://www.youtube.com/",
				Width:        640,
				Height:       360,
				HTML: fmt.Sprintf(
					`<iframe width="640" height="360" src="https://www.youtube.com/embed/%s" frameborder="0" allowfullscreen></iframe>`,
					url.QueryEscape(id)),
			}
		},
	},
	{
		name:      "Vimeo",
		extractID: vimeoVideoID,
		render: func(id string) *models.Embed {
			return &models.Embed{
				Type:         "video",
				Version:      "1.0",
				ProviderName: "Vimeo",
				ProviderURL:  "https://vimeo.com/",
				Width:        640,
				Height:       360,
				HTML: fmt.Sprintf(
					`<iframe width="640" height="360" src="https://player.vimeo.com/video/%s" frameborder="0" allowfullscreen></iframe>`,
					url.QueryEscape(id)),
			}
		},
	},
}

// GenerateTemplateEmbed synthesizes embed HTML for well-known platforms
// without any network call. Returns nil when no template provider matches.
func GenerateTemplateEmbed(rawURL string) *models.Embed {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return nil
	}
	for _, p := range templateProviders {
		if id := p.extractID(parsed); id != "" {
			return p.render(id)
		}
	}
	return nil
}

var vimeoIDRe = regexp.MustCompile(`^\d+$`)

// youtubeVideoID handles the three URL forms: watch?v= query, youtu.be
// short link, and /shorts/ path.
func youtubeVideoID(u *url.URL) string {
	host := normalizeHost(u.Host)
	switch host {
	case "youtube.com":
		if strings.HasPrefix(u.Path, "/watch") {
			return u.Query().Get("v")
		}
		if id, ok := pathSegmentAfter(u.Path, "shorts"); ok {
			return id
		}
		if id, ok := pathSegmentAfter(u.Path, "embed"); ok {
			return id
		}
	case "youtu.be":
		return strings.Trim(u.Path, "/")
	}
	return ""
}

// vimeoVideoID matches a purely numeric path segment.
func vimeoVideoID(u *url.URL) string {
	if normalizeHost(u.Host) != "vimeo.com" {
		return ""
	}
	for _, seg := range strings.Split(strings.Trim(u.Path, "/"), "/") {
		if vimeoIDRe.MatchString(seg) {
			return seg
		}
	}
	return ""
}

func pathSegmentAfter(path, marker string) (string, bool) {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, seg := range segments {
		if seg == marker && i+1 < len(segments) && segments[i+1] != "" {
			return segments[i+1], true
		}
	}
	return "", false
}

func normalizeHost(host string) string {
	host = strings.ToLower(host)
	if h, _, found := strings.Cut(host, ":"); found {
		host = h
	}
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")
	return host
}
