package metadata

import (
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/ternarybob/satchel/internal/models"
)

// typeByExt maps file extensions to the coarse medium category.
var typeByExt = map[string]string{
	"mp3":  models.MediumAudio,
	"m4a":  models.MediumAudio,
	"mp4":  models.MediumVideo,
	"mov":  models.MediumVideo,
	"m3u8": models.MediumVideo,
}

// mimeByExt maps dot-prefixed extensions to MIME strings. This is a separate
// table from typeByExt; the two classifications overlap but are independent.
var mimeByExt = map[string]string{
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".m3u8": "application/vnd.apple.mpegurl",
}

// ResolveType classifies metadata as "audio", "video", or falls back to the
// service-reported _type verbatim.
func ResolveType(md *models.Metadata) string {
	if t, ok := typeByExt[strings.ToLower(md.Ext)]; ok {
		return t
	}
	return md.Type
}

// ResolveMimeType returns the MIME string for the metadata's extension,
// falling back to a lookup on the URL's path extension. Returns "" when
// neither resolves.
func ResolveMimeType(md *models.Metadata) string {
	if md.Ext != "" {
		ext := strings.ToLower(md.Ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if m := lookupMime(ext); m != "" {
			return m
		}
	}
	if md.URL != "" {
		if parsed, err := url.Parse(md.URL); err == nil {
			if ext := strings.ToLower(path.Ext(parsed.Path)); ext != "" {
				if m := lookupMime(ext); m != "" {
					return m
				}
			}
		}
	}
	return ""
}

func lookupMime(ext string) string {
	if m, ok := mimeByExt[ext]; ok {
		return m
	}
	if m := mime.TypeByExtension(ext); m != "" {
		// Strip any charset parameter the platform table appends.
		if idx := strings.Index(m, ";"); idx >= 0 {
			m = strings.TrimSpace(m[:idx])
		}
		return m
	}
	return ""
}
