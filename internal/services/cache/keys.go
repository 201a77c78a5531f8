package cache

import (
	"strconv"
	"strings"
)

// Cache keys are deterministic, colon-joined compositions of a namespace tag
// and identifying parameters. The formats are stable for cross-process cache
// sharing and must not change.

// MetadataKey builds the per-attempt metadata cache key. The attempt
// dimension intentionally varies per retry so a cached failure can never
// mask a retry.
func MetadataKey(url, medium string, attempt int) string {
	return join("meta", url, medium, strconv.Itoa(attempt))
}

// OEmbedKey builds the oEmbed cache key, keyed by url alone.
func OEmbedKey(url string) string {
	return join("oembed", url)
}

// ArchiveKey builds the archive cache key, keyed by url alone (no
// medium/attempt dimension, unlike metadata).
func ArchiveKey(url string) string {
	return join("archive", url)
}

// FileKey caches a resolved redirect URL, not metadata.
func FileKey(userID, episodeID, sourceURL, fileType, medium string) string {
	return join("file", userID, episodeID, sourceURL, fileType, medium)
}

func join(parts ...string) string {
	return strings.Join(parts, ":")
}
