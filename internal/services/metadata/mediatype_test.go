package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/satchel/internal/models"
)

func TestResolveType(t *testing.T) {
	tests := []struct {
		name     string
		metadata models.Metadata
		expected string
	}{
		{"mp3 is audio", models.Metadata{Ext: "mp3"}, "audio"},
		{"m4a is audio", models.Metadata{Ext: "m4a"}, "audio"},
		{"mp4 is video", models.Metadata{Ext: "mp4"}, "video"},
		{"mov is video", models.Metadata{Ext: "mov"}, "video"},
		{"m3u8 is video", models.Metadata{Ext: "m3u8"}, "video"},
		{"uppercase ext normalized", models.Metadata{Ext: "MP3"}, "audio"},
		{"unknown ext falls back to _type", models.Metadata{Ext: "pdf", Type: "document"}, "document"},
		{"no ext falls back to _type", models.Metadata{Type: "playlist"}, "playlist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResolveType(&tt.metadata))
		})
	}
}

func TestResolveMimeType(t *testing.T) {
	tests := []struct {
		name     string
		metadata models.Metadata
		expected string
	}{
		{"mp3", models.Metadata{Ext: "mp3", URL: "https://x/file.mp3"}, "audio/mpeg"},
		{"m4a", models.Metadata{Ext: "m4a", URL: "https://x/file.m4a"}, "audio/mp4"},
		{"mp4", models.Metadata{Ext: "mp4", URL: "https://x/file.mp4"}, "video/mp4"},
		{"mov", models.Metadata{Ext: "mov", URL: "https://x/file.mov"}, "video/quicktime"},
		{"m3u8", models.Metadata{Ext: "m3u8", URL: "https://x/stream.m3u8"}, "application/vnd.apple.mpegurl"},
		{"no ext, URL path fallback", models.Metadata{URL: "https://cdn.example.com/media/track.mp3"}, "audio/mpeg"},
		{"query string does not confuse fallback", models.Metadata{URL: "https://x/v.mp4?token=abc"}, "video/mp4"},
		{"unknown ext and opaque URL", models.Metadata{Ext: "xyz", URL: "https://example.com/watch"}, ""},
		{"empty metadata", models.Metadata{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResolveMimeType(&tt.metadata))
		})
	}
}
