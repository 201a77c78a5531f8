package embed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTemplateEmbedYouTubeForms(t *testing.T) {
	tests := []struct {
		name string
		url  string
		id   string
	}{
		{"watch query", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"short link", "https://youtu.be/abc123", "abc123"},
		{"shorts path", "https://www.youtube.com/shorts/xyz789", "xyz789"},
		{"embed path", "https://www.youtube.com/embed/qrs456", "qrs456"},
		{"mobile host", "https://m.youtube.com/watch?v=mmm111", "mmm111"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			embed := GenerateTemplateEmbed(tt.url)
			require.NotNil(t, embed)
			assert.Equal(t, "YouTube", embed.ProviderName)
			assert.Equal(t, "video", embed.Type)
			assert.Contains(t, embed.HTML, "youtube.com/embed/"+tt.id)
		})
	}
}

func TestGenerateTemplateEmbedEscapesID(t *testing.T) {
	embed := GenerateTemplateEmbed("https://youtu.be/a%20b")
	require.NotNil(t, embed)
	// The decoded path segment is re-encoded into the iframe src.
	assert.Contains(t, embed.HTML, "a+b")
	assert.NotContains(t, embed.HTML, `a b"`)
}

func TestGenerateTemplateEmbedVimeo(t *testing.T) {
	embed := GenerateTemplateEmbed("https://vimeo.com/76979871")
	require.NotNil(t, embed)
	assert.Equal(t, "Vimeo", embed.ProviderName)
	assert.Contains(t, embed.HTML, "player.vimeo.com/video/76979871")

	// Channel-style URLs still carry a numeric segment.
	embed = GenerateTemplateEmbed("https://vimeo.com/channels/staffpicks/76979871")
	require.NotNil(t, embed)
	assert.Contains(t, embed.HTML, "76979871")
}

func TestGenerateTemplateEmbedNoMatch(t *testing.T) {
	assert.Nil(t, GenerateTemplateEmbed("https://example.com/article"))
	assert.Nil(t, GenerateTemplateEmbed("https://vimeo.com/about"))
	assert.Nil(t, GenerateTemplateEmbed("https://www.youtube.com/feed/subscriptions"))
	assert.Nil(t, GenerateTemplateEmbed("not a url"))
}
