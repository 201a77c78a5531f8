package models

// Embed is a normalized oEmbed-style result. Template providers synthesize it
// deterministically; fetched providers populate it from the provider's JSON.
type Embed struct {
	Type         string `json:"type,omitempty"`
	Version      string `json:"version,omitempty"`
	HTML         string `json:"html"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	Title        string `json:"title,omitempty"`
	AuthorName   string `json:"author_name,omitempty"`
	AuthorURL    string `json:"author_url,omitempty"`
	ProviderName string `json:"provider_name,omitempty"`
	ProviderURL  string `json:"provider_url,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// OEmbedProvider is a static registry entry for a fetched provider.
// Loaded and compiled at process start; immutable afterwards.
type OEmbedProvider struct {
	Name        string   `yaml:"name" json:"name"`
	Endpoint    string   `yaml:"endpoint" json:"endpoint"`
	ProviderURL string   `yaml:"provider_url" json:"provider_url"`
	URLPatterns []string `yaml:"url_patterns" json:"url_patterns"`
}
