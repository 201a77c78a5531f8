package models

import "time"

// Archive extraction methods.
const (
	ExtractionMethodServer = "server"
	ExtractionMethodClient = "client"
)

// Archive is a sanitized readability extraction derived from a bookmark.
// Same creation/mutation contract as Episode: created unready, mutated once
// per resolution attempt, never deleted by the pipeline.
type Archive struct {
	ID               string     `json:"id" badgerhold:"key"`
	BookmarkID       string     `json:"bookmark_id" badgerholdIndex:"BookmarkID"`
	UserID           string     `json:"user_id" badgerholdIndex:"UserID"`
	URL              string     `json:"url"`
	Title            string     `json:"title,omitempty"`
	SiteName         string     `json:"site_name,omitempty"`
	HTMLContent      string     `json:"html_content,omitempty"`
	MarkdownContent  string     `json:"markdown_content,omitempty"`
	TextContent      string     `json:"text_content,omitempty"`
	Length           int        `json:"length,omitempty"`
	Excerpt          string     `json:"excerpt,omitempty"`
	Byline           string     `json:"byline,omitempty"`
	Direction        string     `json:"direction,omitempty"`
	Language         string     `json:"language,omitempty"`
	Ready            bool       `json:"ready"`
	Error            string     `json:"error,omitempty"`
	ExtractionMethod string     `json:"extraction_method"` // "server" or "client"
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
}
