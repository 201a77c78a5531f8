package models

import "time"

// Medium is the target artifact kind for episode resolution.
const (
	MediumAudio = "audio"
	MediumVideo = "video"
)

// Episode types and source types.
const (
	EpisodeTypeRedirect = "redirect"
	SrcTypeVideo        = "video"
	SrcTypeAudio        = "audio"
)

// Episode is a playable media artifact derived from a bookmark.
//
// Created in an unready state when a bookmark requests episode creation and
// mutated exactly once per resolution attempt: the episode worker sets either
// Ready=true with full metadata or Error with a message. The pipeline never
// deletes episodes.
type Episode struct {
	ID                string     `json:"id" badgerhold:"key"`
	BookmarkID        string     `json:"bookmark_id" badgerholdIndex:"BookmarkID"`
	UserID            string     `json:"user_id" badgerholdIndex:"UserID"`
	URL               string     `json:"url"`
	Type              string     `json:"type"` // "redirect"
	Medium            string     `json:"medium"`
	Title             string     `json:"title,omitempty"`
	Ext               string     `json:"ext,omitempty"`
	MimeType          string     `json:"mime_type,omitempty"`
	DurationInSeconds int        `json:"duration_in_seconds,omitempty"`
	SizeInBytes       int64      `json:"size_in_bytes,omitempty"`
	AuthorName        string     `json:"author_name,omitempty"`
	Filename          string     `json:"filename,omitempty"`
	SrcType           string     `json:"src_type,omitempty"`
	Ready             bool       `json:"ready"`
	Error             string     `json:"error,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         *time.Time `json:"updated_at,omitempty"`
}

// IsValidMedium reports whether m is one of the two supported media.
func IsValidMedium(m string) bool {
	return m == MediumAudio || m == MediumVideo
}
