package common

import (
	"github.com/google/uuid"
)

// NewJobID generates a unique job ID with the "job_" prefix
func NewJobID() string {
	return "job_" + uuid.New().String()
}

// NewEpisodeID generates a unique episode ID with the "ep_" prefix
func NewEpisodeID() string {
	return "ep_" + uuid.New().String()
}

// NewArchiveID generates a unique archive ID with the "arc_" prefix
func NewArchiveID() string {
	return "arc_" + uuid.New().String()
}
