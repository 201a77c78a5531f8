package models

import "fmt"

// Metadata is the structured result from the external extraction service.
// Field names mirror the service's JSON body.
type Metadata struct {
	URL            string  `json:"url"`
	Ext            string  `json:"ext,omitempty"`
	Title          string  `json:"title,omitempty"`
	Duration       float64 `json:"duration,omitempty"`
	Channel        string  `json:"channel,omitempty"`
	ChannelURL     string  `json:"channel_url,omitempty"`
	UploaderURL    string  `json:"uploader_url,omitempty"`
	FilesizeApprox int64   `json:"filesize_approx,omitempty"`
	Description    string  `json:"description,omitempty"`
	Type           string  `json:"_type,omitempty"`
}

// MetadataServiceError is the non-2xx body shape of the extraction service.
type MetadataServiceError struct {
	Code        int    `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (e *MetadataServiceError) Error() string {
	if e.Description != "" {
		return e.Description
	}
	return fmt.Sprintf("metadata service error %d (%s)", e.Code, e.Name)
}
