package metadata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/satchel/internal/common"
	"github.com/ternarybob/satchel/internal/models"
)

func TestClientFetchSuccess(t *testing.T) {
	var gotPath, gotURL, gotFormat string
	var gotUser, gotPass string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotURL = r.URL.Query().Get("url")
		gotFormat = r.URL.Query().Get("format")
		gotUser, gotPass, _ = r.BasicAuth()
		json.NewEncoder(w).Encode(models.Metadata{
			Title:    "An Episode",
			Ext:      "mp3",
			Duration: 1234.5,
		})
	}))
	defer server.Close()

	endpoint, err := url.Parse(server.URL)
	require.NoError(t, err)
	endpoint.User = url.UserPassword("svc", "secret")

	client, err := NewClient(common.ResolverConfig{
		Endpoint:       endpoint.String(),
		RequestTimeout: "5s",
	}, nil)
	require.NoError(t, err)

	md, err := client.Fetch(context.Background(), "https://example.com/show", "audio")
	require.NoError(t, err)

	assert.Equal(t, "/unified", gotPath)
	assert.Equal(t, "https://example.com/show", gotURL)
	assert.Equal(t, "audio", gotFormat)
	assert.Equal(t, "svc", gotUser)
	assert.Equal(t, "secret", gotPass)
	assert.Equal(t, "An Episode", md.Title)
	assert.Equal(t, "mp3", md.Ext)
	assert.Equal(t, "https://example.com/show", md.URL, "url backfilled from request")
}

func TestClientFetchServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"code":        502,
			"name":        "UpstreamUnavailable",
			"description": "extractor backend is down",
		})
	}))
	defer server.Close()

	client, err := NewClient(common.ResolverConfig{Endpoint: server.URL}, nil)
	require.NoError(t, err)

	_, err = client.Fetch(context.Background(), "https://example.com/show", "video")
	require.Error(t, err)

	var svcErr *models.MetadataServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "extractor backend is down", svcErr.Description)
	assert.Equal(t, "UpstreamUnavailable", svcErr.Name)
}

func TestClientFetchNonJSONError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("gateway timeout"))
	}))
	defer server.Close()

	client, err := NewClient(common.ResolverConfig{Endpoint: server.URL}, nil)
	require.NoError(t, err)

	_, err = client.Fetch(context.Background(), "https://example.com/show", "audio")
	require.Error(t, err)

	var svcErr *models.MetadataServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, http.StatusServiceUnavailable, svcErr.Code)
	assert.NotEmpty(t, svcErr.Description)
}

func TestNewClientRejectsRelativeEndpoint(t *testing.T) {
	_, err := NewClient(common.ResolverConfig{Endpoint: "/not/absolute"}, nil)
	require.Error(t, err)
}
