package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstURL(t *testing.T) {
	assert.Equal(t, "https://example.com/doc", FirstURL("see https://example.com/doc for details"))
	assert.Equal(t, "http://a.io", FirstURL("http://a.io then https://b.io"))
	assert.Empty(t, FirstURL("nothing to see here"))
}

func TestLinkPreviewFetcher_ParsesOpenGraph(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><head>
			<title>Fallback Title</title>
			<meta property="og:title" content="Launch Plan" />
			<meta property="og:description" content="Q3 rollout schedule" />
			<meta property="og:image" content="https://cdn.example.com/cover.png" />
		</head><body>hi</body></html>`))
	}))
	defer srv.Close()

	preview, err := NewLinkPreviewFetcher(time.Second).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, srv.URL, preview.URL)
	assert.Equal(t, "Launch Plan", preview.Title)
	assert.Equal(t, "Q3 rollout schedule", preview.Description)
	assert.Equal(t, "https://cdn.example.com/cover.png", preview.ImageURL)
}

func TestLinkPreviewFetcher_FallsBackToTitleTag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>Plain Page</title></head></html>`))
	}))
	defer srv.Close()

	preview, err := NewLinkPreviewFetcher(time.Second).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Plain Page", preview.Title)
}

func TestLinkPreviewFetcher_CachesByURL(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>Cached</title></head></html>`))
	}))
	defer srv.Close()

	f := NewLinkPreviewFetcher(time.Second)
	for i := 0; i < 3; i++ {
		preview, err := f.Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, "Cached", preview.Title)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestLinkPreviewFetcher_RejectsNonHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	_, err := NewLinkPreviewFetcher(time.Second).Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestLinkPreviewFetcher_RejectsNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := NewLinkPreviewFetcher(time.Second).Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
}
