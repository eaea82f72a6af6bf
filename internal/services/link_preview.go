package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"taskchat/internal/domain/chat"
)

const previewBodyLimit = 512 * 1024

var (
	urlPattern   = regexp.MustCompile(`https?://[^\s<>"']+`)
	titlePattern = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	metaPattern  = regexp.MustCompile(`(?is)<meta[^>]+>`)
	propPattern  = regexp.MustCompile(`(?is)(?:property|name)\s*=\s*["']([^"']+)["']`)
	contPattern  = regexp.MustCompile(`(?is)content\s*=\s*["']([^"']*)["']`)
)

// FirstURL returns the first http(s) URL in a text, or empty.
func FirstURL(text string) string {
	return urlPattern.FindString(text)
}

// LinkPreviewFetcher scrapes title and Open Graph tags from a page.
// Successful results are cached by URL for the process lifetime.
type LinkPreviewFetcher struct {
	client *http.Client

	mu    sync.Mutex
	cache map[string]chat.LinkPreview
}

func NewLinkPreviewFetcher(timeout time.Duration) *LinkPreviewFetcher {
	return &LinkPreviewFetcher{
		client: &http.Client{Timeout: timeout},
		cache:  make(map[string]chat.LinkPreview),
	}
}

func (f *LinkPreviewFetcher) Fetch(ctx context.Context, url string) (chat.LinkPreview, error) {
	f.mu.Lock()
	cached, ok := f.cache[url]
	f.mu.Unlock()
	if ok {
		return cached, nil
	}

	preview, err := f.fetch(ctx, url)
	if err != nil {
		return chat.LinkPreview{}, err
	}
	f.mu.Lock()
	f.cache[url] = preview
	f.mu.Unlock()
	return preview, nil
}

func (f *LinkPreviewFetcher) fetch(ctx context.Context, url string) (chat.LinkPreview, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return chat.LinkPreview{}, err
	}
	req.Header.Set("User-Agent", "taskchat-linkpreview/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return chat.LinkPreview{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return chat.LinkPreview{}, fmt.Errorf("link preview: status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "text/html") {
		return chat.LinkPreview{}, fmt.Errorf("link preview: unsupported content type %s", ct)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, previewBodyLimit))
	if err != nil {
		return chat.LinkPreview{}, err
	}

	preview := parsePreview(string(body))
	preview.URL = url
	if preview.Title == "" && preview.Description == "" {
		return chat.LinkPreview{}, fmt.Errorf("link preview: nothing usable at %s", url)
	}
	return preview, nil
}

func parsePreview(html string) chat.LinkPreview {
	var p chat.LinkPreview

	for _, tag := range metaPattern.FindAllString(html, -1) {
		prop := propPattern.FindStringSubmatch(tag)
		content := contPattern.FindStringSubmatch(tag)
		if prop == nil || content == nil {
			continue
		}
		switch strings.ToLower(prop[1]) {
		case "og:title":
			p.Title = strings.TrimSpace(content[1])
		case "og:description", "description":
			if p.Description == "" {
				p.Description = strings.TrimSpace(content[1])
			}
		case "og:image":
			p.ImageURL = strings.TrimSpace(content[1])
		}
	}

	if p.Title == "" {
		if m := titlePattern.FindStringSubmatch(html); m != nil {
			p.Title = strings.TrimSpace(m[1])
		}
	}
	return p
}
