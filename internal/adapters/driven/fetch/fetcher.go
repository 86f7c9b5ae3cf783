// Package fetch provides an HTTP content fetcher for URL ingestion.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/claimlens/internal/core/ports/driven"
	"github.com/custodia-labs/claimlens/internal/normalisers/html"
)

// Ensure Fetcher implements the interface.
var _ driven.ContentFetcher = (*Fetcher)(nil)

// Default configuration values.
const (
	DefaultTimeout = 30 * time.Second
	DefaultMaxSize = 10 * 1024 * 1024

	userAgent = "claimlens/1.0"
)

// Config holds configuration for the HTTP fetcher.
type Config struct {
	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration

	// MaxSize caps how many response bytes are read (default: 10 MiB).
	MaxSize int64
}

// Fetcher downloads remote documents over HTTP and reduces HTML pages to
// readable text.
type Fetcher struct {
	client  *http.Client
	maxSize int64
}

// NewFetcher creates a new HTTP content fetcher.
func NewFetcher(cfg Config) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxSize == 0 {
		cfg.MaxSize = DefaultMaxSize
	}

	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		maxSize: cfg.MaxSize,
	}
}

// Fetch downloads the resource at rawURL. HTML responses come back with
// tags stripped and the document title extracted; everything else is
// returned as-is.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*driven.FetchedContent, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html, text/plain, */*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	content := &driven.FetchedContent{
		URL:         resp.Request.URL.String(),
		Body:        string(body),
		ContentType: resp.Header.Get("Content-Type"),
	}

	if isHTMLResponse(content.ContentType, content.Body) {
		content.Title = html.ExtractTitle(content.Body)
		content.Body = html.StripTags(content.Body)
	}

	return content, nil
}

// isHTMLResponse reports whether a response should be treated as HTML,
// trusting the Content-Type header first and sniffing the body when the
// header is absent or generic.
func isHTMLResponse(contentType, body string) bool {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml") {
		return true
	}
	if ct == "" || strings.Contains(ct, "octet-stream") || strings.Contains(ct, "text/plain") {
		return html.IsHTML(body)
	}
	return false
}
