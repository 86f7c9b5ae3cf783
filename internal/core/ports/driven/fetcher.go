package driven

import "context"

// ContentFetcher retrieves remote content for URL ingestion.
// This is an optional service - when nil, only text and file ingestion work.
type ContentFetcher interface {
	// Fetch downloads the resource at url and returns its content.
	Fetch(ctx context.Context, url string) (*FetchedContent, error)
}

// FetchedContent is the result of fetching a remote resource.
type FetchedContent struct {
	// URL is the final URL after redirects.
	URL string

	// Body is the raw response body.
	Body string

	// ContentType is the Content-Type header value, e.g. "text/html".
	ContentType string

	// Title is the document title when one could be determined, else empty.
	Title string
}
