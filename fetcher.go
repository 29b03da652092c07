package synapse

import "context"

// FetchResult holds the response of a successful fetch.
type FetchResult struct {
	URL         string
	StatusCode  int
	ContentType string

	// Body is the response body decoded to UTF-8.
	Body []byte
}

// Fetcher retrieves raw content from URLs.
type Fetcher interface {
	// Fetch performs a single GET request. Timeouts, connection failures
	// and 4xx/5xx responses are reported as EFETCH errors.
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}
