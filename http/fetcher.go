// Package http provides the HTTP side of synapse: a synapse.Fetcher for
// retrieving pages and the HTTP server exposing capture and search.
package http

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/fwojciec/synapse"
	"golang.org/x/net/html/charset"
)

// DefaultFetchTimeout is the default timeout for HTTP requests.
const DefaultFetchTimeout = 5 * time.Second

// DefaultMaxBodySize caps how much of a response body is read.
const DefaultMaxBodySize = 10 << 20

// DefaultUserAgent identifies the fetcher as a desktop browser. Many sites
// serve stripped or blocked pages to unknown clients.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/58.0.3029.110 Safari/537.36"

// Ensure Fetcher implements synapse.Fetcher at compile time.
var _ synapse.Fetcher = (*Fetcher)(nil)

// Limiter throttles requests per host.
type Limiter interface {
	Wait(ctx context.Context, host string) error
}

// Fetcher retrieves content from URLs using a single HTTP GET per call.
// There are no retries.
type Fetcher struct {
	client      *http.Client
	timeout     time.Duration
	userAgent   string
	maxBodySize int64
	limiter     Limiter
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the timeout for HTTP requests.
// Defaults to DefaultFetchTimeout (5s) if not specified.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithMaxBodySize overrides DefaultMaxBodySize.
func WithMaxBodySize(n int64) Option {
	return func(f *Fetcher) {
		f.maxBodySize = n
	}
}

// WithLimiter waits on l before each request. Time spent waiting does not
// count against the request timeout.
func WithLimiter(l Limiter) Option {
	return func(f *Fetcher) {
		f.limiter = l
	}
}

// NewFetcher creates a new HTTP-based Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout:     DefaultFetchTimeout,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(f)
	}

	f.client = &http.Client{
		Timeout: f.timeout,
	}

	return f
}

// Fetch retrieves the content at rawURL and decodes it to UTF-8.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*synapse.FetchResult, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, synapse.Errorf(synapse.EFETCH, "invalid url %q: %w", rawURL, err)
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, u.Hostname()); err != nil {
			return nil, synapse.Errorf(synapse.EFETCH, "waiting for %s: %w", u.Hostname(), err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, synapse.Errorf(synapse.EFETCH, "creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, synapse.Errorf(synapse.EFETCH, "fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, synapse.Errorf(synapse.EFETCH, "HTTP %d for %s", resp.StatusCode, rawURL)
	}

	contentType := resp.Header.Get("Content-Type")
	r, err := charset.NewReader(io.LimitReader(resp.Body, f.maxBodySize), contentType)
	if err != nil {
		return nil, synapse.Errorf(synapse.EFETCH, "decoding %s: %w", rawURL, err)
	}

	body, err := io.ReadAll(r)
	if err != nil {
		return nil, synapse.Errorf(synapse.EFETCH, "reading %s: %w", rawURL, err)
	}

	return &synapse.FetchResult{
		URL:         resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        body,
	}, nil
}
