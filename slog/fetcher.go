// Package slog provides logging decorators for synapse services.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/synapse"
)

// Ensure LoggingFetcher implements synapse.Fetcher.
var _ synapse.Fetcher = (*LoggingFetcher)(nil)

// LoggingFetcher wraps a Fetcher with logging.
type LoggingFetcher struct {
	next   synapse.Fetcher
	logger *slog.Logger
}

// NewLoggingFetcher creates a new LoggingFetcher.
func NewLoggingFetcher(next synapse.Fetcher, logger *slog.Logger) *LoggingFetcher {
	return &LoggingFetcher{next: next, logger: logger}
}

// Fetch delegates to the wrapped fetcher and logs the operation.
func (f *LoggingFetcher) Fetch(ctx context.Context, url string) (res *synapse.FetchResult, err error) {
	defer func(begin time.Time) {
		var status, size int
		if res != nil {
			status, size = res.StatusCode, len(res.Body)
		}
		f.logger.Info("fetch",
			"url", url,
			"status", status,
			"bytes", size,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return f.next.Fetch(ctx, url)
}
