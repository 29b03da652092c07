package slog

import (
	"log/slog"
	"time"

	"github.com/fwojciec/synapse"
)

// Ensure LoggingExtractor implements synapse.Extractor.
var _ synapse.Extractor = (*LoggingExtractor)(nil)

// LoggingExtractor wraps an Extractor with debug logging.
type LoggingExtractor struct {
	next   synapse.Extractor
	logger *slog.Logger
}

// NewLoggingExtractor creates a new LoggingExtractor.
func NewLoggingExtractor(next synapse.Extractor, logger *slog.Logger) *LoggingExtractor {
	return &LoggingExtractor{next: next, logger: logger}
}

// Extract delegates to the wrapped extractor and logs the operation.
func (e *LoggingExtractor) Extract(body []byte) (res *synapse.ExtractResult, err error) {
	defer func(begin time.Time) {
		var title string
		var size int
		if res != nil {
			title, size = res.Title, len(res.Content)
		}
		e.logger.Debug("extract",
			"title", title,
			"in_bytes", len(body),
			"out_bytes", size,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return e.next.Extract(body)
}
