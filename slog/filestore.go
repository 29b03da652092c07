package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/synapse"
)

// Ensure LoggingFileStore implements synapse.FileStore.
var _ synapse.FileStore = (*LoggingFileStore)(nil)

// LoggingFileStore wraps a FileStore with logging.
type LoggingFileStore struct {
	next   synapse.FileStore
	logger *slog.Logger
}

// NewLoggingFileStore creates a new LoggingFileStore.
func NewLoggingFileStore(next synapse.FileStore, logger *slog.Logger) *LoggingFileStore {
	return &LoggingFileStore{next: next, logger: logger}
}

// Save delegates to the wrapped store and logs the operation.
func (s *LoggingFileStore) Save(ctx context.Context, filename string, data []byte) (location string, err error) {
	defer func(begin time.Time) {
		s.logger.Info("file save",
			"filename", filename,
			"location", location,
			"bytes", len(data),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Save(ctx, filename, data)
}
