package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/synapse"
)

// Ensure LoggingItemService implements synapse.ItemService.
var _ synapse.ItemService = (*LoggingItemService)(nil)

// LoggingItemService wraps an ItemService with logging. Writes are logged at
// info level, reads at debug level.
type LoggingItemService struct {
	next   synapse.ItemService
	logger *slog.Logger
}

// NewLoggingItemService creates a new LoggingItemService.
func NewLoggingItemService(next synapse.ItemService, logger *slog.Logger) *LoggingItemService {
	return &LoggingItemService{next: next, logger: logger}
}

// CreateItem delegates to the wrapped service and logs the operation.
func (s *LoggingItemService) CreateItem(ctx context.Context, item *synapse.Item) (err error) {
	defer func(begin time.Time) {
		if item == nil {
			return
		}
		s.logger.Info("create item",
			"id", item.ID,
			"url", item.URL,
			"type", item.Type,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.CreateItem(ctx, item)
}

// FindItemByID delegates to the wrapped service and logs the operation.
func (s *LoggingItemService) FindItemByID(ctx context.Context, id string) (item *synapse.Item, err error) {
	defer func(begin time.Time) {
		s.logger.Debug("find item by id",
			"id", id,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.FindItemByID(ctx, id)
}

// FindItemByURL delegates to the wrapped service and logs the operation.
func (s *LoggingItemService) FindItemByURL(ctx context.Context, url string) (item *synapse.Item, err error) {
	defer func(begin time.Time) {
		s.logger.Debug("find item by url",
			"url", url,
			"found", item != nil,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.FindItemByURL(ctx, url)
}

// FindItems delegates to the wrapped service and logs the operation.
func (s *LoggingItemService) FindItems(ctx context.Context, filter synapse.ItemFilter) (items []*synapse.Item, err error) {
	defer func(begin time.Time) {
		s.logger.Debug("find items",
			"query", filter.Query,
			"count", len(items),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.FindItems(ctx, filter)
}

// Ensure LoggingItemStore implements synapse.ItemStore.
var _ synapse.ItemStore = (*LoggingItemStore)(nil)

// LoggingItemStore wraps an ItemStore so that every session it opens logs
// through a LoggingItemService.
type LoggingItemStore struct {
	next   synapse.ItemStore
	logger *slog.Logger
}

// NewLoggingItemStore creates a new LoggingItemStore.
func NewLoggingItemStore(next synapse.ItemStore, logger *slog.Logger) *LoggingItemStore {
	return &LoggingItemStore{next: next, logger: logger}
}

// OpenSession opens a session on the wrapped store.
func (s *LoggingItemStore) OpenSession(ctx context.Context) (synapse.ItemSession, error) {
	session, err := s.next.OpenSession(ctx)
	if err != nil {
		s.logger.Error("open session", "err", err)
		return nil, err
	}
	return &loggingSession{
		LoggingItemService: NewLoggingItemService(session, s.logger),
		session:            session,
	}, nil
}

type loggingSession struct {
	*LoggingItemService
	session synapse.ItemSession
}

func (s *loggingSession) Close() error {
	return s.session.Close()
}
