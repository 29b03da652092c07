package mock

import (
	"context"

	"github.com/fwojciec/synapse"
)

var (
	_ synapse.ItemService = (*ItemService)(nil)
	_ synapse.ItemSession = (*ItemSession)(nil)
	_ synapse.ItemStore   = (*ItemStore)(nil)
)

// ItemService is a mock implementation of synapse.ItemService.
type ItemService struct {
	CreateItemFn    func(ctx context.Context, item *synapse.Item) error
	FindItemByIDFn  func(ctx context.Context, id string) (*synapse.Item, error)
	FindItemByURLFn func(ctx context.Context, url string) (*synapse.Item, error)
	FindItemsFn     func(ctx context.Context, filter synapse.ItemFilter) ([]*synapse.Item, error)
}

func (s *ItemService) CreateItem(ctx context.Context, item *synapse.Item) error {
	return s.CreateItemFn(ctx, item)
}

func (s *ItemService) FindItemByID(ctx context.Context, id string) (*synapse.Item, error) {
	return s.FindItemByIDFn(ctx, id)
}

func (s *ItemService) FindItemByURL(ctx context.Context, url string) (*synapse.Item, error) {
	return s.FindItemByURLFn(ctx, url)
}

func (s *ItemService) FindItems(ctx context.Context, filter synapse.ItemFilter) ([]*synapse.Item, error) {
	return s.FindItemsFn(ctx, filter)
}

// ItemSession is a mock implementation of synapse.ItemSession.
type ItemSession struct {
	ItemService
	CloseFn func() error
}

func (s *ItemSession) Close() error {
	return s.CloseFn()
}

// ItemStore is a mock implementation of synapse.ItemStore.
type ItemStore struct {
	OpenSessionFn func(ctx context.Context) (synapse.ItemSession, error)
}

func (s *ItemStore) OpenSession(ctx context.Context) (synapse.ItemSession, error) {
	return s.OpenSessionFn(ctx)
}
