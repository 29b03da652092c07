package synapse

import (
	"context"
	"time"
)

// ItemType is the coarse classification of a captured item.
type ItemType string

// ItemType constants.
const (
	ItemTypeArticle ItemType = "ARTICLE"
	ItemTypeVideo   ItemType = "VIDEO"
	ItemTypeProduct ItemType = "PRODUCT"
	ItemTypeNote    ItemType = "NOTE"
	ItemTypeError   ItemType = "ERROR"
)

// Valid reports whether t is one of the enumerated item types.
func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeArticle, ItemTypeVideo, ItemTypeProduct, ItemTypeNote, ItemTypeError:
		return true
	}
	return false
}

// Item represents a single captured memory. Items are immutable once stored.
type Item struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Type        ItemType  `json:"itemType"`
	ContentHash string    `json:"contentHash,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Validate returns an error if the item contains invalid fields.
func (i *Item) Validate() error {
	if i.URL == "" {
		return Errorf(EINVALID, "item URL required")
	}
	if i.Title == "" {
		return Errorf(EINVALID, "item title required")
	}
	if i.Content == "" {
		return Errorf(EINVALID, "item content required")
	}
	if !i.Type.Valid() {
		return Errorf(EINVALID, "invalid item type %q", i.Type)
	}
	return nil
}

// ItemService represents a service for storing and querying items.
// There is no update or delete path.
type ItemService interface {
	// CreateItem persists a new item. ID and CreatedAt are assigned when unset.
	CreateItem(ctx context.Context, item *Item) error

	// FindItemByID retrieves an item by ID.
	// Returns ENOTFOUND if the item does not exist.
	FindItemByID(ctx context.Context, id string) (*Item, error)

	// FindItemByURL retrieves the most recent item captured from url.
	// Returns ENOTFOUND if the URL has never been captured.
	FindItemByURL(ctx context.Context, url string) (*Item, error)

	// FindItems retrieves items matching the filter, newest first.
	FindItems(ctx context.Context, filter ItemFilter) ([]*Item, error)
}

// ItemFilter represents a filter for FindItems.
type ItemFilter struct {
	// Query is matched as a case-insensitive substring of title or content.
	// An empty query matches every item.
	Query string `json:"q"`

	Type *ItemType `json:"itemType"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// ItemSession is an ItemService bound to its own storage connection.
// Sessions are not safe for concurrent use and must be closed.
type ItemSession interface {
	ItemService
	Close() error
}

// ItemStore hands out isolated sessions so that concurrent units of work
// never share connection or transaction state.
type ItemStore interface {
	OpenSession(ctx context.Context) (ItemSession, error)
}
