package sqlite

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/synapse"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var (
	_ synapse.ItemService = (*ItemService)(nil)
	_ synapse.ItemSession = (*Session)(nil)
)

const itemColumns = "id, url, title, content, item_type, content_hash, created_at"

// ItemService implements synapse.ItemService using SQLite.
type ItemService struct {
	q querier
}

// NewItemService creates a new ItemService backed by the connection pool.
// Background work should use DB.OpenSession instead.
func NewItemService(db *DB) *ItemService {
	return &ItemService{q: db}
}

// hashContent computes xxHash of content and returns hex string.
func hashContent(content string) string {
	var b [8]byte
	h := xxhash.Sum64String(content)
	for i := range b {
		b[i] = byte(h >> (56 - 8*i))
	}
	return hex.EncodeToString(b[:])
}

// CreateItem persists a new item, assigning ID and CreatedAt when unset.
func (s *ItemService) CreateItem(ctx context.Context, item *synapse.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}

	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	item.ContentHash = hashContent(item.Content)

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, item.ID, item.URL, item.Title, item.Content, string(item.Type), item.ContentHash,
		item.CreatedAt.UnixNano())
	if err != nil {
		return synapse.Errorf(synapse.ESTORE, "inserting item: %w", err)
	}
	return nil
}

// FindItemByID retrieves an item by ID.
func (s *ItemService) FindItemByID(ctx context.Context, id string) (*synapse.Item, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE id = ?
	`, id)

	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, synapse.Errorf(synapse.ENOTFOUND, "item not found")
	}
	if err != nil {
		return nil, synapse.Errorf(synapse.ESTORE, "finding item: %w", err)
	}
	return item, nil
}

// FindItemByURL retrieves the most recent item captured from url.
func (s *ItemService) FindItemByURL(ctx context.Context, url string) (*synapse.Item, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE url = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`, url)

	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, synapse.Errorf(synapse.ENOTFOUND, "no item for url %q", url)
	}
	if err != nil {
		return nil, synapse.Errorf(synapse.ESTORE, "finding item: %w", err)
	}
	return item, nil
}

// FindItems retrieves items matching the filter, newest first.
// SQLite LIKE folds case for ASCII letters only.
func (s *ItemService) FindItems(ctx context.Context, filter synapse.ItemFilter) ([]*synapse.Item, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT " + itemColumns + " FROM items WHERE 1=1")

	if filter.Query != "" {
		pattern := containsPattern(filter.Query)
		query.WriteString(` AND (title LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if filter.Type != nil {
		query.WriteString(" AND item_type = ?")
		args = append(args, string(*filter.Type))
	}

	query.WriteString(" ORDER BY created_at DESC, rowid DESC")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.q.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, synapse.Errorf(synapse.ESTORE, "searching items: %w", err)
	}
	defer rows.Close()

	var items []*synapse.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, synapse.Errorf(synapse.ESTORE, "searching items: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, synapse.Errorf(synapse.ESTORE, "searching items: %w", err)
	}
	return items, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (*synapse.Item, error) {
	var item synapse.Item
	var itemType string
	var createdAt int64

	if err := row.Scan(&item.ID, &item.URL, &item.Title, &item.Content, &itemType,
		&item.ContentHash, &createdAt); err != nil {
		return nil, err
	}

	item.Type = synapse.ItemType(itemType)
	item.CreatedAt = time.Unix(0, createdAt).UTC()
	return &item, nil
}
