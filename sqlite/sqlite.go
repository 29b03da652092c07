// Package sqlite provides SQLite-based storage implementations for synapse services.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fwojciec/synapse"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DefaultMaxOpenConns bounds the connection pool of file-based databases.
const DefaultMaxOpenConns = 8

// Ensure DB implements synapse.ItemStore at compile time.
var _ synapse.ItemStore = (*DB)(nil)

// DB represents a SQLite database connection pool.
type DB struct {
	db   *sql.DB
	path string

	// MaxOpenConns bounds concurrent sessions. Set before calling Open.
	// In-memory databases always use a single connection because every
	// connection to ":memory:" opens a separate database.
	MaxOpenConns int
}

// NewDB creates a new DB instance with the given path.
// Use ":memory:" for an in-memory database.
func NewDB(path string) *DB {
	return &DB{path: path, MaxOpenConns: DefaultMaxOpenConns}
}

// Open opens the database connection and creates the schema if needed.
func (db *DB) Open() error {
	conn, err := sql.Open("sqlite3", db.dsn())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if db.inMemory() {
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(max(db.MaxOpenConns, 1))
	}

	// Verify connection
	if err := conn.Ping(); err != nil {
		conn.Close()
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// WAL lets searches read while a capture writes. The journal mode is
	// stored in the database file, so setting it once is enough.
	// WAL mode is not supported for in-memory databases.
	if !db.inMemory() {
		if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
			conn.Close()
			return fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	} else if _, err := conn.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}

	db.db = conn

	// Create schema
	if err := db.createSchema(); err != nil {
		conn.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.db != nil {
		return db.db.Close()
	}
	return nil
}

// Ping verifies the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.db.PingContext(ctx); err != nil {
		return synapse.Errorf(synapse.ESTORE, "ping: %w", err)
	}
	return nil
}

// OpenSession reserves a dedicated connection from the pool.
// The session must be closed to return the connection.
func (db *DB) OpenSession(ctx context.Context) (synapse.ItemSession, error) {
	conn, err := db.db.Conn(ctx)
	if err != nil {
		return nil, synapse.Errorf(synapse.ESTORE, "opening session: %w", err)
	}
	return &Session{ItemService: &ItemService{q: conn}, conn: conn}, nil
}

// ForEachURL calls fn once for every distinct captured URL.
func (db *DB) ForEachURL(ctx context.Context, fn func(url string)) error {
	rows, err := db.db.QueryContext(ctx, "SELECT DISTINCT url FROM items")
	if err != nil {
		return synapse.Errorf(synapse.ESTORE, "listing urls: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return synapse.Errorf(synapse.ESTORE, "listing urls: %w", err)
		}
		fn(url)
	}
	return rows.Err()
}

// QueryRowContext executes a query that returns a single row.
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.db.QueryRowContext(ctx, query, args...)
}

// QueryContext executes a query that returns rows.
func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

// ExecContext executes a statement that doesn't return rows.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.db.ExecContext(ctx, query, args...)
}

// Stats returns database statistics.
func (db *DB) Stats() sql.DBStats {
	return db.db.Stats()
}

func (db *DB) inMemory() bool {
	return db.path == ":memory:"
}

// dsn returns the data source name. File databases get their per-connection
// pragmas through the URI so that every pooled connection carries them.
func (db *DB) dsn() string {
	if db.inMemory() {
		return db.path
	}
	return "file:" + db.path + "?_pragma=busy_timeout(5000)"
}

// createSchema creates the database tables if they don't exist.
// url is indexed but deliberately not unique; dedup happens before insert.
func (db *DB) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS items (
			id TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			item_type TEXT NOT NULL CHECK (item_type IN ('ARTICLE', 'VIDEO', 'PRODUCT', 'NOTE', 'ERROR')),
			content_hash TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_items_url ON items(url);
		CREATE INDEX IF NOT EXISTS idx_items_created_at ON items(created_at DESC);
	`

	_, err := db.db.Exec(schema)
	return err
}

// Session is an ItemService bound to a single reserved connection.
type Session struct {
	*ItemService
	conn *sql.Conn
}

// Close returns the connection to the pool.
func (s *Session) Close() error {
	return s.conn.Close()
}
