// Package dayone reads the Day One journal database. The store is strictly
// read-only and memoizes every lookup for the lifetime of one export run.
package dayone

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/dayone2md/internal/models"
)

// Reader is the set of queries the exporter consumes.
type Reader interface {
	EntryIDs(ctx context.Context) ([]int64, error)
	EntryByID(ctx context.Context, id int64) (*models.Entry, error)
	EntryByUUID(ctx context.Context, uuid string) (*models.Entry, error)
	Weather(ctx context.Context, id int64) (*models.Weather, error)
	Location(ctx context.Context, id int64) (*models.Location, error)
	Tag(ctx context.Context, id int64) (*models.Tag, error)
	EntryTagIDs(ctx context.Context, entryID int64) ([]int64, error)
	Attachment(ctx context.Context, identifier string) (*models.Attachment, error)
	Close() error
}

// Verify *Store satisfies Reader at compile time.
var _ Reader = (*Store)(nil)

// Store wraps a read-only sql.DB with a per-run lookup cache.
// It is not safe for concurrent use.
type Store struct {
	conn  *sql.DB
	cache *cache
}

// Open opens the database at path in read-only mode.
func Open(path string) (*Store, error) {
	params := url.Values{}
	params.Add("mode", "ro")
	params.Add("_busy_timeout", "5000")

	dsn := "file:" + path + "?" + params.Encode()
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("dayone: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("dayone: ping: %w", err)
	}
	return &Store{conn: conn, cache: newCache()}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}
