package store

import (
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// DB wraps the sqlite handle. Mutations to the downloads table fire the
// registered change hook so derived state can be recomputed from the latest
// snapshot instead of being maintained in parallel.
type DB struct {
	*sqlx.DB

	mu       sync.RWMutex
	onChange func()
}

func NewSQLiteDB(dsn string) (*DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	// Set pragmas for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=30000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	// Apply schema
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{DB: db}, nil
}

// SetOnChange registers the hook invoked after every successful mutation of
// the downloads table.
func (db *DB) SetOnChange(fn func()) {
	db.mu.Lock()
	db.onChange = fn
	db.mu.Unlock()
}

func (db *DB) notify() {
	db.mu.RLock()
	fn := db.onChange
	db.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (db *DB) Close() error {
	return db.DB.Close()
}
