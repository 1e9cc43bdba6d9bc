package simmatch

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const indexSchema = `
CREATE TABLE IF NOT EXISTS bk_index (
	checksum TEXT PRIMARY KEY,
	version INTEGER NOT NULL,
	payload BLOB NOT NULL,
	created_at TIMESTAMP NOT NULL
);
`

// SQLiteIndexCache keeps encoded indexes in a single SQLite database.
type SQLiteIndexCache struct {
	db *sql.DB
}

// OpenSQLiteIndexCache opens or creates the database at path.
func OpenSQLiteIndexCache(path string) (*SQLiteIndexCache, error) {
	if path == "" {
		return nil, errors.New("sqlite index cache requires a path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create index cache dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open index cache: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}
	if _, err := db.Exec(indexSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index schema: %w", err)
	}
	return &SQLiteIndexCache{db: db}, nil
}

// Load returns the payload stored for checksum at the current version.
func (c *SQLiteIndexCache) Load(checksum string) ([]byte, bool) {
	var (
		version int
		payload []byte
	)
	row := c.db.QueryRow(`SELECT version, payload FROM bk_index WHERE checksum = ?`, checksum)
	if err := row.Scan(&version, &payload); err != nil {
		return nil, false
	}
	if version != IndexVersion {
		return nil, false
	}
	return payload, true
}

// Store inserts or replaces the payload for checksum.
func (c *SQLiteIndexCache) Store(checksum string, payload []byte) error {
	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO bk_index (checksum, version, payload, created_at) VALUES (?, ?, ?, ?)`,
		checksum, IndexVersion, payload, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("store index: %w", err)
	}
	return nil
}

// Close closes the database.
func (c *SQLiteIndexCache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}
