// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package guard

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/records-router/pkg/types"
)

// SQLiteStore backs the response cache with a SQLite database so cached
// provider responses survive process restarts. The in-memory cache
// fronts it; the store is only consulted on a memory miss.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens or creates the cache database at path, creating
// parent directories and the schema as needed.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	const schema = `CREATE TABLE IF NOT EXISTS responses (
		key TEXT PRIMARY KEY,
		provider_id TEXT NOT NULL,
		payload BLOB NOT NULL,
		stored_at INTEGER NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Get returns the response stored under key, or (nil, nil) when absent
// or stored before notBefore.
func (s *SQLiteStore) Get(key string, notBefore time.Time) (*types.ProviderResult, error) {
	var payload []byte
	err := s.db.QueryRow(
		`SELECT payload FROM responses WHERE key = ? AND stored_at >= ?`,
		key, notBefore.Unix(),
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache entry: %w", err)
	}

	var res types.ProviderResult
	if err := json.Unmarshal(payload, &res); err != nil {
		// A corrupt entry is a miss, not a failure.
		return nil, nil
	}
	return &res, nil
}

// Put upserts the response under key. Expired rows for the same provider
// are pruned opportunistically on each write.
func (s *SQLiteStore) Put(key string, res *types.ProviderResult, storedAt time.Time) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO responses (key, provider_id, payload, stored_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, stored_at = excluded.stored_at`,
		key, res.ProviderID, payload, storedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Prune deletes entries stored before cutoff and reports how many rows
// were removed.
func (s *SQLiteStore) Prune(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM responses WHERE stored_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("pruning cache: %w", err)
	}
	return res.RowsAffected()
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
