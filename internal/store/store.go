// Package store is the engine's durable key-value store: a single sqlite
// table of independently-keyed serialized blobs. There is no schema
// versioning — corruption is detected by unmarshal failure at the caller,
// which deletes the record and starts over.
package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "modernc.org/sqlite"
)

// Keys for the engine's logical records.
const (
	KeyPatterns  = "patterns"
	KeyHistory   = "history"
	KeyAccuracy  = "accuracy"
	KeyTapsSaved = "taps_saved"
	KeyInsight   = "weekly_insight"
	KeyWidget    = "widget"
)

//go:embed schema.sql
var schema string

type Store struct {
	conn *sql.DB
}

func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &Store{conn: conn}, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

// Get returns the blob stored under key, or nil if the key has never been
// written. A missing record is not an error.
func (s *Store) Get(key string) ([]byte, error) {
	var value []byte
	err := s.conn.QueryRow("SELECT value FROM records WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting record %q: %w", key, err)
	}
	return value, nil
}

// Put stores or replaces the blob under key in a single write.
func (s *Store) Put(key string, value []byte) error {
	_, err := s.conn.Exec(
		"INSERT INTO records (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = ?, updated_at = datetime('now')",
		key, value, value,
	)
	if err != nil {
		return fmt.Errorf("putting record %q: %w", key, err)
	}
	return nil
}

// Delete removes a record. Deleting a missing key is a no-op.
func (s *Store) Delete(key string) error {
	if _, err := s.conn.Exec("DELETE FROM records WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting record %q: %w", key, err)
	}
	return nil
}
