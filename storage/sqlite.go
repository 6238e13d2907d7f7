package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aouyang1/go-riverforecast/metrics"
)

const artifactSchema = `
CREATE TABLE IF NOT EXISTS artifacts (
    key TEXT PRIMARY KEY,
    data BLOB NOT NULL,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// SQLiteDispatcher stores keys as rows of a single artifacts table
type SQLiteDispatcher struct {
	db *sql.DB
}

// NewSQLiteDispatcher stores objects in db. Call Migrate before first use.
func NewSQLiteDispatcher(db *sql.DB) *SQLiteDispatcher {
	return &SQLiteDispatcher{db: db}
}

// Migrate creates the objects table if needed
func (s *SQLiteDispatcher) Migrate() error {
	if _, err := s.db.Exec(artifactSchema); err != nil {
		return fmt.Errorf("unable to migrate artifacts table, %w", err)
	}
	return nil
}

// Upload inserts or replaces the object of key
func (s *SQLiteDispatcher) Upload(ctx context.Context, key string, data []byte) (err error) {
	defer func() {
		metrics.StorageOpsTotal.WithLabelValues("sqlite", "upload", metrics.Status(err)).Inc()
	}()

	if key == "" {
		return ErrInvalidKey
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO artifacts (key, data, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`, key, data)
	if err != nil {
		return fmt.Errorf("unable to upload %s, %w", key, err)
	}
	return nil
}

// Download returns the object of key or ErrNotFound
func (s *SQLiteDispatcher) Download(ctx context.Context, key string) (data []byte, err error) {
	defer func() {
		metrics.StorageOpsTotal.WithLabelValues("sqlite", "download", metrics.Status(err)).Inc()
	}()

	err = s.db.QueryRowContext(ctx, `SELECT data FROM artifacts WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s, %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to download %s, %w", key, err)
	}
	return data, nil
}

// Keys lists the stored keys beginning with prefix in lexical order
func (s *SQLiteDispatcher) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM artifacts WHERE substr(key, 1, ?) = ? ORDER BY key`, len(prefix), prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
