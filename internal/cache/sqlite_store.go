package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/vredditbot/vredditbot/internal/domain"
)

// SQLiteStore persists cache entries in a single SQLite table, one row per
// content URL.
type SQLiteStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewSQLiteStore opens (or creates) the database at path and ensures the
// schema exists.
func NewSQLiteStore(path string, logger zerolog.Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS video_cache (
			url        TEXT PRIMARY KEY,
			source_url TEXT NOT NULL DEFAULT '',
			title      TEXT NOT NULL DEFAULT '',
			file_id    TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Read returns the entry for url, if one was persisted.
func (s *SQLiteStore) Read(ctx context.Context, url string) (domain.CacheEntry, bool, error) {
	if url == "" {
		return domain.CacheEntry{}, false, nil
	}

	entry := domain.CacheEntry{URL: url}
	err := s.db.QueryRowContext(ctx,
		`SELECT source_url, title, file_id FROM video_cache WHERE url = ?`, url,
	).Scan(&entry.SourceURL, &entry.Title, &entry.FileID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CacheEntry{}, false, nil
	}
	if err != nil {
		return domain.CacheEntry{}, false, fmt.Errorf("read cache entry: %w", err)
	}

	s.logger.Debug().Str("url", url).Str("file_id", entry.FileID).Msg("cache hit")
	return entry, true, nil
}

// Write upserts the entry. Entries without a file handle are skipped.
func (s *SQLiteStore) Write(ctx context.Context, entry domain.CacheEntry) error {
	if entry.FileID == "" {
		return nil
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO video_cache (url, source_url, title, file_id, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(url) DO UPDATE SET
			source_url = excluded.source_url,
			title      = excluded.title,
			file_id    = excluded.file_id,
			updated_at = CURRENT_TIMESTAMP
	`, entry.URL, entry.SourceURL, entry.Title, entry.FileID)
	if err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}

	s.logger.Debug().Str("url", entry.URL).Str("file_id", entry.FileID).Msg("cache entry saved")
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
