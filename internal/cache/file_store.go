package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/vredditbot/vredditbot/internal/domain"
	"github.com/vredditbot/vredditbot/pkg/filenamify"
)

// FileStore persists cache entries as one JSON file per content URL.
type FileStore struct {
	dir    string
	logger zerolog.Logger
}

// NewFileStore creates the cache directory if needed.
func NewFileStore(dir string, logger zerolog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

func (s *FileStore) path(url string) string {
	return filepath.Join(s.dir, filenamify.Safe(url)+".json")
}

// Read returns the entry for url, if one was persisted.
func (s *FileStore) Read(ctx context.Context, url string) (domain.CacheEntry, bool, error) {
	if url == "" {
		return domain.CacheEntry{}, false, nil
	}

	data, err := os.ReadFile(s.path(url))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.CacheEntry{}, false, nil
	}
	if err != nil {
		return domain.CacheEntry{}, false, fmt.Errorf("read cache entry: %w", err)
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		// A corrupt record is treated as a miss; the next successful
		// upload rewrites it.
		s.logger.Warn().Str("url", url).Err(err).Msg("corrupt cache entry ignored")
		return domain.CacheEntry{}, false, nil
	}

	entry.URL = url
	s.logger.Debug().Str("url", url).Str("file_id", entry.FileID).Msg("cache hit")
	return entry, true, nil
}

// Write persists the entry. Entries without a file handle are skipped.
func (s *FileStore) Write(ctx context.Context, entry domain.CacheEntry) error {
	if entry.FileID == "" {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := os.WriteFile(s.path(entry.URL), data, 0644); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}

	s.logger.Debug().Str("url", entry.URL).Str("file_id", entry.FileID).Msg("cache entry saved")
	return nil
}
