// Package cache persists video post records keyed by content URL.
package cache

import (
	"context"

	"github.com/vredditbot/vredditbot/internal/domain"
)

// Store is a key-value store of cache entries keyed by the resolved video
// URL. Implementations must skip writes whose FileID is empty: an entry
// without a confirmed upload is not worth persisting and will simply be
// re-derived next time.
//
// A failing store must degrade to always-miss, never hard failure: callers
// treat a Read error as a miss and a Write error as a logged no-op.
type Store interface {
	// Read returns the entry for url and whether one exists.
	Read(ctx context.Context, url string) (domain.CacheEntry, bool, error)

	// Write persists the entry, replacing any previous record for the same
	// URL. Writes are idempotent replacements; concurrent writes to the
	// same key are last-write-wins.
	Write(ctx context.Context, entry domain.CacheEntry) error
}

// Noop is a Store that never hits and never persists. Used when caching is
// disabled or the backing store could not be opened.
type Noop struct{}

func (Noop) Read(ctx context.Context, url string) (domain.CacheEntry, bool, error) {
	return domain.CacheEntry{}, false, nil
}

func (Noop) Write(ctx context.Context, entry domain.CacheEntry) error {
	return nil
}
