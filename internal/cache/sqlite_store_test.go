package cache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/vredditbot/vredditbot/internal/domain"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"), testLogger())
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	entry := domain.CacheEntry{
		URL:       "https://v.redd.it/abc123",
		SourceURL: "https://www.reddit.com/r/aww/comments/abc/",
		Title:     "a title",
		FileID:    "file-1",
	}

	if err := store.Write(ctx, entry); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, ok, err := store.Read(ctx, entry.URL)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if got != entry {
		t.Errorf("Read = %+v, want %+v", got, entry)
	}
}

func TestSQLiteStore_MissingKey(t *testing.T) {
	store := newTestSQLiteStore(t)

	_, ok, err := store.Read(context.Background(), "https://v.redd.it/nothere")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if ok {
		t.Error("expected a miss for unknown key")
	}
}

func TestSQLiteStore_SkipsWriteWithoutFileID(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	if err := store.Write(ctx, domain.CacheEntry{URL: "https://v.redd.it/abc123"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if _, ok, _ := store.Read(ctx, "https://v.redd.it/abc123"); ok {
		t.Error("entry without file handle must not be persisted")
	}
}

func TestSQLiteStore_LastWriteWins(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	url := "https://v.redd.it/abc123"
	store.Write(ctx, domain.CacheEntry{URL: url, FileID: "first", Title: "old"})
	store.Write(ctx, domain.CacheEntry{URL: url, FileID: "second"})

	got, ok, _ := store.Read(ctx, url)
	if !ok {
		t.Fatal("expected hit")
	}
	if got.FileID != "second" {
		t.Errorf("FileID = %q, want second", got.FileID)
	}
	if got.Title != "" {
		t.Errorf("Title = %q, replacement should not merge old fields", got.Title)
	}
}

func TestSQLiteStore_EmptyURL(t *testing.T) {
	store := newTestSQLiteStore(t)

	if _, ok, err := store.Read(context.Background(), ""); ok || err != nil {
		t.Errorf("Read(\"\") = ok=%v err=%v, want miss", ok, err)
	}
}
