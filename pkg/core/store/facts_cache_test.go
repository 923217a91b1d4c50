package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFactsCache_FileTier(t *testing.T) {
	dir := t.TempDir()
	c := NewFactsCache(nil, dir, time.Hour)
	ctx := context.Background()

	if _, err := c.Get(ctx, "0000320193"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("Expected ErrCacheMiss on empty cache, got %v", err)
	}

	payload := []byte(`{"cik":320193,"facts":{}}`)
	if err := c.Put(ctx, "0000320193", payload); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "0000320193.json")); err != nil {
		t.Fatalf("Expected cache file on disk: %v", err)
	}

	got, err := c.Get(ctx, "0000320193")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("Expected %s, got %s", payload, got)
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if len(leftovers) != 0 {
		t.Errorf("Expected no temp files, got %v", leftovers)
	}
}

func TestFactsCache_Expiry(t *testing.T) {
	dir := t.TempDir()
	c := NewFactsCache(nil, dir, time.Hour)
	ctx := context.Background()

	if err := c.Put(ctx, "0000000001", []byte(`{}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := c.Get(ctx, "0000000001"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected expired entry to miss, got %v", err)
	}

	c.ttl = 0
	if _, err := c.Get(ctx, "0000000001"); err != nil {
		t.Errorf("Expected zero TTL to never expire, got %v", err)
	}
}

func TestFactsCache_Disabled(t *testing.T) {
	c := NewFactsCache(nil, "", time.Hour)
	ctx := context.Background()

	if err := c.Put(ctx, "0000000001", []byte(`{}`)); err != nil {
		t.Fatalf("Put on disabled cache should be a no-op, got %v", err)
	}
	if _, err := c.Get(ctx, "0000000001"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}
}

func TestResultRepo_RequiresPool(t *testing.T) {
	r := NewResultRepo(nil)
	if err := r.Save(context.Background(), nil); err == nil {
		t.Error("Expected Save without a pool to fail")
	}
	if _, _, err := r.Load(context.Background(), "0000000001"); err == nil {
		t.Error("Expected Load without a pool to fail")
	}
}
