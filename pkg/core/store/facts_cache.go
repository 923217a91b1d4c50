package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrCacheMiss is returned when no fresh entry exists for a CIK.
var ErrCacheMiss = errors.New("cache miss")

// FactsCache stores raw companyfacts payloads keyed by padded CIK.
// Supports a DB tier (primary) and a file tier (<dir>/<cik>.json, fallback/local).
// Entries older than the TTL are misses; a zero TTL never expires.
type FactsCache struct {
	pool    *pgxpool.Pool
	fileDir string
	ttl     time.Duration
	now     func() time.Time
}

// NewFactsCache creates a cache. A nil pool and empty dir yields a cache that always misses.
func NewFactsCache(pool *pgxpool.Pool, dir string, ttl time.Duration) *FactsCache {
	return &FactsCache{pool: pool, fileDir: dir, ttl: ttl, now: time.Now}
}

// Get returns the cached payload, or ErrCacheMiss.
func (c *FactsCache) Get(ctx context.Context, cik string) ([]byte, error) {
	// 1. Try DB
	if c.pool != nil {
		var (
			data      []byte
			fetchedAt time.Time
		)
		err := c.pool.QueryRow(ctx,
			`SELECT payload, fetched_at FROM company_facts WHERE cik = $1`, cik,
		).Scan(&data, &fetchedAt)
		switch {
		case err == nil:
			if c.fresh(fetchedAt) {
				return data, nil
			}
		case errors.Is(err, pgx.ErrNoRows):
		default:
			return nil, fmt.Errorf("failed to read facts cache: %w", err)
		}
	}

	// 2. Try File System
	if c.fileDir != "" {
		path := c.path(cik)
		info, err := os.Stat(path)
		if err != nil || !c.fresh(info.ModTime()) {
			return nil, ErrCacheMiss
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return data, nil
	}

	return nil, ErrCacheMiss
}

// Put stores a payload in every configured tier.
func (c *FactsCache) Put(ctx context.Context, cik string, data []byte) error {
	if c.pool != nil {
		_, err := c.pool.Exec(ctx, `
			INSERT INTO company_facts (cik, payload, fetched_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (cik)
			DO UPDATE SET payload = EXCLUDED.payload, fetched_at = EXCLUDED.fetched_at`,
			cik, data, c.now(),
		)
		if err != nil {
			return fmt.Errorf("failed to save to db cache: %w", err)
		}
	}

	if c.fileDir != "" {
		if err := os.MkdirAll(c.fileDir, 0o755); err != nil {
			return fmt.Errorf("failed to create cache dir: %w", err)
		}
		// Write then rename so concurrent readers never see a partial file.
		tmp, err := os.CreateTemp(c.fileDir, cik+".*.tmp")
		if err != nil {
			return fmt.Errorf("failed to save to file cache: %w", err)
		}
		if _, err := tmp.Write(data); err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return fmt.Errorf("failed to save to file cache: %w", err)
		}
		tmp.Close()
		if err := os.Rename(tmp.Name(), c.path(cik)); err != nil {
			os.Remove(tmp.Name())
			return fmt.Errorf("failed to save to file cache: %w", err)
		}
	}
	return nil
}

func (c *FactsCache) fresh(at time.Time) bool {
	return c.ttl <= 0 || c.now().Sub(at) < c.ttl
}

func (c *FactsCache) path(cik string) string {
	return filepath.Join(c.fileDir, cik+".json")
}
