// Package store persists company facts and extraction results.
// Postgres (pgxpool) is the primary tier; the facts cache falls back to files.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	pool *pgxpool.Pool
	once sync.Once
)

// schema is applied by EnsureSchema. Statements are idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS company_facts (
	cik        TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS metric_extractions (
	cik          TEXT PRIMARY KEY,
	entity_name  TEXT,
	result       JSONB NOT NULL,
	extracted_at TIMESTAMPTZ NOT NULL
);`

// InitDB initializes the shared connection pool from a Postgres URL.
// Subsequent calls return the first result.
func InitDB(ctx context.Context, url string) (*pgxpool.Pool, error) {
	var err error
	once.Do(func() {
		if url == "" {
			err = errors.New("database url not set")
			return
		}

		config, parseErr := pgxpool.ParseConfig(url)
		if parseErr != nil {
			err = fmt.Errorf("failed to parse database config: %w", parseErr)
			return
		}

		pool, err = pgxpool.NewWithConfig(ctx, config)
		if err != nil {
			return
		}
		if err = pool.Ping(ctx); err != nil {
			pool.Close()
			pool = nil
			err = fmt.Errorf("failed to reach database: %w", err)
		}
	})
	if err == nil && pool == nil {
		err = errors.New("database pool not initialized")
	}
	return pool, err
}

// EnsureSchema creates the cache and result tables if they are missing.
func EnsureSchema(ctx context.Context, p *pgxpool.Pool) error {
	if p == nil {
		return errors.New("database pool not initialized")
	}
	if _, err := p.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection pool
func Close() {
	if pool != nil {
		pool.Close()
	}
}
