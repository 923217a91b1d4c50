package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"filing_metrics/pkg/core/pipeline"
)

// ResultRepo stores the latest extraction result per CIK.
type ResultRepo struct {
	pool *pgxpool.Pool
}

// NewResultRepo creates a new repository instance.
func NewResultRepo(pool *pgxpool.Pool) *ResultRepo {
	return &ResultRepo{pool: pool}
}

// Save upserts the extraction result for m.CIK.
func (r *ResultRepo) Save(ctx context.Context, m *pipeline.Metrics) error {
	if r.pool == nil {
		return errors.New("database pool not initialized")
	}
	if m == nil || m.CIK == "" {
		return errors.New("result has no CIK")
	}

	jsonData, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO metric_extractions (cik, entity_name, result, extracted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cik)
		DO UPDATE SET
			entity_name = EXCLUDED.entity_name,
			result = EXCLUDED.result,
			extracted_at = EXCLUDED.extracted_at`,
		m.CIK, m.EntityName, jsonData, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}
	return nil
}

// Load returns the stored result JSON for a CIK and when it was produced.
func (r *ResultRepo) Load(ctx context.Context, cik string) (json.RawMessage, time.Time, error) {
	if r.pool == nil {
		return nil, time.Time{}, errors.New("database pool not initialized")
	}

	var (
		data []byte
		at   time.Time
	)
	err := r.pool.QueryRow(ctx,
		`SELECT result, extracted_at FROM metric_extractions WHERE cik = $1`, cik,
	).Scan(&data, &at)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, time.Time{}, fmt.Errorf("no result for CIK %s: %w", cik, ErrCacheMiss)
		}
		return nil, time.Time{}, fmt.Errorf("failed to load result: %w", err)
	}
	return data, at, nil
}
