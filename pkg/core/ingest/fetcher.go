package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"filing_metrics/pkg/core/facts"
	"filing_metrics/pkg/core/store"
)

// Source downloads raw companyfacts documents.
type Source interface {
	FetchCompanyFacts(ctx context.Context, cik string) ([]byte, error)
}

// Cache stores raw companyfacts documents by padded CIK.
// Get returns store.ErrCacheMiss when nothing fresh is stored.
type Cache interface {
	Get(ctx context.Context, cik string) ([]byte, error)
	Put(ctx context.Context, cik string, data []byte) error
}

// CachedFetcher serves company facts from the cache, falling back to the source.
// At most one source fetch per CIK is in flight; concurrent callers share it.
type CachedFetcher struct {
	source Source
	cache  Cache
	group  singleflight.Group
}

// NewCachedFetcher creates a fetcher. cache may be nil.
func NewCachedFetcher(source Source, cache Cache) *CachedFetcher {
	return &CachedFetcher{source: source, cache: cache}
}

// Fetch returns the decoded facts for a CIK and whether they came from the cache.
// Only documents that decode are written to the cache.
func (f *CachedFetcher) Fetch(ctx context.Context, cik string) (*facts.CompanyFacts, bool, error) {
	cik = facts.NormalizeCIK(cik)
	if cik == "" {
		return nil, false, fmt.Errorf("empty CIK: %w", ErrNotFound)
	}
	logger := zerolog.Ctx(ctx).With().Str("component", "ingest").Str("cik", cik).Logger()

	if f.cache != nil {
		data, err := f.cache.Get(ctx, cik)
		switch {
		case err == nil:
			cf, perr := facts.ParseCompanyFacts(data)
			if perr == nil {
				return cf, true, nil
			}
			logger.Warn().Err(perr).Msg("discarding unreadable cache entry")
		case errors.Is(err, store.ErrCacheMiss):
		default:
			logger.Warn().Err(err).Msg("facts cache read failed")
		}
	}

	v, err, shared := f.group.Do(cik, func() (interface{}, error) {
		data, err := f.source.FetchCompanyFacts(ctx, cik)
		if err != nil {
			return nil, err
		}
		if _, err := facts.ParseCompanyFacts(data); err != nil {
			return nil, err
		}
		if f.cache != nil {
			if err := f.cache.Put(ctx, cik, data); err != nil {
				logger.Warn().Err(err).Msg("facts cache write failed")
			}
		}
		return data, nil
	})
	if err != nil {
		return nil, false, err
	}
	logger.Debug().Bool("shared", shared).Msg("fetched companyfacts")

	// Each caller decodes its own copy; results are request-scoped.
	cf, err := facts.ParseCompanyFacts(v.([]byte))
	if err != nil {
		return nil, false, err
	}
	return cf, false, nil
}
