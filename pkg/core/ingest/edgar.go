// Package ingest provides SEC EDGAR API integration for fetching company facts.
// API Documentation: https://www.sec.gov/developer
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"filing_metrics/pkg/core/facts"
)

const (
	companyFactsPath   = "/api/xbrl/companyfacts/CIK%s.json"
	companyTickersPath = "/files/company_tickers.json"
)

// ErrNotFound is returned when SEC has no data for the requested company.
var ErrNotFound = errors.New("not found")

// Options configure the SEC client.
type Options struct {
	// UserAgent is required by SEC fair-access rules.
	UserAgent  string
	DataURL    string // https://data.sec.gov
	ArchiveURL string // https://www.sec.gov
	Timeout    time.Duration
}

// =============================================================================
// SEC EDGAR CLIENT
// =============================================================================

// EDGARClient handles SEC EDGAR API requests.
type EDGARClient struct {
	httpClient *http.Client
	opts       Options

	tickerCache map[string]string // Ticker -> CIK (padded)
	tickerMutex sync.Mutex
}

// NewEDGARClient creates a new SEC EDGAR API client.
func NewEDGARClient(opts Options) *EDGARClient {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	opts.DataURL = strings.TrimRight(opts.DataURL, "/")
	opts.ArchiveURL = strings.TrimRight(opts.ArchiveURL, "/")
	return &EDGARClient{
		httpClient: &http.Client{Timeout: opts.Timeout},
		opts:       opts,
	}
}

// FetchCompanyFacts downloads the raw companyfacts document for a CIK.
// CIK is zero-padded to 10 digits if needed.
func (c *EDGARClient) FetchCompanyFacts(ctx context.Context, cik string) ([]byte, error) {
	padded := facts.NormalizeCIK(cik)
	if padded == "" {
		return nil, fmt.Errorf("invalid CIK %q", cik)
	}
	body, err := c.get(ctx, c.opts.DataURL+fmt.Sprintf(companyFactsPath, padded), "application/json")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch companyfacts for CIK %s: %w", padded, err)
	}
	return body, nil
}

// ResolveCIK accepts a CIK or a ticker symbol and returns the padded CIK.
func (c *EDGARClient) ResolveCIK(ctx context.Context, symbol string) (string, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return "", fmt.Errorf("empty symbol: %w", ErrNotFound)
	}
	if isDigits(symbol) {
		return facts.NormalizeCIK(symbol), nil
	}
	return c.LookupCIK(ctx, symbol)
}

// LookupCIK resolves a ticker symbol to a CIK using SEC's company_tickers.json.
// The mapping is downloaded once per client.
func (c *EDGARClient) LookupCIK(ctx context.Context, ticker string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(ticker))

	c.tickerMutex.Lock()
	defer c.tickerMutex.Unlock()

	if c.tickerCache == nil {
		cache, err := c.loadTickers(ctx)
		if err != nil {
			return "", err
		}
		c.tickerCache = cache
	}
	if cik, ok := c.tickerCache[normalized]; ok {
		return cik, nil
	}
	return "", fmt.Errorf("ticker %s: %w", ticker, ErrNotFound)
}

// loadTickers fetches the ticker list.
// Format: {"0": {"cik_str": 320193, "ticker": "AAPL", "title": "Apple Inc."}, ...}
func (c *EDGARClient) loadTickers(ctx context.Context) (map[string]string, error) {
	body, err := c.get(ctx, c.opts.ArchiveURL+companyTickersPath, "application/json")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch company tickers: %w", err)
	}

	var resp map[string]struct {
		CIK    int64  `json:"cik_str"`
		Ticker string `json:"ticker"`
		Title  string `json:"title"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse ticker JSON: %w", err)
	}

	out := make(map[string]string, len(resp))
	for _, entry := range resp {
		out[strings.ToUpper(entry.Ticker)] = fmt.Sprintf("%010d", entry.CIK)
	}
	return out, nil
}

func (c *EDGARClient) get(ctx context.Context, url, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	// SEC requires User-Agent header
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", accept)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("SEC request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("SEC returned status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
