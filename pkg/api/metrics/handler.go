// Package metrics serves metric extraction over HTTP.
package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"filing_metrics/pkg/core/facts"
	"filing_metrics/pkg/core/ingest"
	"filing_metrics/pkg/core/pipeline"
	"filing_metrics/pkg/core/store"
)

// maxBodyBytes caps POSTed facts documents. Large filers' companyfacts run to ~20MB.
const maxBodyBytes = 64 << 20

// CIKResolver maps a ticker or CIK to a padded CIK.
type CIKResolver interface {
	ResolveCIK(ctx context.Context, symbol string) (string, error)
}

// FactsFetcher returns decoded company facts and whether they came from the cache.
type FactsFetcher interface {
	Fetch(ctx context.Context, cik string) (*facts.CompanyFacts, bool, error)
}

// ResultStore persists extraction results and reads back the latest one per CIK.
type ResultStore interface {
	Save(ctx context.Context, m *pipeline.Metrics) error
	Load(ctx context.Context, cik string) (json.RawMessage, time.Time, error)
}

// Response is the envelope for successful extractions.
type Response struct {
	RequestID string            `json:"request_id"`
	Cached    bool              `json:"cached"`
	Metrics   *pipeline.Metrics `json:"metrics"`
}

// StoredResponse is the envelope for a previously saved extraction.
type StoredResponse struct {
	RequestID string          `json:"request_id"`
	StoredAt  time.Time       `json:"stored_at"`
	Metrics   json.RawMessage `json:"metrics"`
}

// ErrorResponse is the envelope for failures.
type ErrorResponse struct {
	RequestID string `json:"request_id"`
	Error     string `json:"error"`
}

// Handler holds dependencies for metric endpoints
type Handler struct {
	Extractor *pipeline.Extractor
	Resolver  CIKResolver
	Fetcher   FactsFetcher
	// Results is optional; a failed save is logged and does not fail the request.
	Results ResultStore
	// MaxBodyBytes caps POSTed facts documents.
	MaxBodyBytes int64

	instruments *Instruments
}

// NewHandler creates a new metrics handler
func NewHandler(ext *pipeline.Extractor, resolver CIKResolver, fetcher FactsFetcher, inst *Instruments) *Handler {
	return &Handler{
		Extractor:    ext,
		Resolver:     resolver,
		Fetcher:      fetcher,
		MaxBodyBytes: maxBodyBytes,
		instruments:  inst,
	}
}

// Register mounts the handler's routes.
func (h *Handler) Register(router *mux.Router) {
	router.HandleFunc("/api/metrics/extract", h.HandleExtract).Methods(http.MethodPost)
	router.HandleFunc("/api/metrics/{symbol}", h.HandleSymbol).Methods(http.MethodGet)
	router.HandleFunc("/healthz", HandleHealth).Methods(http.MethodGet)
}

// HandleSymbol resolves a ticker or CIK, fetches its companyfacts and extracts.
// With ?stored=1 it returns the last saved extraction instead.
func (h *Handler) HandleSymbol(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	symbol := strings.TrimSpace(mux.Vars(r)["symbol"])
	logger := zerolog.Ctx(ctx).With().Str("component", "api").Str("symbol", symbol).Logger()

	if r.URL.Query().Get("stored") == "1" {
		h.handleStored(w, r, logger, symbol)
		return
	}

	if h.Resolver == nil || h.Fetcher == nil {
		h.fail(w, r, http.StatusServiceUnavailable, "live fetching is not configured")
		return
	}

	cik, err := h.Resolver.ResolveCIK(ctx, symbol)
	if err != nil {
		h.fetchError(w, r, logger, err)
		return
	}

	cf, cached, err := h.Fetcher.Fetch(ctx, cik)
	if err != nil {
		h.fetchError(w, r, logger, err)
		return
	}
	h.instruments.fetched(cached)

	h.respond(w, r, h.extract(ctx, logger, cf), cached)
}

// HandleExtract extracts metrics from a POSTed companyfacts document or bare concept mapping.
func (h *Handler) HandleExtract(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx).With().Str("component", "api").Logger()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(w, r, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		h.fail(w, r, http.StatusBadRequest, "failed to read request body")
		return
	}
	cf, err := facts.Decode(body)
	if err != nil {
		h.fail(w, r, http.StatusBadRequest, err.Error())
		return
	}

	h.respond(w, r, h.extract(ctx, logger, cf), false)
}

func (h *Handler) handleStored(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, symbol string) {
	ctx := r.Context()
	if h.Resolver == nil || h.Results == nil {
		h.fail(w, r, http.StatusServiceUnavailable, "result storage is not configured")
		return
	}

	cik, err := h.Resolver.ResolveCIK(ctx, symbol)
	if err != nil {
		h.fetchError(w, r, logger, err)
		return
	}

	data, at, err := h.Results.Load(ctx, cik)
	if err != nil {
		if errors.Is(err, store.ErrCacheMiss) {
			h.fail(w, r, http.StatusNotFound, err.Error())
			return
		}
		logger.Error().Err(err).Str("cik", cik).Msg("failed to load stored result")
		h.fail(w, r, http.StatusInternalServerError, "failed to load stored result")
		return
	}
	writeJSON(w, http.StatusOK, StoredResponse{RequestID: RequestID(ctx), StoredAt: at, Metrics: data})
}

// HandleHealth reports liveness.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (h *Handler) extract(ctx context.Context, logger zerolog.Logger, cf *facts.CompanyFacts) *pipeline.Metrics {
	done := h.instruments.timer()
	m := h.Extractor.Extract(ctx, cf)
	done()
	h.instruments.extracted(m)

	if h.Results != nil && m.CIK != "" {
		if err := h.Results.Save(ctx, m); err != nil {
			logger.Warn().Err(err).Str("cik", m.CIK).Msg("failed to save result")
		}
	}
	return m
}

func (h *Handler) fetchError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	if errors.Is(err, ingest.ErrNotFound) {
		h.fail(w, r, http.StatusNotFound, err.Error())
		return
	}
	logger.Error().Err(err).Msg("companyfacts fetch failed")
	h.fail(w, r, http.StatusBadGateway, err.Error())
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, m *pipeline.Metrics, cached bool) {
	writeJSON(w, http.StatusOK, Response{RequestID: RequestID(r.Context()), Cached: cached, Metrics: m})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h.instruments.failed(status)
	writeJSON(w, status, ErrorResponse{RequestID: RequestID(r.Context()), Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

type requestIDKey struct{}

// RequestID returns the request ID set by WithRequestLogging, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// WithRequestLogging assigns a request ID (honoring X-Request-ID), attaches a
// request-scoped logger to the context and logs each request on completion.
func WithRequestLogging(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		reqLogger := logger.With().Str("request_id", id).Logger()
		ctx := context.WithValue(reqLogger.WithContext(r.Context()), requestIDKey{}, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		reqLogger.Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status_code", rec.status).
			Msg("")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
