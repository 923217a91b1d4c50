package config

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	coreconfig "filing_metrics/pkg/core/config"
	"filing_metrics/pkg/core/period"
	"filing_metrics/pkg/core/quality"
)

// Response is the effective extraction configuration. Connection strings are never exposed.
type Response struct {
	Classifier period.Thresholds         `json:"classifier"`
	Quality    quality.Thresholds        `json:"quality"`
	Pipeline   coreconfig.PipelineConfig `json:"pipeline"`
	Cache      CacheInfo                 `json:"cache"`
}

// CacheInfo describes the active cache tiers.
type CacheInfo struct {
	Database bool   `json:"database"`
	Dir      string `json:"dir,omitempty"`
	TTL      string `json:"ttl"`
}

// Handler holds dependencies for config endpoints
type Handler struct {
	Config *coreconfig.Config
}

// NewHandler creates a new config handler
func NewHandler(cfg *coreconfig.Config) *Handler {
	return &Handler{Config: cfg}
}

// Register mounts the handler's routes.
func (h *Handler) Register(router *mux.Router) {
	router.HandleFunc("/api/config", h.HandleConfig).Methods(http.MethodGet)
}

func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.Config
	resp := Response{
		Classifier: cfg.Classifier,
		Quality:    cfg.Quality,
		Pipeline:   cfg.Pipeline,
		Cache: CacheInfo{
			Database: cfg.Database.URL != "",
			Dir:      cfg.Cache.Dir,
			TTL:      cfg.Cache.TTL.String(),
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
