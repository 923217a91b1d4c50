package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	apiconfig "filing_metrics/pkg/api/config"
	apimetrics "filing_metrics/pkg/api/metrics"
	"filing_metrics/pkg/core/config"
	"filing_metrics/pkg/core/ingest"
	"filing_metrics/pkg/core/pipeline"
	"filing_metrics/pkg/core/store"
)

func main() {
	// Load environment variables
	godotenv.Load()

	cfg, err := config.Load("")
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}
	logger, err := config.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("failed to build logger")
	}
	ctx, stop := signal.NotifyContext(logger.WithContext(context.Background()), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database tier is optional; the file cache works without it.
	var results apimetrics.ResultStore
	cache := store.NewFactsCache(nil, cfg.Cache.Dir, cfg.Cache.TTL)
	if cfg.Database.URL != "" {
		pool, err := store.InitDB(ctx, cfg.Database.URL)
		if err == nil {
			err = store.EnsureSchema(ctx, pool)
		}
		if err != nil {
			logger.Warn().Err(err).Msg("database unavailable, using file cache only")
		} else {
			defer store.Close()
			cache = store.NewFactsCache(pool, cfg.Cache.Dir, cfg.Cache.TTL)
			results = store.NewResultRepo(pool)
		}
	}

	client := ingest.NewEDGARClient(ingest.Options{
		UserAgent:  cfg.SEC.UserAgent,
		DataURL:    cfg.SEC.DataURL,
		ArchiveURL: cfg.SEC.ArchiveURL,
		Timeout:    cfg.SEC.Timeout,
	})

	extractor := pipeline.NewExtractor(cfg.PipelineOptions())
	if cfg.Pipeline.DescribeCitations {
		extractor.SetDescriber(client)
	}

	inst, err := apimetrics.NewInstruments(prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to register instruments")
	}

	metricsHandler := apimetrics.NewHandler(extractor, client, ingest.NewCachedFetcher(client, cache), inst)
	if results != nil {
		metricsHandler.Results = results
	}

	router := mux.NewRouter()
	metricsHandler.Register(router)
	apiconfig.NewHandler(cfg).Register(router)
	router.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Handler:      apimetrics.WithRequestLogging(logger, router),
		Addr:         cfg.Server.ListenAddr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		BaseContext:  func(_ net.Listener) context.Context { return logger.WithContext(context.Background()) },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", cfg.Server.ListenAddr).Msg("started serving requests")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("ended abnormally")
	}
	logger.Info().Msg("stopped serving requests")
}
