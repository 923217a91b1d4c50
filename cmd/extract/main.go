// Command extract runs the metric pipeline over a companyfacts JSON file
// (or the bare concept mapping) and prints the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"filing_metrics/pkg/core/config"
	"filing_metrics/pkg/core/facts"
	"filing_metrics/pkg/core/pipeline"
)

func main() {
	file := flag.String("file", "", "path to a companyfacts JSON file (- for stdin)")
	pretty := flag.Bool("pretty", false, "indent the output")
	configPath := flag.String("config", "", "config file (default $METRICS_CONFIG or "+config.DefaultPath+")")
	flag.Parse()

	godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}
	logger, err := config.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("failed to build logger")
	}

	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	data, err := readInput(*file)
	if err != nil {
		logger.Fatal().Err(err).Str("file", *file).Msg("failed to read input")
	}
	cf, err := facts.Decode(data)
	if err != nil {
		logger.Fatal().Err(err).Str("file", *file).Msg("failed to decode facts")
	}

	ctx := logger.WithContext(context.Background())
	m := pipeline.NewExtractor(cfg.PipelineOptions()).Extract(ctx, cf)

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(m); err != nil {
		logger.Fatal().Err(err).Msg("failed to write output")
	}
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
