// Package config loads runtime configuration from config/metrics.yaml and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"

	"filing_metrics/pkg/core/period"
	"filing_metrics/pkg/core/pipeline"
	"filing_metrics/pkg/core/quality"
)

// DefaultPath is read when METRICS_CONFIG is unset.
const DefaultPath = "config/metrics.yaml"

type Config struct {
	Server     ServerConfig       `yaml:"server"`
	SEC        SECConfig          `yaml:"sec"`
	Cache      CacheConfig        `yaml:"cache"`
	Database   DatabaseConfig     `yaml:"database"`
	Log        LogConfig          `yaml:"log"`
	Classifier period.Thresholds  `yaml:"classifier"`
	Quality    quality.Thresholds `yaml:"quality"`
	Pipeline   PipelineConfig     `yaml:"pipeline"`
}

type ServerConfig struct {
	ListenAddr   string        `yaml:"listen_addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type SECConfig struct {
	// UserAgent must identify the caller; SEC rejects anonymous clients.
	UserAgent  string        `yaml:"user_agent"`
	DataURL    string        `yaml:"data_url"`
	ArchiveURL string        `yaml:"archive_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

type CacheConfig struct {
	Dir string        `yaml:"dir"`
	TTL time.Duration `yaml:"ttl"`
}

type DatabaseConfig struct {
	// URL is a Postgres connection string. Empty disables the database cache tier.
	URL string `yaml:"url"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console | json
}

type PipelineConfig struct {
	DescribeCitations bool `json:"describe_citations" yaml:"describe_citations"`
	DescribeLimit     int  `json:"describe_limit" yaml:"describe_limit"`
}

// Default returns the documented defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:   ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		SEC: SECConfig{
			UserAgent:  "FilingMetrics/1.0 (contact@example.com)",
			DataURL:    "https://data.sec.gov",
			ArchiveURL: "https://www.sec.gov",
			Timeout:    30 * time.Second,
		},
		Cache: CacheConfig{
			Dir: "data/cache",
			TTL: 24 * time.Hour,
		},
		Log:        LogConfig{Level: "info", Format: "console"},
		Classifier: period.DefaultThresholds(),
		Quality:    quality.DefaultThresholds(),
		Pipeline:   PipelineConfig{DescribeLimit: 20},
	}
}

// Load reads the YAML file at path (METRICS_CONFIG or DefaultPath when empty)
// over the defaults, applies environment overrides and validates the result.
// A missing default file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv("METRICS_CONFIG")
		explicit = path != ""
	}
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides file values with environment variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"LISTEN_ADDR":    &c.Server.ListenAddr,
		"SEC_USER_AGENT": &c.SEC.UserAgent,
		"DATABASE_URL":   &c.Database.URL,
		"CACHE_DIR":      &c.Cache.Dir,
		"LOG_LEVEL":      &c.Log.Level,
		"LOG_FORMAT":     &c.Log.Format,
	}
	for key, dst := range str {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("CACHE_TTL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid CACHE_TTL %q: %w", v, err)
		}
		c.Cache.TTL = d
	}
	if v, ok := lookup("YTD_RATIO_THRESHOLD"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid YTD_RATIO_THRESHOLD %q: %w", v, err)
		}
		c.Classifier.YTDRatioThreshold = f
	}
	return nil
}

// Validate rejects inconsistent settings.
func (c *Config) Validate() error {
	if err := c.Classifier.Validate(); err != nil {
		return fmt.Errorf("classifier: %w", err)
	}
	if err := c.Quality.Validate(); err != nil {
		return fmt.Errorf("quality: %w", err)
	}
	if c.SEC.UserAgent == "" {
		return errors.New("sec.user_agent is required")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative, got %s", c.Cache.TTL)
	}
	if c.Pipeline.DescribeLimit < 0 {
		return fmt.Errorf("pipeline.describe_limit must not be negative, got %d", c.Pipeline.DescribeLimit)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	return nil
}

// PipelineOptions maps the configuration onto extractor options.
func (c *Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		Thresholds:    c.Classifier,
		Quality:       c.Quality,
		DescribeLimit: c.Pipeline.DescribeLimit,
	}
}
