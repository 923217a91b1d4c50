// Package pipeline runs the full extraction for one company:
// resolve -> derive -> score -> cite.
package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"filing_metrics/pkg/core/calc"
	"filing_metrics/pkg/core/diag"
	"filing_metrics/pkg/core/facts"
	"filing_metrics/pkg/core/period"
	"filing_metrics/pkg/core/quality"
	"filing_metrics/pkg/core/resolve"
)

// Options configure an Extractor.
type Options struct {
	Thresholds period.Thresholds
	Quality    quality.Thresholds
	// DescribeLimit caps how many citations, newest first, the Describer is asked about.
	DescribeLimit int
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		Thresholds:    period.DefaultThresholds(),
		Quality:       quality.DefaultThresholds(),
		DescribeLimit: 20,
	}
}

// Metrics is the extraction output for one company.
type Metrics struct {
	CIK        string                                      `json:"cik"`
	EntityName string                                      `json:"entity_name,omitempty"`
	Series     map[resolve.MetricKind]resolve.MetricSeries `json:"series"`
	Derived    map[string]calc.DerivedMetric               `json:"derived"`
	Quality    quality.Assessment                          `json:"quality"`
	Citations  []Citation                                  `json:"citations"`
	Missing    []resolve.MetricKind                        `json:"missing,omitempty"`
	Skipped    []string                                    `json:"skipped,omitempty"`
	Warnings   []diag.Warning                              `json:"warnings,omitempty"`
}

// Extractor holds configuration only; concurrent Extract calls share nothing mutable.
type Extractor struct {
	opts       Options
	resolver   *resolve.Resolver
	calculator *calc.Calculator
	scorer     *quality.Scorer
	describer  Describer
}

// NewExtractor creates an extractor. Options are expected to be validated.
func NewExtractor(opts Options) *Extractor {
	return &Extractor{
		opts:       opts,
		resolver:   resolve.NewResolver(period.NewClassifier(opts.Thresholds)),
		calculator: calc.NewCalculator(opts.Quality.Bounds),
		scorer:     quality.NewScorer(opts.Quality),
	}
}

// SetDescriber enables citation descriptions from an external source.
func (e *Extractor) SetDescriber(d Describer) {
	e.describer = d
}

// Extract runs every stage for one company. Data problems surface as warnings
// and missing metrics; there is no error path. ctx carries the logger and is
// only consulted by the Describer.
func (e *Extractor) Extract(ctx context.Context, cf *facts.CompanyFacts) *Metrics {
	if cf == nil {
		cf = &facts.CompanyFacts{}
	}
	logger := zerolog.Ctx(ctx).With().Str("component", "pipeline").Str("cik", cf.CIK).Logger()
	start := time.Now()

	// 1. Resolve
	resolution := e.resolver.ResolveAll(cf.Facts)
	for _, w := range resolution.Warnings {
		if w.Code == diag.AmbiguousPeriod {
			logger.Debug().Str("metric", w.Metric).Str("concept", w.Concept).Msg(w.Message)
		}
	}

	// 2. Derive
	derived := e.calculator.Derive(resolution.Series)

	// 3. Score
	assessment := e.scorer.Score(resolution.Present(), derived)
	balance, mismatches := quality.CheckBalance(resolution.Series, e.opts.Quality.BalanceTolerance)
	assessment.Warnings = append(assessment.Warnings, mismatches...)

	// 4. Cite
	citations := buildCitations(cf.CIK, resolution.Series)
	e.describe(ctx, logger, cf.CIK, citations)

	warnings := make([]diag.Warning, 0, len(resolution.Warnings)+len(derived.Warnings)+len(mismatches)+len(cf.Skipped))
	warnings = append(warnings, resolution.Warnings...)
	warnings = append(warnings, derived.Warnings...)
	warnings = append(warnings, mismatches...)
	for _, name := range cf.Skipped {
		warnings = append(warnings, diag.Warning{
			Code:    diag.MalformedConcept,
			Concept: name,
			Message: "concept payload could not be decoded",
		})
	}
	diag.Sort(warnings)

	m := &Metrics{
		CIK:        cf.CIK,
		EntityName: cf.EntityName,
		Series:     resolution.Series,
		Derived:    derived.Metrics,
		Quality:    assessment,
		Citations:  citations,
		Missing:    resolution.Missing,
		Skipped:    cf.Skipped,
		Warnings:   warnings,
	}

	logger.Info().
		Int("resolved", len(m.Series)).
		Int("derived", len(m.Derived)).
		Int("citations", len(m.Citations)).
		Int("balance_checks", len(balance)).
		Float64("score", assessment.Score).
		Str("status", string(assessment.Status)).
		Dur("elapsed", time.Since(start)).
		Msg("extraction complete")
	return m
}

// describe replaces local descriptions with the Describer's, newest filings
// first. A failed lookup keeps the local description.
func (e *Extractor) describe(ctx context.Context, logger zerolog.Logger, cik string, citations []Citation) {
	if e.describer == nil || cik == "" {
		return
	}
	for i := range citations {
		if i >= e.opts.DescribeLimit {
			return
		}
		c := &citations[i]
		if c.Accession == "" {
			continue
		}
		desc, err := e.describer.Describe(ctx, cik, c.Accession)
		if err != nil {
			logger.Debug().Err(err).Str("accession", c.Accession).Msg("citation lookup failed")
			continue
		}
		if desc != "" {
			c.Description = desc
		}
	}
}
