// Package quality scores how complete and plausible an extraction is.
// It annotates results and never changes them.
package quality

import (
	"fmt"

	"filing_metrics/pkg/core/calc"
	"filing_metrics/pkg/core/diag"
	"filing_metrics/pkg/core/resolve"
)

// Status buckets a score.
type Status string

const (
	Good    Status = "good"
	Limited Status = "limited"
	Poor    Status = "poor"
)

// CoreMetrics are the metrics completeness is measured against.
var CoreMetrics = []resolve.MetricKind{resolve.Revenue, resolve.NetIncome, resolve.TotalAssets}

// Thresholds configure the score.
type Thresholds struct {
	Bounds calc.Bounds `json:"bounds" yaml:",inline"`
	// PenaltyFactor multiplies the score when a derived ratio is implausible.
	PenaltyFactor float64 `json:"penalty_factor" yaml:"penalty_factor"`
	GoodScore     float64 `json:"good_score" yaml:"good_score"`
	LimitedScore  float64 `json:"limited_score" yaml:"limited_score"`
	// BalanceTolerance is the allowed |A - (L + E)| as a fraction of assets. Zero disables the check.
	BalanceTolerance float64 `json:"balance_tolerance" yaml:"balance_tolerance"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		Bounds:        calc.DefaultBounds(),
		PenaltyFactor: 0.5,
		GoodScore:     0.8,
		LimitedScore:  0.5,

		BalanceTolerance: 0.01,
	}
}

// Validate rejects thresholds that cannot order the status buckets.
func (t Thresholds) Validate() error {
	if t.PenaltyFactor < 0 || t.PenaltyFactor > 1 {
		return fmt.Errorf("penalty_factor must be in [0,1], got %v", t.PenaltyFactor)
	}
	if t.LimitedScore < 0 || t.GoodScore > 1 || t.LimitedScore > t.GoodScore {
		return fmt.Errorf("expected 0 <= limited_score (%v) <= good_score (%v) <= 1", t.LimitedScore, t.GoodScore)
	}
	if t.BalanceTolerance < 0 {
		return fmt.Errorf("balance_tolerance must not be negative, got %v", t.BalanceTolerance)
	}
	return nil
}

// Assessment is the quality annotation of one extraction.
type Assessment struct {
	Completeness float64        `json:"completeness"`
	HasMargins   bool           `json:"has_margins"`
	HasRatios    bool           `json:"has_ratios"`
	Score        float64        `json:"score"`
	Status       Status         `json:"status"`
	Penalized    bool           `json:"penalized"`
	Warnings     []diag.Warning `json:"warnings,omitempty"`
}

type Scorer struct {
	Thresholds Thresholds
}

func NewScorer(t Thresholds) *Scorer {
	return &Scorer{Thresholds: t}
}

// Score computes
//
//	0.5*completeness + 0.25*hasMargins + 0.25*hasRatios
//
// and multiplies it by the penalty factor when a margin is implausible.
func (s *Scorer) Score(present map[resolve.MetricKind]bool, derived calc.Result) Assessment {
	var a Assessment

	n := 0
	for _, m := range CoreMetrics {
		if present[m] {
			n++
		}
	}
	a.Completeness = float64(n) / float64(len(CoreMetrics))
	a.HasMargins = derived.Has(calc.GrossMarginName, calc.OperatingMarginName, calc.NetMarginName)
	a.HasRatios = derived.Has(calc.ROEName, calc.DebtToEquityName)

	a.Score = 0.5 * a.Completeness
	if a.HasMargins {
		a.Score += 0.25
	}
	if a.HasRatios {
		a.Score += 0.25
	}

	if s.Thresholds.Bounds.Implausible(derived.Metrics) {
		a.Penalized = true
		a.Score *= s.Thresholds.PenaltyFactor
		for _, w := range derived.Warnings {
			if w.Code == diag.ImplausibleRatio {
				a.Warnings = append(a.Warnings, w)
			}
		}
	}

	a.Status = s.status(a.Score)
	return a
}

func (s *Scorer) status(score float64) Status {
	switch {
	case score >= s.Thresholds.GoodScore:
		return Good
	case score >= s.Thresholds.LimitedScore:
		return Limited
	default:
		return Poor
	}
}
