// Package calc computes ratios and composite metrics from resolved metric series.
// Every function here is pure: the same series always produce the same result.
package calc

import (
	"encoding/json"
	"time"

	"filing_metrics/pkg/core/diag"
	"filing_metrics/pkg/core/facts"
)

// Derived metric names.
const (
	GrossProfitName         = "grossProfit"
	GrossMarginName         = "grossMargin"
	OperatingMarginName     = "operatingMargin"
	NetMarginName           = "netMargin"
	FreeCashFlowName        = "freeCashFlow"
	ROEName                 = "roe"
	DebtToEquityName        = "debtToEquity"
	RevenueGrowthYoYName    = "revenueGrowthYoY"
	NetIncomeGrowthYoYName  = "netIncomeGrowthYoY"
	RevenueGrowthAnnualName = "revenueGrowthAnnual"
	RevenueCAGRName         = "revenueCagr3Y"
	TTMRevenueName          = "ttmRevenue"
	TTMNetIncomeName        = "ttmNetIncome"
)

// DerivedMetric is one computed value. PeriodEnd is the end of the primary input's period.
type DerivedMetric struct {
	Name       string
	Value      float64
	PeriodEnd  time.Time
	Calculated bool
	Annualized bool
}

// MarshalJSON renders the period end as a calendar date.
func (m DerivedMetric) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name       string  `json:"name"`
		Value      float64 `json:"value"`
		PeriodEnd  string  `json:"period_end"`
		Calculated bool    `json:"calculated"`
		Annualized bool    `json:"annualized,omitempty"`
	}{m.Name, m.Value, m.PeriodEnd.Format(facts.DateLayout), m.Calculated, m.Annualized})
}

// Bounds are the plausibility limits for derived ratios.
type Bounds struct {
	// MaxNetMargin: a net margin above this signals a classification or unit error.
	MaxNetMargin float64 `json:"max_net_margin" yaml:"max_net_margin"`
	// MinGrossMargin: a gross margin below this signals the same.
	MinGrossMargin float64 `json:"min_gross_margin" yaml:"min_gross_margin"`
}

// DefaultBounds flags net margins above 100% and negative gross margins.
func DefaultBounds() Bounds {
	return Bounds{MaxNetMargin: 1.0, MinGrossMargin: 0}
}

// Implausible reports whether the derived set carries a ratio outside the bounds.
func (b Bounds) Implausible(metrics map[string]DerivedMetric) bool {
	if m, ok := metrics[NetMarginName]; ok && m.Value > b.MaxNetMargin {
		return true
	}
	if m, ok := metrics[GrossMarginName]; ok && m.Value < b.MinGrossMargin {
		return true
	}
	return false
}

// Result holds the derived metrics keyed by name.
type Result struct {
	Metrics  map[string]DerivedMetric
	Warnings []diag.Warning
}

// Get returns a derived metric by name.
func (r Result) Get(name string) (DerivedMetric, bool) {
	m, ok := r.Metrics[name]
	return m, ok
}

// Has reports whether any of the named metrics was derived.
func (r Result) Has(names ...string) bool {
	for _, n := range names {
		if _, ok := r.Metrics[n]; ok {
			return true
		}
	}
	return false
}
