// Package diag holds the non-fatal signals raised while classifying and deriving metrics.
// Warnings degrade quality scores; they never abort an extraction.
package diag

import (
	"fmt"
	"sort"
	"time"
)

// Code identifies the kind of warning.
type Code string

const (
	// AmbiguousPeriod: a bucket could not be confidently classified and fell back to Quarterly.
	AmbiguousPeriod Code = "ambiguous_period"
	// ImplausibleRatio: a derived ratio is outside its sane range.
	ImplausibleRatio Code = "implausible_ratio"
	// MissingConcept: none of a metric's fallback concepts produced data.
	MissingConcept Code = "missing_concept"
	// MalformedConcept: a concept's payload could not be decoded.
	MalformedConcept Code = "malformed_concept"
	// KindMismatch: a concept declared as a stock reports period spans.
	KindMismatch Code = "kind_mismatch"
	// BalanceMismatch: assets differ from liabilities plus equity at the same period end.
	BalanceMismatch Code = "balance_mismatch"
)

// Warning is one diagnostic signal.
type Warning struct {
	Code      Code      `json:"code"`
	Metric    string    `json:"metric,omitempty"`
	Concept   string    `json:"concept,omitempty"`
	PeriodEnd time.Time `json:"period_end,omitzero"`
	Message   string    `json:"message"`
}

func (w Warning) String() string {
	if w.PeriodEnd.IsZero() {
		return fmt.Sprintf("%s: %s", w.Code, w.Message)
	}
	return fmt.Sprintf("%s [%s]: %s", w.Code, w.PeriodEnd.Format("2006-01-02"), w.Message)
}

// Sort orders warnings deterministically.
func Sort(ws []Warning) {
	sort.SliceStable(ws, func(i, j int) bool {
		a, b := ws[i], ws[j]
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		if a.Metric != b.Metric {
			return a.Metric < b.Metric
		}
		if a.Concept != b.Concept {
			return a.Concept < b.Concept
		}
		if !a.PeriodEnd.Equal(b.PeriodEnd) {
			return a.PeriodEnd.Before(b.PeriodEnd)
		}
		return a.Message < b.Message
	})
}

// Count returns how many warnings carry the given code.
func Count(ws []Warning, code Code) int {
	n := 0
	for _, w := range ws {
		if w.Code == code {
			n++
		}
	}
	return n
}
