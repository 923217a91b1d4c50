// Package period classifies normalized facts into true quarterly, year-to-date
// and annual values.
//
// The input is ambiguous by nature: a filer may report the same period end many
// times, across 10-Q and 10-K filings, as a discrete quarter or as a cumulative
// figure, with no flag telling the two apart. The classifier resolves each
// period end bucket to at most one value per kind and keeps at most one annual
// total per fiscal year.
package period

import (
	"encoding/json"
	"sort"
	"time"

	"filing_metrics/pkg/core/diag"
	"filing_metrics/pkg/core/facts"
)

// Kind is the classification of one period value.
type Kind int

const (
	Quarterly Kind = iota
	Annual
	YTD
)

func (k Kind) String() string {
	switch k {
	case Annual:
		return "annual"
	case YTD:
		return "ytd"
	default:
		return "quarterly"
	}
}

// MarshalJSON renders the kind as its lowercase name.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// ClassifiedPeriod is the durable output unit of the classifier.
type ClassifiedPeriod struct {
	Concept       string
	Unit          string
	PeriodEnd     time.Time
	PeriodStart   time.Time // zero for instants and unknown starts
	Value         float64
	Kind          Kind
	FilingType    facts.FilingType
	Form          string
	FilingDate    time.Time
	Accession     string
	FiscalYear    int
	FiscalQuarter int
	// Derived marks a quarter computed by differencing cumulative values.
	Derived bool
}

type classifiedPeriodJSON struct {
	Concept       string           `json:"concept"`
	Unit          string           `json:"unit"`
	PeriodEnd     string           `json:"period_end"`
	PeriodStart   string           `json:"period_start,omitempty"`
	Value         float64          `json:"value"`
	Kind          Kind             `json:"kind"`
	FilingType    facts.FilingType `json:"filing_type"`
	Form          string           `json:"form,omitempty"`
	FilingDate    string           `json:"filing_date,omitempty"`
	Accession     string           `json:"accession,omitempty"`
	FiscalYear    int              `json:"fiscal_year"`
	FiscalQuarter int              `json:"fiscal_quarter"`
	Derived       bool             `json:"derived,omitempty"`
}

// MarshalJSON renders dates as calendar dates.
func (p ClassifiedPeriod) MarshalJSON() ([]byte, error) {
	return json.Marshal(classifiedPeriodJSON{
		Concept:       p.Concept,
		Unit:          p.Unit,
		PeriodEnd:     formatDate(p.PeriodEnd),
		PeriodStart:   formatDate(p.PeriodStart),
		Value:         p.Value,
		Kind:          p.Kind,
		FilingType:    p.FilingType,
		Form:          p.Form,
		FilingDate:    formatDate(p.FilingDate),
		Accession:     p.Accession,
		FiscalYear:    p.FiscalYear,
		FiscalQuarter: p.FiscalQuarter,
		Derived:       p.Derived,
	})
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(facts.DateLayout)
}

// Result is the classifier output for one concept.
// Every list is sorted descending by period end.
type Result struct {
	Quarterly []ClassifiedPeriod
	Annual    []ClassifiedPeriod
	YTD       []ClassifiedPeriod
	Warnings  []diag.Warning
}

// Empty reports whether classification produced no values.
func (r Result) Empty() bool {
	return len(r.Quarterly) == 0 && len(r.Annual) == 0 && len(r.YTD) == 0
}

// All merges the three lists, descending by period end.
// At equal period ends annual values precede YTD values, which precede quarters.
func (r Result) All() []ClassifiedPeriod {
	all := make([]ClassifiedPeriod, 0, len(r.Quarterly)+len(r.Annual)+len(r.YTD))
	all = append(all, r.Annual...)
	all = append(all, r.YTD...)
	all = append(all, r.Quarterly...)
	sortDescending(all)
	return all
}

var kindRank = map[Kind]int{Annual: 0, YTD: 1, Quarterly: 2}

func sortDescending(list []ClassifiedPeriod) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if !a.PeriodEnd.Equal(b.PeriodEnd) {
			return a.PeriodEnd.After(b.PeriodEnd)
		}
		if a.Kind != b.Kind {
			return kindRank[a.Kind] < kindRank[b.Kind]
		}
		return a.PeriodStart.After(b.PeriodStart)
	})
}
