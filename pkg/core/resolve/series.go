package resolve

import (
	"time"

	"filing_metrics/pkg/core/diag"
	"filing_metrics/pkg/core/period"
)

// MetricSeries is the classified history of one metric, taken from the single
// concept that resolved it. Every list is sorted by period end, newest first.
type MetricSeries struct {
	Metric    MetricKind                `json:"metric"`
	Concept   string                    `json:"concept"`
	Unit      string                    `json:"unit"`
	All       []period.ClassifiedPeriod `json:"all"`
	Quarterly []period.ClassifiedPeriod `json:"quarterly"`
	Annual    []period.ClassifiedPeriod `json:"annual"`
	YTD       []period.ClassifiedPeriod `json:"ytd"`
	Warnings  []diag.Warning            `json:"warnings,omitempty"`
}

func newSeries(m MetricKind, concept, unit string, res period.Result) MetricSeries {
	return MetricSeries{
		Metric:    m,
		Concept:   concept,
		Unit:      unit,
		All:       res.All(),
		Quarterly: res.Quarterly,
		Annual:    res.Annual,
		YTD:       res.YTD,
		Warnings:  res.Warnings,
	}
}

// Latest returns the most recent entry of any kind.
func (s MetricSeries) Latest() (period.ClassifiedPeriod, bool) {
	return first(s.All)
}

func (s MetricSeries) LatestQuarterly() (period.ClassifiedPeriod, bool) {
	return first(s.Quarterly)
}

func (s MetricSeries) LatestAnnual() (period.ClassifiedPeriod, bool) {
	return first(s.Annual)
}

// At returns the entry of the given kind ending on end.
func (s MetricSeries) At(kind period.Kind, end time.Time) (period.ClassifiedPeriod, bool) {
	for _, p := range s.byKind(kind) {
		if sameDay(p.PeriodEnd, end) {
			return p, true
		}
	}
	return period.ClassifiedPeriod{}, false
}

// Quarter returns the discrete quarter for a fiscal year and quarter number.
func (s MetricSeries) Quarter(fiscalYear, quarter int) (period.ClassifiedPeriod, bool) {
	for _, p := range s.Quarterly {
		if p.FiscalYear == fiscalYear && p.FiscalQuarter == quarter {
			return p, true
		}
	}
	return period.ClassifiedPeriod{}, false
}

// Year returns the annual entry for a fiscal year.
func (s MetricSeries) Year(fiscalYear int) (period.ClassifiedPeriod, bool) {
	for _, p := range s.Annual {
		if p.FiscalYear == fiscalYear {
			return p, true
		}
	}
	return period.ClassifiedPeriod{}, false
}

func (s MetricSeries) byKind(kind period.Kind) []period.ClassifiedPeriod {
	switch kind {
	case period.Quarterly:
		return s.Quarterly
	case period.Annual:
		return s.Annual
	case period.YTD:
		return s.YTD
	}
	return nil
}

func first(list []period.ClassifiedPeriod) (period.ClassifiedPeriod, bool) {
	if len(list) == 0 {
		return period.ClassifiedPeriod{}, false
	}
	return list[0], true
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
