package period

import (
	"fmt"

	"filing_metrics/pkg/core/diag"
	"filing_metrics/pkg/core/facts"
)

// Classifier turns the facts of one concept into classified periods.
// It holds only configuration and is safe for concurrent use.
type Classifier struct {
	Thresholds Thresholds
}

// NewClassifier creates a classifier with the given thresholds.
func NewClassifier(t Thresholds) *Classifier {
	return &Classifier{Thresholds: t}
}

// Classify classifies the facts of a single concept.
// Zero valid buckets is a normal "no data" outcome and yields an empty Result.
func (c *Classifier) Classify(kind facts.ConceptKind, list []facts.Fact) Result {
	buckets := Bucketize(list)
	if len(buckets) == 0 {
		return Result{}
	}

	var res Result
	if kind == facts.Stock {
		res = c.classifyStock(buckets)
	} else {
		res = c.classifyFlow(buckets)
		if c.Thresholds.DeriveMissingQuarters {
			c.deriveMissingQuarters(&res)
		}
	}

	sortDescending(res.Quarterly)
	sortDescending(res.Annual)
	sortDescending(res.YTD)
	diag.Sort(res.Warnings)
	return res
}

// =============================================================================
// FLOW CONCEPTS
// =============================================================================

func (c *Classifier) classifyFlow(buckets []Bucket) Result {
	var res Result
	res.Annual = c.dedupeAnnual(c.collectAnnual(buckets))

	q1Refs := c.firstQuarterReferences(buckets)

	for _, b := range buckets {
		quarterly := filterFilingType(b.Facts, facts.FilingQuarterly)
		if len(quarterly) == 0 {
			continue
		}
		pos := c.Thresholds.FiscalPosition(b.End)
		c.classifyByRatio(&res, b, c.narrowByDuration(quarterly), pos, q1Refs)
	}
	return res
}

// narrowByDuration keeps only the quarter-length facts of a bucket whose facts
// all carry a start date. Longer duplicates of the same period end are dropped.
// A bucket with no quarter-length fact is returned unchanged and left to the
// ratio rule.
func (c *Classifier) narrowByDuration(quarterly []facts.Fact) []facts.Fact {
	if !c.Thresholds.UseDurationHints || !allHaveDuration(quarterly) {
		return quarterly
	}
	if q := c.quarterCandidates(quarterly); len(q) > 0 {
		return q
	}
	return quarterly
}

// collectAnnual gathers annual-filing facts that can be fiscal-year totals.
// A fact with a known duration outside the annual window is a quarter or
// partial-year figure carried in a 10-K and is not an annual total.
func (c *Classifier) collectAnnual(buckets []Bucket) []facts.Fact {
	var out []facts.Fact
	for _, b := range buckets {
		for _, f := range b.Facts {
			if f.FilingType != facts.FilingAnnual {
				continue
			}
			if days, ok := f.DurationDays(); ok && !c.Thresholds.isAnnualDuration(days) {
				continue
			}
			out = append(out, f)
		}
	}
	return out
}

// dedupeAnnual keeps one annual value per fiscal year: the most recently filed.
// Older filings for the same year are dropped as lower-confidence restatements.
func (c *Classifier) dedupeAnnual(list []facts.Fact) []ClassifiedPeriod {
	winners := make(map[int]facts.Fact)
	var years []int
	for _, f := range list {
		fy := c.Thresholds.FiscalPosition(f.End).FiscalYear
		cur, ok := winners[fy]
		if !ok {
			years = append(years, fy)
			winners[fy] = f
			continue
		}
		if newerAnnual(f, cur) {
			winners[fy] = f
		}
	}

	out := make([]ClassifiedPeriod, 0, len(years))
	for _, fy := range years {
		out = append(out, c.classified(winners[fy], Annual))
	}
	return out
}

// newerAnnual orders annual candidates of one fiscal year: latest filing date,
// then latest period end, then the canonical selector order.
func newerAnnual(incoming, existing facts.Fact) bool {
	if !incoming.Filed.Equal(existing.Filed) {
		return incoming.Filed.After(existing.Filed)
	}
	if !incoming.End.Equal(existing.End) {
		return incoming.End.After(existing.End)
	}
	return supersedes(incoming, existing, false)
}

// firstQuarterReferences returns the canonical fiscal-Q1 quarterly value per fiscal year.
func (c *Classifier) firstQuarterReferences(buckets []Bucket) map[int]facts.Fact {
	refs := make(map[int]facts.Fact)
	for _, b := range buckets {
		pos := c.Thresholds.FiscalPosition(b.End)
		if !pos.IsFirstQuarter() {
			continue
		}
		quarterly := c.narrowByDuration(filterFilingType(b.Facts, facts.FilingQuarterly))
		f, ok := SelectCanonical(quarterly, false)
		if !ok {
			continue
		}
		if cur, seen := refs[pos.FiscalYear]; !seen || supersedes(f, cur, false) {
			refs[pos.FiscalYear] = f
		}
	}
	return refs
}

// classifyByRatio applies the ratio heuristic to the bucket's most recent fact.
// Earlier re-filed duplicates are dropped, not retained as YTD.
//
// Misreading a true YTD value as a quarter is judged less harmful than throwing
// away a real quarter, so every unclear case defaults to Quarterly.
func (c *Classifier) classifyByRatio(res *Result, b Bucket, quarterly []facts.Fact, pos Position, q1Refs map[int]facts.Fact) {
	latest, _ := SelectCanonical(quarterly, false)

	if pos.IsFirstQuarter() {
		res.Quarterly = append(res.Quarterly, c.classified(latest, Quarterly))
		return
	}

	q1, ok := q1Refs[pos.FiscalYear]
	if !ok {
		res.Quarterly = append(res.Quarterly, c.classified(latest, Quarterly))
		res.Warnings = append(res.Warnings, diag.Warning{
			Code:      diag.AmbiguousPeriod,
			Concept:   b.Concept,
			PeriodEnd: b.End,
			Message:   fmt.Sprintf("no Q1 reference for fiscal year %d; defaulted to quarterly", pos.FiscalYear),
		})
		return
	}

	ratio := latest.Value / q1.Value
	if ratio >= c.Thresholds.YTDRatioThreshold && pos.IsFourthQuarter() {
		res.YTD = append(res.YTD, c.classified(latest, YTD))
		return
	}
	res.Quarterly = append(res.Quarterly, c.classified(latest, Quarterly))

	if days, ok := latest.DurationDays(); ok && days > c.Thresholds.QuarterMaxDays {
		res.Warnings = append(res.Warnings, diag.Warning{
			Code:      diag.AmbiguousPeriod,
			Concept:   b.Concept,
			PeriodEnd: b.End,
			Message: fmt.Sprintf("%d-day span at ratio %.2f to Q1 is below the YTD rule; defaulted to quarterly",
				days, ratio),
		})
	}
}

func (c *Classifier) quarterCandidates(list []facts.Fact) []facts.Fact {
	var out []facts.Fact
	for _, f := range list {
		if days, ok := f.DurationDays(); ok && c.Thresholds.isQuarterDuration(days) {
			out = append(out, f)
		}
	}
	return out
}

// =============================================================================
// STOCK CONCEPTS
// =============================================================================

// classifyStock keeps one canonical instant per period end, preferring 10-Q
// values on equal filing dates. The kind mirrors the winning filing's type and
// at most one annual instant survives per fiscal year.
func (c *Classifier) classifyStock(buckets []Bucket) Result {
	var res Result
	annual := make(map[int]facts.Fact)
	var years []int

	for _, b := range buckets {
		candidates := make([]facts.Fact, 0, len(b.Facts))
		for _, f := range b.Facts {
			if f.FilingType != facts.FilingOther {
				candidates = append(candidates, f)
			}
		}
		f, ok := SelectCanonical(candidates, true)
		if !ok {
			continue
		}

		if f.FilingType != facts.FilingAnnual {
			res.Quarterly = append(res.Quarterly, c.classified(f, Quarterly))
			continue
		}

		fy := c.Thresholds.FiscalPosition(f.End).FiscalYear
		cur, seen := annual[fy]
		if !seen {
			years = append(years, fy)
			annual[fy] = f
		} else if newerAnnual(f, cur) {
			annual[fy] = f
		}
	}

	for _, fy := range years {
		res.Annual = append(res.Annual, c.classified(annual[fy], Annual))
	}
	return res
}

// =============================================================================
// HELPERS
// =============================================================================

func (c *Classifier) classified(f facts.Fact, kind Kind) ClassifiedPeriod {
	pos := c.Thresholds.FiscalPosition(f.End)
	return ClassifiedPeriod{
		Concept:       f.Concept,
		Unit:          f.Unit,
		PeriodEnd:     dateOnly(f.End),
		PeriodStart:   f.Start,
		Value:         f.Value,
		Kind:          kind,
		FilingType:    f.FilingType,
		Form:          f.Form,
		FilingDate:    f.Filed,
		Accession:     f.Accession,
		FiscalYear:    pos.FiscalYear,
		FiscalQuarter: pos.Quarter,
	}
}

func filterFilingType(list []facts.Fact, t facts.FilingType) []facts.Fact {
	var out []facts.Fact
	for _, f := range list {
		if f.FilingType == t {
			out = append(out, f)
		}
	}
	return out
}

func allHaveDuration(list []facts.Fact) bool {
	if len(list) == 0 {
		return false
	}
	for _, f := range list {
		if !f.HasStart() {
			return false
		}
	}
	return true
}
