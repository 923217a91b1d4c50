package period

import (
	"sort"
	"time"
)

// deriveMissingQuarters fills discrete quarters that no filing reported by
// differencing cumulative values of the same fiscal year:
//
//	Q2 = YTD(6m) - Q1, Q3 = YTD(9m) - YTD(6m), Q4 = Annual - YTD(9m)
//
// When the preceding cumulative value is missing, the sum of the preceding
// quarters stands in for it. Derived entries are marked Derived.
//
// A Quarterly entry whose known span runs past the quarter window was kept by
// the default-to-quarterly rule; it counts as cumulative here and is replaced
// when its quarter can be derived.
func (c *Classifier) deriveMissingQuarters(res *Result) {
	years := make(map[int]bool)
	quarters := make(map[int]map[int]ClassifiedPeriod)
	cumulative := make(map[int]map[int]ClassifiedPeriod)
	replaced := make(map[ClassifiedPeriod]bool)

	put := func(m map[int]map[int]ClassifiedPeriod, p ClassifiedPeriod) {
		if m[p.FiscalYear] == nil {
			m[p.FiscalYear] = make(map[int]ClassifiedPeriod)
		}
		m[p.FiscalYear][p.FiscalQuarter] = p
		years[p.FiscalYear] = true
	}
	for _, p := range res.Quarterly {
		if c.isCumulativeSpan(p) {
			put(cumulative, p)
			continue
		}
		put(quarters, p)
	}
	for _, p := range res.YTD {
		if _, ok := cumulative[p.FiscalYear][p.FiscalQuarter]; !ok {
			put(cumulative, p)
		}
	}
	for _, p := range res.Annual {
		if _, ok := cumulative[p.FiscalYear][4]; !ok {
			put(cumulative, p)
		}
	}

	sorted := make([]int, 0, len(years))
	for fy := range years {
		sorted = append(sorted, fy)
	}
	sort.Ints(sorted)

	for _, fy := range sorted {
		if quarters[fy] == nil {
			quarters[fy] = make(map[int]ClassifiedPeriod)
		}
		for q := 2; q <= 4; q++ {
			if _, ok := quarters[fy][q]; ok {
				continue
			}
			cum, ok := cumulative[fy][q]
			if !ok {
				continue
			}
			prevValue, prevEnd, ok := cumulativeThrough(quarters[fy], cumulative[fy], q-1)
			if !ok {
				continue
			}
			value := cum.Value - prevValue
			if value == 0 {
				continue
			}

			derived := cum
			derived.Kind = Quarterly
			derived.Value = value
			derived.PeriodStart = prevEnd.AddDate(0, 0, 1)
			derived.FiscalQuarter = q
			derived.Derived = true
			quarters[fy][q] = derived
			if cum.Kind == Quarterly {
				replaced[cum] = true
			}
			res.Quarterly = append(res.Quarterly, derived)
		}
	}

	if len(replaced) == 0 {
		return
	}
	kept := res.Quarterly[:0]
	for _, p := range res.Quarterly {
		if !replaced[p] {
			kept = append(kept, p)
		}
	}
	res.Quarterly = kept
}

// isCumulativeSpan reports whether a non-Q1 Quarterly entry spans more than a quarter.
func (c *Classifier) isCumulativeSpan(p ClassifiedPeriod) bool {
	if p.Kind != Quarterly || p.FiscalQuarter == 1 || p.Derived || p.PeriodStart.IsZero() {
		return false
	}
	return int(p.PeriodEnd.Sub(p.PeriodStart).Hours()/24)+1 > c.Thresholds.QuarterMaxDays
}

// cumulativeThrough returns the fiscal-year-to-date value through quarter q
// and the period end it runs to.
func cumulativeThrough(quarters, cumulative map[int]ClassifiedPeriod, q int) (float64, time.Time, bool) {
	if q == 1 {
		p, ok := quarters[1]
		return p.Value, p.PeriodEnd, ok
	}
	if p, ok := cumulative[q]; ok {
		return p.Value, p.PeriodEnd, true
	}

	var sum float64
	var end time.Time
	for i := 1; i <= q; i++ {
		p, ok := quarters[i]
		if !ok {
			return 0, time.Time{}, false
		}
		sum += p.Value
		end = p.PeriodEnd
	}
	return sum, end, true
}
