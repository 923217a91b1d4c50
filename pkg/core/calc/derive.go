package calc

import (
	"fmt"

	"filing_metrics/pkg/core/diag"
	"filing_metrics/pkg/core/period"
	"filing_metrics/pkg/core/resolve"
)

// Calculator derives metrics and flags implausible ratios.
type Calculator struct {
	Bounds Bounds
}

func NewCalculator(b Bounds) *Calculator {
	return &Calculator{Bounds: b}
}

// Derive computes every derived metric with the default bounds.
func Derive(series map[resolve.MetricKind]resolve.MetricSeries) Result {
	return NewCalculator(DefaultBounds()).Derive(series)
}

// Derive computes every derived metric whose inputs overlap.
//
// Two flow inputs overlap when they have an entry of the same kind ending on
// the same day. Quarterly entries are tried before annual ones, newest first,
// and the first overlap decides: a non-positive denominator there suppresses
// the metric instead of falling back to an older period.
func (c *Calculator) Derive(series map[resolve.MetricKind]resolve.MetricSeries) Result {
	d := deriver{series: series, out: make(map[string]DerivedMetric)}

	d.grossProfit()
	d.margin(OperatingMarginName, resolve.OperatingIncome)
	d.margin(NetMarginName, resolve.NetIncome)
	d.freeCashFlow()
	d.returnOnEquity()
	d.debtToEquity()

	d.growthYoY(RevenueGrowthYoYName, resolve.Revenue)
	d.growthYoY(NetIncomeGrowthYoYName, resolve.NetIncome)
	d.growthAnnual()
	d.cagr(RevenueCAGRName, resolve.Revenue, 3)
	d.trailingTwelveMonths(TTMRevenueName, resolve.Revenue)
	d.trailingTwelveMonths(TTMNetIncomeName, resolve.NetIncome)

	res := Result{Metrics: d.out, Warnings: c.check(d.out)}
	diag.Sort(res.Warnings)
	return res
}

func (c *Calculator) check(metrics map[string]DerivedMetric) []diag.Warning {
	var ws []diag.Warning
	if m, ok := metrics[NetMarginName]; ok && m.Value > c.Bounds.MaxNetMargin {
		ws = append(ws, diag.Warning{
			Code:      diag.ImplausibleRatio,
			Metric:    m.Name,
			PeriodEnd: m.PeriodEnd,
			Message:   fmt.Sprintf("net margin %.1f%% exceeds %.1f%%", m.Value*100, c.Bounds.MaxNetMargin*100),
		})
	}
	if m, ok := metrics[GrossMarginName]; ok && m.Value < c.Bounds.MinGrossMargin {
		ws = append(ws, diag.Warning{
			Code:      diag.ImplausibleRatio,
			Metric:    m.Name,
			PeriodEnd: m.PeriodEnd,
			Message:   fmt.Sprintf("gross margin %.1f%% below %.1f%%", m.Value*100, c.Bounds.MinGrossMargin*100),
		})
	}
	return ws
}

// =============================================================================
// DERIVER
// =============================================================================

type deriver struct {
	series map[resolve.MetricKind]resolve.MetricSeries
	out    map[string]DerivedMetric
}

func (d *deriver) add(name string, value float64, p period.ClassifiedPeriod, annualized bool) {
	d.out[name] = DerivedMetric{
		Name:       name,
		Value:      value,
		PeriodEnd:  p.PeriodEnd,
		Calculated: true,
		Annualized: annualized,
	}
}

// overlap returns the newest pair of same-kind entries ending on the same day,
// quarterly first.
func (d *deriver) overlap(primary, other resolve.MetricKind) (p, o period.ClassifiedPeriod, ok bool) {
	ps, ok1 := d.series[primary]
	os, ok2 := d.series[other]
	if !ok1 || !ok2 {
		return p, o, false
	}
	for _, list := range [][]period.ClassifiedPeriod{ps.Quarterly, ps.Annual} {
		for _, p := range list {
			if o, ok := os.At(p.Kind, p.PeriodEnd); ok {
				return p, o, true
			}
		}
	}
	return p, o, false
}

// instantAt returns a balance at the given period end, whatever filing reported it.
func (d *deriver) instantAt(m resolve.MetricKind, p period.ClassifiedPeriod) (period.ClassifiedPeriod, bool) {
	s, ok := d.series[m]
	if !ok {
		return period.ClassifiedPeriod{}, false
	}
	if b, ok := s.At(period.Quarterly, p.PeriodEnd); ok {
		return b, true
	}
	return s.At(period.Annual, p.PeriodEnd)
}

func (d *deriver) grossProfit() {
	rev, cost, ok := d.overlap(resolve.Revenue, resolve.CostOfRevenue)
	if !ok {
		return
	}
	gp := GrossProfit(rev.Value, cost.Value)
	d.add(GrossProfitName, gp, rev, false)
	if v, ok := Margin(gp, rev.Value); ok {
		d.add(GrossMarginName, v, rev, false)
	}
}

func (d *deriver) margin(name string, numerator resolve.MetricKind) {
	rev, num, ok := d.overlap(resolve.Revenue, numerator)
	if !ok {
		return
	}
	if v, ok := Margin(num.Value, rev.Value); ok {
		d.add(name, v, rev, false)
	}
}

func (d *deriver) freeCashFlow() {
	ocf, capex, ok := d.overlap(resolve.OperatingCashFlow, resolve.CapitalExpenditures)
	if !ok {
		return
	}
	d.add(FreeCashFlowName, FreeCashFlow(ocf.Value, capex.Value), ocf, false)
}

func (d *deriver) returnOnEquity() {
	ni, ok := d.series[resolve.NetIncome]
	if !ok {
		return
	}
	for _, list := range [][]period.ClassifiedPeriod{ni.Quarterly, ni.Annual} {
		for _, p := range list {
			eq, ok := d.instantAt(resolve.ShareholdersEquity, p)
			if !ok {
				continue
			}
			quarterly := p.Kind == period.Quarterly
			if v, ok := ReturnOnEquity(p.Value, eq.Value, quarterly); ok {
				d.add(ROEName, v, p, quarterly)
			}
			return
		}
	}
}

func (d *deriver) debtToEquity() {
	liab, ok := d.series[resolve.TotalLiabilities]
	if !ok {
		return
	}
	for _, p := range liab.All {
		eq, ok := d.instantAt(resolve.ShareholdersEquity, p)
		if !ok {
			continue
		}
		if v, ok := DebtToEquity(p.Value, eq.Value); ok {
			d.add(DebtToEquityName, v, p, false)
		}
		return
	}
}

// =============================================================================
// GROWTH AND TRAILING TOTALS
// =============================================================================

// growthYoY compares the latest quarter with the same fiscal quarter a year earlier.
func (d *deriver) growthYoY(name string, m resolve.MetricKind) {
	s, ok := d.series[m]
	if !ok {
		return
	}
	cur, ok := s.LatestQuarterly()
	if !ok {
		return
	}
	prior, ok := s.Quarter(cur.FiscalYear-1, cur.FiscalQuarter)
	if !ok || prior.Value == 0 {
		return
	}
	d.add(name, GrowthRate(cur.Value, prior.Value), cur, false)
}

func (d *deriver) growthAnnual() {
	s, ok := d.series[resolve.Revenue]
	if !ok {
		return
	}
	cur, ok := s.LatestAnnual()
	if !ok {
		return
	}
	prior, ok := s.Year(cur.FiscalYear - 1)
	if !ok || prior.Value == 0 {
		return
	}
	d.add(RevenueGrowthAnnualName, GrowthRate(cur.Value, prior.Value), cur, false)
}

func (d *deriver) cagr(name string, m resolve.MetricKind, years int) {
	s, ok := d.series[m]
	if !ok {
		return
	}
	cur, ok := s.LatestAnnual()
	if !ok || cur.Value <= 0 {
		return
	}
	base, ok := s.Year(cur.FiscalYear - years)
	if !ok || base.Value <= 0 {
		return
	}
	d.add(name, CAGR(cur.Value, base.Value, years), cur, false)
}

// trailingTwelveMonths sums the latest four consecutive fiscal quarters.
func (d *deriver) trailingTwelveMonths(name string, m resolve.MetricKind) {
	s, ok := d.series[m]
	if !ok {
		return
	}
	latest, ok := s.LatestQuarterly()
	if !ok {
		return
	}
	fy, q := latest.FiscalYear, latest.FiscalQuarter
	var sum float64
	for i := 0; i < 4; i++ {
		p, ok := s.Quarter(fy, q)
		if !ok {
			return
		}
		sum += p.Value
		q--
		if q == 0 {
			fy, q = fy-1, 4
		}
	}
	d.add(name, sum, latest, false)
}
