package calc

import (
	"math"
	"testing"
	"time"

	"filing_metrics/pkg/core/diag"
	"filing_metrics/pkg/core/facts"
	"filing_metrics/pkg/core/period"
	"filing_metrics/pkg/core/resolve"
)

func date(s string) time.Time {
	t, err := time.Parse(facts.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func quarter(end string, fy, fq int, v float64) period.ClassifiedPeriod {
	return period.ClassifiedPeriod{PeriodEnd: date(end), Value: v, Kind: period.Quarterly, FiscalYear: fy, FiscalQuarter: fq}
}

func annual(end string, fy int, v float64) period.ClassifiedPeriod {
	return period.ClassifiedPeriod{PeriodEnd: date(end), Value: v, Kind: period.Annual, FiscalYear: fy, FiscalQuarter: 4}
}

// seriesOf builds a series from entries given newest first.
func seriesOf(m resolve.MetricKind, entries ...period.ClassifiedPeriod) resolve.MetricSeries {
	s := resolve.MetricSeries{Metric: m, All: entries}
	for _, p := range entries {
		switch p.Kind {
		case period.Quarterly:
			s.Quarterly = append(s.Quarterly, p)
		case period.Annual:
			s.Annual = append(s.Annual, p)
		case period.YTD:
			s.YTD = append(s.YTD, p)
		}
	}
	return s
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestDerive_NetMarginImplausibleButReported(t *testing.T) {
	series := map[resolve.MetricKind]resolve.MetricSeries{
		resolve.Revenue:       seriesOf(resolve.Revenue, annual("2023-12-31", 2023, 100e6)),
		resolve.CostOfRevenue: seriesOf(resolve.CostOfRevenue, annual("2023-12-31", 2023, 40e6)),
		resolve.NetIncome:     seriesOf(resolve.NetIncome, annual("2023-12-31", 2023, 250e6)),
	}
	res := Derive(series)

	nm, ok := res.Get(NetMarginName)
	if !ok || !near(nm.Value, 2.5) {
		t.Fatalf("Expected net margin 2.5 to be reported, got %+v", nm)
	}
	if gm, _ := res.Get(GrossMarginName); !near(gm.Value, 0.6) {
		t.Errorf("Expected gross margin 0.6, got %v", gm.Value)
	}
	if gp, _ := res.Get(GrossProfitName); gp.Value != 60e6 || !gp.Calculated {
		t.Errorf("Expected calculated gross profit 60M, got %+v", gp)
	}
	if diag.Count(res.Warnings, diag.ImplausibleRatio) != 1 {
		t.Errorf("Expected one implausible-ratio warning, got %v", res.Warnings)
	}
	if !DefaultBounds().Implausible(res.Metrics) {
		t.Error("Expected the bounds to flag the result")
	}
}

func TestDerive_GrossMarginGating(t *testing.T) {
	rev := seriesOf(resolve.Revenue, quarter("2024-03-31", 2024, 1, 100))

	tests := []struct {
		name string
		cost []period.ClassifiedPeriod
		want bool
	}{
		{"no cost of revenue", nil, false},
		{"cost for another period", []period.ClassifiedPeriod{quarter("2023-12-31", 2023, 4, 40)}, false},
		{"cost annual at the same end", []period.ClassifiedPeriod{annual("2024-03-31", 2024, 40)}, false},
		{"overlapping cost", []period.ClassifiedPeriod{quarter("2024-03-31", 2024, 1, 40)}, true},
	}
	for _, tt := range tests {
		series := map[resolve.MetricKind]resolve.MetricSeries{resolve.Revenue: rev}
		if tt.cost != nil {
			series[resolve.CostOfRevenue] = seriesOf(resolve.CostOfRevenue, tt.cost...)
		}
		res := Derive(series)
		if got := res.Has(GrossMarginName); got != tt.want {
			t.Errorf("%s: expected grossMargin present=%v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestDerive_OverlapFallsBackToOlderQuarter(t *testing.T) {
	series := map[resolve.MetricKind]resolve.MetricSeries{
		resolve.Revenue: seriesOf(resolve.Revenue,
			quarter("2024-06-30", 2024, 2, 200),
			quarter("2024-03-31", 2024, 1, 100),
		),
		resolve.OperatingIncome: seriesOf(resolve.OperatingIncome, quarter("2024-03-31", 2024, 1, 25)),
	}
	om, ok := Derive(series).Get(OperatingMarginName)
	if !ok || !near(om.Value, 0.25) || !om.PeriodEnd.Equal(date("2024-03-31")) {
		t.Errorf("Expected 0.25 at 2024-03-31, got %+v", om)
	}
}

func TestDerive_NonPositiveDenominatorSuppressesOnlyThatMetric(t *testing.T) {
	series := map[resolve.MetricKind]resolve.MetricSeries{
		resolve.Revenue:             seriesOf(resolve.Revenue, quarter("2024-03-31", 2024, 1, -5)),
		resolve.NetIncome:           seriesOf(resolve.NetIncome, quarter("2024-03-31", 2024, 1, 10)),
		resolve.ShareholdersEquity:  seriesOf(resolve.ShareholdersEquity, quarter("2024-03-31", 2024, 1, -50)),
		resolve.TotalLiabilities:    seriesOf(resolve.TotalLiabilities, quarter("2024-03-31", 2024, 1, 500)),
		resolve.OperatingCashFlow:   seriesOf(resolve.OperatingCashFlow, quarter("2024-03-31", 2024, 1, 30)),
		resolve.CapitalExpenditures: seriesOf(resolve.CapitalExpenditures, quarter("2024-03-31", 2024, 1, 10)),
	}

	res := Derive(series)
	if res.Has(NetMarginName, ROEName, DebtToEquityName) {
		t.Errorf("Expected margin and equity ratios suppressed, got %v", res.Metrics)
	}
	if fcf, ok := res.Get(FreeCashFlowName); !ok || fcf.Value != 20 {
		t.Errorf("Expected free cash flow unaffected, got %+v", fcf)
	}
}

func TestDerive_ROEAnnualization(t *testing.T) {
	equity := seriesOf(resolve.ShareholdersEquity,
		quarter("2024-03-31", 2024, 1, 400),
		annual("2023-12-31", 2023, 380),
	)

	quarterly := Derive(map[resolve.MetricKind]resolve.MetricSeries{
		resolve.NetIncome:          seriesOf(resolve.NetIncome, quarter("2024-03-31", 2024, 1, 10)),
		resolve.ShareholdersEquity: equity,
	})
	roe, ok := quarterly.Get(ROEName)
	if !ok || !near(roe.Value, 0.1) || !roe.Annualized {
		t.Errorf("Expected annualized ROE 0.1, got %+v", roe)
	}

	yearly := Derive(map[resolve.MetricKind]resolve.MetricSeries{
		resolve.NetIncome:          seriesOf(resolve.NetIncome, annual("2023-12-31", 2023, 38)),
		resolve.ShareholdersEquity: equity,
	})
	roe, ok = yearly.Get(ROEName)
	if !ok || !near(roe.Value, 0.1) || roe.Annualized {
		t.Errorf("Expected unannualized ROE 0.1, got %+v", roe)
	}
}

func TestDerive_FreeCashFlowAndDebtToEquity(t *testing.T) {
	series := map[resolve.MetricKind]resolve.MetricSeries{
		resolve.OperatingCashFlow:   seriesOf(resolve.OperatingCashFlow, annual("2023-12-31", 2023, 300)),
		resolve.CapitalExpenditures: seriesOf(resolve.CapitalExpenditures, annual("2023-12-31", 2023, -120)),
		resolve.TotalLiabilities:    seriesOf(resolve.TotalLiabilities, annual("2023-12-31", 2023, 600)),
		resolve.ShareholdersEquity:  seriesOf(resolve.ShareholdersEquity, annual("2023-12-31", 2023, 400)),
	}
	res := Derive(series)
	if fcf, _ := res.Get(FreeCashFlowName); fcf.Value != 180 {
		t.Errorf("Expected FCF 180 with negative capex, got %v", fcf.Value)
	}
	if de, _ := res.Get(DebtToEquityName); !near(de.Value, 1.5) {
		t.Errorf("Expected D/E 1.5, got %v", de.Value)
	}
}

func TestDerive_GrowthAndTTM(t *testing.T) {
	rev := seriesOf(resolve.Revenue,
		quarter("2024-03-31", 2024, 1, 120),
		annual("2023-12-31", 2023, 440),
		quarter("2023-12-31", 2023, 4, 115),
		quarter("2023-09-30", 2023, 3, 110),
		quarter("2023-06-30", 2023, 2, 105),
		quarter("2023-03-31", 2023, 1, 100),
		annual("2022-12-31", 2022, 400),
		annual("2020-12-31", 2020, 220),
	)
	res := Derive(map[resolve.MetricKind]resolve.MetricSeries{resolve.Revenue: rev})

	if g, _ := res.Get(RevenueGrowthYoYName); !near(g.Value, 0.2) {
		t.Errorf("Expected YoY growth 0.2, got %v", g.Value)
	}
	if g, _ := res.Get(RevenueGrowthAnnualName); !near(g.Value, 0.1) {
		t.Errorf("Expected annual growth 0.1, got %v", g.Value)
	}
	if g, _ := res.Get(RevenueCAGRName); !near(g.Value, math.Pow(2, 1.0/3)-1) {
		t.Errorf("Expected 3y CAGR of a doubling, got %v", g.Value)
	}
	if ttm, _ := res.Get(TTMRevenueName); ttm.Value != 120+115+110+105 {
		t.Errorf("Expected TTM 450, got %v", ttm.Value)
	}
	if res.Has(NetIncomeGrowthYoYName, TTMNetIncomeName) {
		t.Error("Expected no net income metrics without net income")
	}
}

func TestDerive_TTMNeedsFourConsecutiveQuarters(t *testing.T) {
	rev := seriesOf(resolve.Revenue,
		quarter("2024-03-31", 2024, 1, 120),
		quarter("2023-09-30", 2023, 3, 110),
		quarter("2023-06-30", 2023, 2, 105),
		quarter("2023-03-31", 2023, 1, 100),
	)
	res := Derive(map[resolve.MetricKind]resolve.MetricSeries{resolve.Revenue: rev})
	if res.Has(TTMRevenueName) {
		t.Error("Expected no TTM with a missing Q4")
	}
	if !res.Has(RevenueGrowthYoYName) {
		t.Error("Expected YoY growth from Q1 to Q1")
	}
}

func TestDerive_Empty(t *testing.T) {
	res := Derive(nil)
	if len(res.Metrics) != 0 || len(res.Warnings) != 0 {
		t.Errorf("Expected nothing from no series, got %+v", res)
	}
}

func TestGrowthRate(t *testing.T) {
	tests := []struct {
		current, prior, want float64
	}{
		{110, 100, 0.1},
		{-50, -100, 0.5},
		{10, 0, 0},
	}
	for _, tt := range tests {
		if got := GrowthRate(tt.current, tt.prior); !near(got, tt.want) {
			t.Errorf("GrowthRate(%v, %v) = %v, want %v", tt.current, tt.prior, got, tt.want)
		}
	}
}
