package quality

import (
	"fmt"
	"math"

	"filing_metrics/pkg/core/diag"
	"filing_metrics/pkg/core/period"
	"filing_metrics/pkg/core/resolve"
)

// BalanceCheck verifies Assets = Liabilities + Equity at one period end.
type BalanceCheck struct {
	Period      period.ClassifiedPeriod
	Liabilities float64
	Equity      float64
	Difference  float64 // A - (L + E)
	Balanced    bool
}

// CheckBalance tests the accounting identity at every period end where all
// three balances are reported under the same classification. Mismatches beyond
// tolerance (a fraction of assets) become warnings; they do not affect the score.
func CheckBalance(series map[resolve.MetricKind]resolve.MetricSeries, tolerance float64) ([]BalanceCheck, []diag.Warning) {
	if tolerance <= 0 {
		return nil, nil
	}
	assets, ok := series[resolve.TotalAssets]
	if !ok {
		return nil, nil
	}
	liabilities, equity := series[resolve.TotalLiabilities], series[resolve.ShareholdersEquity]

	var (
		checks   []BalanceCheck
		warnings []diag.Warning
	)
	for _, a := range assets.All {
		l, okL := liabilities.At(a.Kind, a.PeriodEnd)
		e, okE := equity.At(a.Kind, a.PeriodEnd)
		if !okL || !okE {
			continue
		}

		c := BalanceCheck{Period: a, Liabilities: l.Value, Equity: e.Value}
		c.Difference = a.Value - (l.Value + e.Value)
		c.Balanced = math.Abs(c.Difference) <= tolerance*math.Abs(a.Value)
		checks = append(checks, c)

		if !c.Balanced {
			warnings = append(warnings, diag.Warning{
				Code:      diag.BalanceMismatch,
				Metric:    resolve.TotalAssets.String(),
				PeriodEnd: a.PeriodEnd,
				Message: fmt.Sprintf("assets %.0f differ from liabilities + equity %.0f by %.0f",
					a.Value, l.Value+e.Value, c.Difference),
			})
		}
	}
	return checks, warnings
}
