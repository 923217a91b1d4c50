package calc

import "math"

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// ratio divides only by a strictly positive denominator.
func ratio(numerator, denominator float64) (float64, bool) {
	if denominator <= 0 {
		return 0, false
	}
	return numerator / denominator, true
}

// =============================================================================
// PROFITABILITY
// =============================================================================

func GrossProfit(revenue, costOfRevenue float64) float64 {
	return revenue - costOfRevenue
}

// Margin returns value / revenue, or false when revenue is not positive.
func Margin(value, revenue float64) (float64, bool) {
	return ratio(value, revenue)
}

// FreeCashFlow subtracts capital expenditures regardless of the sign they were reported with.
func FreeCashFlow(operatingCashFlow, capex float64) float64 {
	return operatingCashFlow - math.Abs(capex)
}

// ReturnOnEquity annualizes a quarterly net income by four.
func ReturnOnEquity(netIncome, equity float64, quarterly bool) (float64, bool) {
	if quarterly {
		netIncome *= 4
	}
	return ratio(netIncome, equity)
}

// =============================================================================
// SOLVENCY
// =============================================================================

func DebtToEquity(totalLiabilities, equity float64) (float64, bool) {
	return ratio(totalLiabilities, equity)
}

// =============================================================================
// GROWTH METRICS
// =============================================================================

func GrowthRate(current, prior float64) float64 {
	if prior == 0 {
		return 0
	}
	return (current - prior) / math.Abs(prior)
}

func CAGR(endingValue, beginningValue float64, years int) float64 {
	if beginningValue == 0 || years == 0 {
		return 0
	}
	return math.Pow(endingValue/beginningValue, 1.0/float64(years)) - 1
}
