// Package resolve maps logical metrics to the XBRL concepts filers actually use.
//
// Issuers tag equivalent facts with different concept names, so every metric
// carries an ordered fallback list. The list is fixed at compile time: a metric
// that does not exist cannot be asked for.
package resolve

import (
	"encoding/json"

	"filing_metrics/pkg/core/facts"
)

// MetricKind enumerates the base metrics the engine resolves.
type MetricKind int

const (
	Revenue MetricKind = iota
	CostOfRevenue
	GrossProfit
	OperatingIncome
	NetIncome
	OperatingCashFlow
	CapitalExpenditures
	TotalAssets
	TotalLiabilities
	ShareholdersEquity
	CashAndEquivalents
	DilutedEPS

	metricCount
)

// Definition describes how one metric is found in the data.
type Definition struct {
	Name     string
	Kind     facts.ConceptKind
	Units    []string
	Concepts []string
}

var usd = []string{"USD"}

var registry = [metricCount]Definition{
	Revenue: {
		Name: "revenue", Kind: facts.Flow, Units: usd,
		Concepts: []string{
			"Revenues",
			"RevenueFromContractWithCustomerExcludingAssessedTax",
			"SalesRevenueNet",
			"RevenueFromContractWithCustomerIncludingAssessedTax",
			"SalesRevenueGoodsNet",
			"SalesRevenueServicesNet",
		},
	},
	CostOfRevenue: {
		Name: "costOfRevenue", Kind: facts.Flow, Units: usd,
		Concepts: []string{
			"CostOfRevenue",
			"CostOfGoodsAndServicesSold",
			"CostOfGoodsSold",
			"CostOfServices",
		},
	},
	GrossProfit: {
		Name: "grossProfitReported", Kind: facts.Flow, Units: usd,
		Concepts: []string{"GrossProfit"},
	},
	OperatingIncome: {
		Name: "operatingIncome", Kind: facts.Flow, Units: usd,
		Concepts: []string{"OperatingIncomeLoss"},
	},
	NetIncome: {
		Name: "netIncome", Kind: facts.Flow, Units: usd,
		Concepts: []string{
			"NetIncomeLoss",
			"ProfitLoss",
			"NetIncomeLossAvailableToCommonStockholdersBasic",
		},
	},
	OperatingCashFlow: {
		Name: "operatingCashFlow", Kind: facts.Flow, Units: usd,
		Concepts: []string{
			"NetCashProvidedByUsedInOperatingActivities",
			"NetCashProvidedByUsedInOperatingActivitiesContinuingOperations",
		},
	},
	CapitalExpenditures: {
		Name: "capitalExpenditures", Kind: facts.Flow, Units: usd,
		Concepts: []string{
			"PaymentsToAcquirePropertyPlantAndEquipment",
			"PaymentsToAcquireProductiveAssets",
			"PaymentsForCapitalImprovements",
		},
	},
	TotalAssets: {
		Name: "totalAssets", Kind: facts.Stock, Units: usd,
		Concepts: []string{"Assets"},
	},
	TotalLiabilities: {
		Name: "totalLiabilities", Kind: facts.Stock, Units: usd,
		Concepts: []string{"Liabilities"},
	},
	ShareholdersEquity: {
		Name: "shareholdersEquity", Kind: facts.Stock, Units: usd,
		Concepts: []string{
			"StockholdersEquity",
			"StockholdersEquityIncludingPortionAttributableToNoncontrollingInterest",
		},
	},
	CashAndEquivalents: {
		Name: "cashAndEquivalents", Kind: facts.Stock, Units: usd,
		Concepts: []string{
			"CashAndCashEquivalentsAtCarryingValue",
			"CashCashEquivalentsRestrictedCashAndRestrictedCashEquivalents",
		},
	},
	DilutedEPS: {
		Name: "dilutedEps", Kind: facts.Flow, Units: []string{"USD/shares"},
		Concepts: []string{"EarningsPerShareDiluted", "EarningsPerShareBasicAndDiluted"},
	},
}

// Metrics returns every metric kind in enumeration order.
func Metrics() []MetricKind {
	out := make([]MetricKind, metricCount)
	for i := range out {
		out[i] = MetricKind(i)
	}
	return out
}

// Definition returns the metric's definition.
func (m MetricKind) Definition() Definition {
	if m < 0 || m >= metricCount {
		return Definition{Name: "unknown"}
	}
	return registry[m]
}

func (m MetricKind) String() string {
	return m.Definition().Name
}

// MarshalText renders the metric by name, so it can key JSON objects.
func (m MetricKind) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// MarshalJSON renders the metric by name.
func (m MetricKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}
