package engine

import (
	"time"

	"github.com/ConstantinVictorBeatErtel/fincast/internal/models"
	"github.com/ConstantinVictorBeatErtel/fincast/internal/numeric"
)

// Metric is a canonical line item name
type Metric string

// Canonical metrics
const (
	MetricRevenue            Metric = "revenue"
	MetricGrossProfit        Metric = "gross profit"
	MetricEBITDA             Metric = "ebitda"
	MetricEBIT               Metric = "ebit"
	MetricNetIncome          Metric = "net income"
	MetricDilutedEPS         Metric = "diluted eps"
	MetricDilutedShares      Metric = "diluted shares"
	MetricTaxProvision       Metric = "tax provision"
	MetricOperatingCashFlow  Metric = "operating cash flow"
	MetricCapitalExpenditure Metric = "capital expenditure"
	MetricFreeCashFlow       Metric = "free cash flow"
	MetricStockholdersEquity Metric = "stockholders equity"
	MetricTotalDebt          Metric = "total debt"
	MetricCash               Metric = "cash"
	MetricSharesOutstanding  Metric = "shares outstanding"
)

// AliasTableVersion is bumped whenever Aliases changes
const AliasTableVersion = 3

// Aliases maps each canonical metric to the row labels providers have used for
// it, most preferred first.
var Aliases = map[Metric][]string{
	MetricRevenue: {
		"Total Revenue",
		"Revenue",
		"Operating Revenue",
		"totalRevenue",
	},
	MetricGrossProfit: {
		"Gross Profit",
		"grossProfit",
	},
	MetricEBITDA: {
		"EBITDA",
		"Normalized EBITDA",
		"ebitda",
	},
	MetricEBIT: {
		"EBIT",
		"Operating Income",
		"operatingIncome",
	},
	MetricNetIncome: {
		"Net Income",
		"Net Income Common Stockholders",
		"Net Income From Continuing Operation Net Minority Interest",
		"netIncome",
	},
	MetricDilutedEPS: {
		"Diluted EPS",
		"dilutedEPS",
	},
	MetricDilutedShares: {
		"Diluted Average Shares",
		"dilutedAverageShares",
	},
	MetricTaxProvision: {
		"Tax Provision",
		"Income Tax Expense",
		"incomeTaxExpense",
	},
	MetricOperatingCashFlow: {
		"Operating Cash Flow",
		"Total Cash From Operating Activities",
		"Cash Flow From Operating Activities",
		"totalCashFromOperatingActivities",
	},
	MetricCapitalExpenditure: {
		"Capital Expenditure",
		"Capital Expenditures",
		"capitalExpenditures",
	},
	MetricFreeCashFlow: {
		"Free Cash Flow",
		"freeCashFlow",
	},
	MetricStockholdersEquity: {
		"Stockholders Equity",
		"Total Stockholder Equity",
		"Common Stock Equity",
		"totalStockholderEquity",
	},
	MetricTotalDebt: {
		"Total Debt",
		"Long Term Debt",
		"totalDebt",
	},
	MetricCash: {
		"Cash And Cash Equivalents",
		"Cash Cash Equivalents And Short Term Investments",
		"Cash",
		"cash",
	},
	MetricSharesOutstanding: {
		"Ordinary Shares Number",
		"Share Issued",
		"sharesOutstanding",
	},
}

// resolveLabel returns the first alias of m present as a row in table
func resolveLabel(table *models.StatementTable, m Metric) (string, bool) {
	if table == nil {
		return "", false
	}
	for _, label := range Aliases[m] {
		if table.HasRow(label) {
			return label, true
		}
	}
	return "", false
}

// HasMetric reports whether any alias of m is a row of table
func HasMetric(table *models.StatementTable, m Metric) bool {
	_, ok := resolveLabel(table, m)
	return ok
}

// Resolve returns the value of m for period, or 0 when no alias is present.
// The first alias found as a row wins even when its cell is missing.
func Resolve(table *models.StatementTable, m Metric, period time.Time) float64 {
	v, _ := Lookup(table, m, period)
	return v
}

// Lookup is Resolve that also reports whether a finite value was found
func Lookup(table *models.StatementTable, m Metric, period time.Time) (float64, bool) {
	label, ok := resolveLabel(table, m)
	if !ok {
		return 0, false
	}
	raw, ok := table.Value(label, period)
	if !ok {
		return 0, false
	}
	return numeric.ToFloat(raw)
}
