package models

import "time"

// Report source constants
const (
	SourceStatements            = "statements"
	SourceStatementsAlternative = "statements_alternative"
)

// TTM basis constants
const (
	BasisTTM    = "ttm"
	BasisAnnual = "annual"
)

// Free cash flow source constants, in fallback order
const (
	FCFSourceDirect      = "direct"
	FCFSourceComputed    = "computed"
	FCFSourceAnnualProxy = "annual_proxy"
	FCFSourceEstimated   = "estimated"
)

// Exchange rate source constants
const (
	RateSourceNone     = "none"
	RateSourceLive     = "exchangerate-api"
	RateSourceFallback = "fallback-table"
)

// FiscalInfo anchors the TTM window to a fiscal quarter
type FiscalInfo struct {
	LatestQuarterDate  string `json:"latest_quarter_date"`
	LatestQuarterLabel string `json:"latest_quarter_label"` // "Qn FYyy"
	TTMLabel           string `json:"ttm_label"`            // "TTM (As of Qn FYyy)"
	CurrentFiscalYear  int    `json:"current_fiscal_year"`
	FiscalQuarter      int    `json:"fiscal_quarter"`
}

// PeriodMetrics holds one reporting period of the historical series. Monetary
// values are absolute USD. Every margin and ratio is 0 when its denominator is
// zero or missing.
type PeriodMetrics struct {
	Year            string    `json:"year"`
	PeriodEnd       time.Time `json:"period_end"`
	Revenue         float64   `json:"revenue"`
	RevenueGrowth   float64   `json:"revenueGrowth"`
	GrossProfit     float64   `json:"grossProfit"`
	GrossMargin     float64   `json:"grossMargin"`
	EBITDA          float64   `json:"ebitda"`
	EBITDAMargin    float64   `json:"ebitdaMargin"`
	NetIncome       float64   `json:"netIncome"`
	NetIncomeMargin float64   `json:"netIncomeMargin"`
	EPS             float64   `json:"eps"`
	FCF             float64   `json:"fcf"`
	FCFMargin       float64   `json:"fcfMargin"`
	ROIC            float64   `json:"roic"`
	Price           float64   `json:"price"`
	MarketCap       float64   `json:"marketCap"`
	EnterpriseValue float64   `json:"enterpriseValue"`
	PERatio         float64   `json:"peRatio"`
	PSRatio         float64   `json:"psRatio"`
	EVEBITDA        float64   `json:"evEbitda"`
	EVFCF           float64   `json:"evFcf"`
	FCFYield        float64   `json:"fcfYield"`
	IsTTM           bool      `json:"isTTM,omitempty"`
}

// TTMFinancials is the headline trailing-twelve-month block. When quarterly
// data is unusable it carries the latest annual period instead (Basis
// "annual").
type TTMFinancials struct {
	Revenue            float64 `json:"revenue"`
	GrossProfit        float64 `json:"gross_profit"`
	GrossMarginPct     float64 `json:"gross_margin_pct"`
	EBITDA             float64 `json:"ebitda"`
	EBITDAMarginPct    float64 `json:"ebitda_margin_pct"`
	NetIncome          float64 `json:"net_income"`
	NetIncomeMarginPct float64 `json:"net_income_margin_pct"`
	EPS                float64 `json:"eps"`
	SharesOutstanding  float64 `json:"shares_outstanding"`
	OperatingCashFlow  float64 `json:"operating_cash_flow"`
	CapitalExpenditure float64 `json:"capital_expenditure"`
	FCF                float64 `json:"fcf"`
	FCFMarginPct       float64 `json:"fcf_margin_pct"`
	FCFSource          string  `json:"fcf_source"`
	ROIC               float64 `json:"roic"`
	PSRatio            float64 `json:"ps_ratio"`
	EVEBITDA           float64 `json:"ev_ebitda"`
	EVFCF              float64 `json:"ev_fcf"`
	FCFYield           float64 `json:"fcf_yield"`
	QuartersUsed       int     `json:"quarters_used"`
	Basis              string  `json:"basis"`
	PeriodLabel        string  `json:"period_label"`
	LatestQuarter      string  `json:"latest_quarter,omitempty"`
}

// MarketData holds the current market snapshot in USD
type MarketData struct {
	CurrentPrice    float64 `json:"current_price"`
	MarketCap       float64 `json:"market_cap"`
	EnterpriseValue float64 `json:"enterprise_value"`
	PERatio         float64 `json:"pe_ratio"`
}

// CurrencyInfo records the reporting-currency conversion applied to a report
type CurrencyInfo struct {
	OriginalCurrency   string  `json:"original_currency"`
	ConvertedToUSD     bool    `json:"converted_to_usd"`
	ConversionRate     float64 `json:"conversion_rate"`
	ExchangeRateSource string  `json:"exchange_rate_source"`
}

// ValuationPoint is one quarter of the price-aligned valuation history
type ValuationPoint struct {
	Date         time.Time `json:"date"`
	Quarter      string    `json:"quarter"`
	Price        float64   `json:"price"`
	MarketCap    float64   `json:"marketCap"`
	Revenue      float64   `json:"revenue"`
	NetIncome    float64   `json:"netIncome"`
	EBITDA       float64   `json:"ebitda"`
	PERatio      float64   `json:"peRatio"`
	PSRatio      float64   `json:"psRatio"`
	EVEBITDA     float64   `json:"evEbitda"`
	QuartersUsed int       `json:"quartersUsed"`
}

// FinancialsReport is the normalized output for one company
type FinancialsReport struct {
	Symbol               string           `json:"symbol"`
	CompanyName          string           `json:"company_name"`
	Source               string           `json:"source"`
	FiscalInfo           FiscalInfo       `json:"fiscal_info"`
	TTMFinancials        TTMFinancials    `json:"ttm_financials"`
	HistoricalFinancials []PeriodMetrics  `json:"historical_financials"`
	ValuationHistory     []ValuationPoint `json:"valuation_history"`
	MarketData           MarketData       `json:"market_data"`
	CurrencyInfo         CurrencyInfo     `json:"currency_info"`
	AliasTableVersion    int              `json:"alias_table_version"`
	GeneratedAt          time.Time        `json:"generated_at"`
}

// Degraded reports whether the report is the zeroed fallback
func (r *FinancialsReport) Degraded() bool {
	return r.Source == SourceStatementsAlternative
}
