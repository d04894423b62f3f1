package models

import "time"

// CompanyInfo holds the per-company metadata the engine consumes. Every field
// is optional; zero values mean "not supplied".
type CompanyInfo struct {
	Symbol            string     `json:"symbol"`
	LongName          string     `json:"long_name,omitempty"`
	ShortName         string     `json:"short_name,omitempty"`
	Country           string     `json:"country,omitempty"`
	Currency          string     `json:"currency,omitempty"`         // reporting currency of the statements
	TradingCurrency   string     `json:"trading_currency,omitempty"` // currency of the price series
	FiscalYearEnd     *time.Time `json:"fiscal_year_end,omitempty"`  // most recent fiscal year end
	SharesOutstanding float64    `json:"shares_outstanding,omitempty"`
	CurrentPrice      float64    `json:"current_price,omitempty"`
	MarketCap         float64    `json:"market_cap,omitempty"`
	EnterpriseValue   float64    `json:"enterprise_value,omitempty"`
	TrailingPE        float64    `json:"trailing_pe,omitempty"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// DisplayName returns the long name, then the short name, then the symbol
func (c *CompanyInfo) DisplayName() string {
	if c == nil {
		return ""
	}
	if c.LongName != "" {
		return c.LongName
	}
	if c.ShortName != "" {
		return c.ShortName
	}
	return c.Symbol
}
