package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Event type constants
const (
	EventStatementsIngested = "STATEMENTS_INGESTED"
	EventPricesIngested     = "PRICES_INGESTED"
	EventCompanyUpdated     = "COMPANY_UPDATED"
	EventFinancialsComputed = "FINANCIALS_COMPUTED"
)

// PriceBar is the ingestion shape of one daily price row
type PriceBar struct {
	Date   string          `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
	VWAP   decimal.Decimal `json:"vwap,omitempty"`
}

// ToPriceData converts the bar into a storable row
func (b PriceBar) ToPriceData(symbol string) (*PriceDataDaily, error) {
	date, err := ParseDate(b.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid price date %q: %w", b.Date, err)
	}
	if !b.Close.IsPositive() {
		return nil, fmt.Errorf("invalid close price %s on %s", b.Close, b.Date)
	}
	return &PriceDataDaily{
		Symbol: symbol,
		Date:   date,
		Open:   b.Open,
		High:   b.High,
		Low:    b.Low,
		Close:  b.Close,
		Volume: b.Volume,
		VWAP:   b.VWAP,
	}, nil
}

// IngestEvent is consumed from the ingestion topic. Which payload field is
// populated depends on EventType.
type IngestEvent struct {
	EventID    string             `json:"event_id"`
	EventType  string             `json:"event_type"`
	Symbol     string             `json:"symbol"`
	Source     string             `json:"source"`
	Statements []StatementPayload `json:"statements,omitempty"`
	Prices     []PriceBar         `json:"prices,omitempty"`
	Company    *CompanyInfo       `json:"company,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
}

// FinancialsEvent is published after a report has been computed
type FinancialsEvent struct {
	EventID   string            `json:"event_id"`
	EventType string            `json:"event_type"`
	Symbol    string            `json:"symbol"`
	Source    string            `json:"source"`
	TTMLabel  string            `json:"ttm_label"`
	Degraded  bool              `json:"degraded"`
	Report    *FinancialsReport `json:"report,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
