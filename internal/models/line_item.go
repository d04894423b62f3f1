package models

import (
	"fmt"
	"time"

	"github.com/ConstantinVictorBeatErtel/fincast/internal/numeric"
	"github.com/shopspring/decimal"
)

// LineItem is one stored statement cell
type LineItem struct {
	Symbol    string              `json:"symbol"`
	Statement string              `json:"statement"`
	Frequency string              `json:"frequency"`
	Label     string              `json:"label"`
	PeriodEnd time.Time           `json:"period_end"`
	Value     decimal.NullDecimal `json:"value"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// StatementPayload is the ingestion shape of one statement table: row label ->
// period end date (YYYY-MM-DD) -> raw value. Values may be numbers, numeric
// strings, null or junk; junk is stored as missing.
type StatementPayload struct {
	Statement string                    `json:"statement"`
	Frequency string                    `json:"frequency"`
	Rows      map[string]map[string]any `json:"rows"`
}

// Validate checks the statement kind and frequency
func (p *StatementPayload) Validate() error {
	if !ValidStatement(p.Statement) {
		return fmt.Errorf("invalid statement kind: %q", p.Statement)
	}
	if !ValidFrequency(p.Frequency) {
		return fmt.Errorf("invalid frequency: %q", p.Frequency)
	}
	if len(p.Rows) == 0 {
		return fmt.Errorf("statement %s/%s has no rows", p.Statement, p.Frequency)
	}
	return nil
}

// LineItems flattens the payload into storable line items
func (p *StatementPayload) LineItems(symbol string) ([]*LineItem, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var items []*LineItem
	for label, periods := range p.Rows {
		for dateStr, raw := range periods {
			periodEnd, err := ParseDate(dateStr)
			if err != nil {
				return nil, fmt.Errorf("invalid period %q for %s: %w", dateStr, label, err)
			}

			item := &LineItem{
				Symbol:    symbol,
				Statement: p.Statement,
				Frequency: p.Frequency,
				Label:     label,
				PeriodEnd: periodEnd,
			}
			if f, ok := numeric.ToFloat(raw); ok {
				item.Value = decimal.NewNullDecimal(decimal.NewFromFloat(f))
			}
			items = append(items, item)
		}
	}
	return items, nil
}
