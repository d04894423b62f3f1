package models

import (
	"sort"
	"time"
)

// Statement kind constants
const (
	StatementIncome   = "income"
	StatementCashFlow = "cashflow"
	StatementBalance  = "balance"
)

// Frequency constants
const (
	FrequencyQuarterly = "quarterly"
	FrequencyAnnual    = "annual"
)

const dateLayout = "2006-01-02"

// StatementTable is a (row label, period) -> raw value grid for one financial
// statement. Values are whatever the provider sent; not every label is present
// for every company or period.
type StatementTable struct {
	Kind      string
	Frequency string

	periods map[string]time.Time
	rows    map[string]map[string]any
}

// NewStatementTable creates an empty table
func NewStatementTable(kind, frequency string) *StatementTable {
	return &StatementTable{
		Kind:      kind,
		Frequency: frequency,
		periods:   make(map[string]time.Time),
		rows:      make(map[string]map[string]any),
	}
}

// Set stores a raw value for a row label and period end date
func (t *StatementTable) Set(label string, period time.Time, value any) {
	key := DateKey(period)
	if _, ok := t.periods[key]; !ok {
		t.periods[key] = NormalizeDate(period)
	}
	row, ok := t.rows[label]
	if !ok {
		row = make(map[string]any)
		t.rows[label] = row
	}
	row[key] = value
}

// Value returns the raw value for a label and period
func (t *StatementTable) Value(label string, period time.Time) (any, bool) {
	if t == nil {
		return nil, false
	}
	row, ok := t.rows[label]
	if !ok {
		return nil, false
	}
	v, ok := row[DateKey(period)]
	return v, ok
}

// HasRow reports whether the table carries a row with the given label
func (t *StatementTable) HasRow(label string) bool {
	if t == nil {
		return false
	}
	_, ok := t.rows[label]
	return ok
}

// HasPeriod reports whether the table has a column for the given date
func (t *StatementTable) HasPeriod(period time.Time) bool {
	if t == nil {
		return false
	}
	_, ok := t.periods[DateKey(period)]
	return ok
}

// Periods returns the period end dates, most recent first
func (t *StatementTable) Periods() []time.Time {
	if t == nil {
		return nil
	}
	out := make([]time.Time, 0, len(t.periods))
	for _, p := range t.periods {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].After(out[j]) })
	return out
}

// Len returns the number of periods in the table
func (t *StatementTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.periods)
}

// Empty reports whether the table has no periods
func (t *StatementTable) Empty() bool {
	return t.Len() == 0
}

// Statements groups the six statement tables for one company
type Statements struct {
	QuarterlyIncome   *StatementTable
	QuarterlyCashFlow *StatementTable
	QuarterlyBalance  *StatementTable
	AnnualIncome      *StatementTable
	AnnualCashFlow    *StatementTable
	AnnualBalance     *StatementTable
}

// NewStatements creates a Statements value with all six tables allocated
func NewStatements() *Statements {
	return &Statements{
		QuarterlyIncome:   NewStatementTable(StatementIncome, FrequencyQuarterly),
		QuarterlyCashFlow: NewStatementTable(StatementCashFlow, FrequencyQuarterly),
		QuarterlyBalance:  NewStatementTable(StatementBalance, FrequencyQuarterly),
		AnnualIncome:      NewStatementTable(StatementIncome, FrequencyAnnual),
		AnnualCashFlow:    NewStatementTable(StatementCashFlow, FrequencyAnnual),
		AnnualBalance:     NewStatementTable(StatementBalance, FrequencyAnnual),
	}
}

// Table returns the table for a statement kind and frequency, or nil
func (s *Statements) Table(kind, frequency string) *StatementTable {
	if s == nil {
		return nil
	}
	switch frequency {
	case FrequencyQuarterly:
		switch kind {
		case StatementIncome:
			return s.QuarterlyIncome
		case StatementCashFlow:
			return s.QuarterlyCashFlow
		case StatementBalance:
			return s.QuarterlyBalance
		}
	case FrequencyAnnual:
		switch kind {
		case StatementIncome:
			return s.AnnualIncome
		case StatementCashFlow:
			return s.AnnualCashFlow
		case StatementBalance:
			return s.AnnualBalance
		}
	}
	return nil
}

// Add stores a line item in the matching table. Unknown kinds or
// frequencies are ignored and reported as false.
func (s *Statements) Add(item LineItem) bool {
	table := s.Table(item.Statement, item.Frequency)
	if table == nil {
		return false
	}
	var value any
	if item.Value.Valid {
		value = item.Value.Decimal
	}
	table.Set(item.Label, item.PeriodEnd, value)
	return true
}

// Empty reports whether every table is empty
func (s *Statements) Empty() bool {
	if s == nil {
		return true
	}
	return s.QuarterlyIncome.Empty() && s.QuarterlyCashFlow.Empty() && s.QuarterlyBalance.Empty() &&
		s.AnnualIncome.Empty() && s.AnnualCashFlow.Empty() && s.AnnualBalance.Empty()
}

// ValidStatement reports whether kind is a known statement kind
func ValidStatement(kind string) bool {
	return kind == StatementIncome || kind == StatementCashFlow || kind == StatementBalance
}

// ValidFrequency reports whether frequency is a known frequency
func ValidFrequency(frequency string) bool {
	return frequency == FrequencyQuarterly || frequency == FrequencyAnnual
}

// DateKey formats a date as YYYY-MM-DD
func DateKey(t time.Time) string {
	return t.Format(dateLayout)
}

// NormalizeDate truncates t to midnight UTC of its calendar date
func NormalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date
func ParseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}
