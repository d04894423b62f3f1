package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/ConstantinVictorBeatErtel/fincast/internal/models"
)

// UpsertLineItems stores statement cells in one transaction. Re-ingesting a
// cell overwrites its value.
func (db *DB) UpsertLineItems(items []*models.LineItem) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO statement_line_items (symbol, statement, frequency, label, period_end, value, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (symbol, statement, frequency, label, period_end) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, item := range items {
		item.Symbol = strings.ToUpper(item.Symbol)
		item.UpdatedAt = now
		_, err := stmt.Exec(item.Symbol, item.Statement, item.Frequency, item.Label, item.PeriodEnd, item.Value, now)
		if err != nil {
			return fmt.Errorf("failed to upsert line item %s/%s %q for %s: %w",
				item.Statement, item.Frequency, item.Label, item.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetLineItems retrieves every stored cell for a symbol, most recent period first
func (db *DB) GetLineItems(symbol string) ([]*models.LineItem, error) {
	query := `
		SELECT symbol, statement, frequency, label, period_end, value, updated_at
		FROM statement_line_items
		WHERE symbol = $1
		ORDER BY period_end DESC, statement, frequency, label
	`
	rows, err := db.conn.Query(query, strings.ToUpper(symbol))
	if err != nil {
		return nil, fmt.Errorf("failed to get line items: %w", err)
	}
	defer rows.Close()

	var items []*models.LineItem
	for rows.Next() {
		var item models.LineItem
		if err := rows.Scan(
			&item.Symbol, &item.Statement, &item.Frequency, &item.Label,
			&item.PeriodEnd, &item.Value, &item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}
		item.PeriodEnd = models.NormalizeDate(item.PeriodEnd)
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate line items: %w", err)
	}
	return items, nil
}

// LoadStatements assembles the six statement tables for a symbol. A symbol
// with no stored cells yields empty tables, not an error.
func (db *DB) LoadStatements(symbol string) (*models.Statements, error) {
	items, err := db.GetLineItems(symbol)
	if err != nil {
		return nil, err
	}

	st := models.NewStatements()
	for _, item := range items {
		st.Add(*item)
	}
	return st, nil
}

// DeleteLineItems removes every stored cell for a symbol
func (db *DB) DeleteLineItems(symbol string) (int64, error) {
	result, err := db.conn.Exec(`DELETE FROM statement_line_items WHERE symbol = $1`, strings.ToUpper(symbol))
	if err != nil {
		return 0, fmt.Errorf("failed to delete line items for %s: %w", symbol, err)
	}
	return result.RowsAffected()
}
