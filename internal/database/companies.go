package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ConstantinVictorBeatErtel/fincast/internal/models"
)

// UpsertCompany creates or replaces a company's metadata
func (db *DB) UpsertCompany(c *models.CompanyInfo) error {
	query := `
		INSERT INTO companies (
			symbol, long_name, short_name, country, currency, trading_currency,
			fiscal_year_end, shares_outstanding, current_price, market_cap,
			enterprise_value, trailing_pe, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (symbol) DO UPDATE SET
			long_name = EXCLUDED.long_name,
			short_name = EXCLUDED.short_name,
			country = EXCLUDED.country,
			currency = EXCLUDED.currency,
			trading_currency = EXCLUDED.trading_currency,
			fiscal_year_end = EXCLUDED.fiscal_year_end,
			shares_outstanding = EXCLUDED.shares_outstanding,
			current_price = EXCLUDED.current_price,
			market_cap = EXCLUDED.market_cap,
			enterprise_value = EXCLUDED.enterprise_value,
			trailing_pe = EXCLUDED.trailing_pe,
			updated_at = EXCLUDED.updated_at
	`
	c.Symbol = strings.ToUpper(c.Symbol)
	c.UpdatedAt = time.Now().UTC()

	var fyEnd sql.NullTime
	if c.FiscalYearEnd != nil {
		fyEnd = sql.NullTime{Time: *c.FiscalYearEnd, Valid: true}
	}

	_, err := db.conn.Exec(query,
		c.Symbol, c.LongName, c.ShortName, c.Country, c.Currency, c.TradingCurrency,
		fyEnd, c.SharesOutstanding, c.CurrentPrice, c.MarketCap,
		c.EnterpriseValue, c.TrailingPE, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert company %s: %w", c.Symbol, err)
	}
	return nil
}

// GetCompany retrieves a company's metadata
func (db *DB) GetCompany(symbol string) (*models.CompanyInfo, error) {
	query := `
		SELECT symbol, long_name, short_name, country, currency, trading_currency,
			fiscal_year_end, shares_outstanding, current_price, market_cap,
			enterprise_value, trailing_pe, updated_at
		FROM companies
		WHERE symbol = $1
	`
	var c models.CompanyInfo
	var fyEnd sql.NullTime

	err := db.conn.QueryRow(query, strings.ToUpper(symbol)).Scan(
		&c.Symbol, &c.LongName, &c.ShortName, &c.Country, &c.Currency, &c.TradingCurrency,
		&fyEnd, &c.SharesOutstanding, &c.CurrentPrice, &c.MarketCap,
		&c.EnterpriseValue, &c.TrailingPE, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("company %s: %w", symbol, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}

	if fyEnd.Valid {
		t := fyEnd.Time.UTC()
		c.FiscalYearEnd = &t
	}
	return &c, nil
}

// DeleteCompany removes a company's metadata
func (db *DB) DeleteCompany(symbol string) error {
	result, err := db.conn.Exec(`DELETE FROM companies WHERE symbol = $1`, strings.ToUpper(symbol))
	if err != nil {
		return fmt.Errorf("failed to delete company: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("company %s: %w", symbol, ErrNotFound)
	}
	return nil
}
