package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ConstantinVictorBeatErtel/fincast/internal/models"
	"github.com/shopspring/decimal"
)

const priceColumns = `id, symbol, date, open, high, low, close, volume, vwap, created_at`

const upsertPriceQuery = `
	INSERT INTO price_data_daily (symbol, date, open, high, low, close, volume, vwap, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (symbol, date) DO UPDATE SET
		open = EXCLUDED.open,
		high = EXCLUDED.high,
		low = EXCLUDED.low,
		close = EXCLUDED.close,
		volume = EXCLUDED.volume,
		vwap = EXCLUDED.vwap
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPriceData(row rowScanner) (*models.PriceDataDaily, error) {
	var p models.PriceDataDaily
	var vwap sql.NullString

	err := row.Scan(&p.ID, &p.Symbol, &p.Date, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume, &vwap, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if vwap.Valid {
		p.VWAP, _ = decimal.NewFromString(vwap.String)
	}
	p.Date = models.NormalizeDate(p.Date)
	return &p, nil
}

func nullableVWAP(v decimal.Decimal) decimal.NullDecimal {
	if v.IsZero() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(v)
}

// CreatePriceData inserts or replaces one daily bar
func (db *DB) CreatePriceData(p *models.PriceDataDaily) error {
	p.Symbol = strings.ToUpper(p.Symbol)
	err := db.conn.QueryRow(upsertPriceQuery+" RETURNING id",
		p.Symbol, p.Date, p.Open, p.High, p.Low, p.Close, p.Volume, nullableVWAP(p.VWAP), time.Now().UTC(),
	).Scan(&p.ID)

	if err != nil {
		return fmt.Errorf("failed to create price data: %w", err)
	}
	return nil
}

// CreatePriceDataBatch inserts or replaces multiple daily bars in one transaction
func (db *DB) CreatePriceDataBatch(prices []*models.PriceDataDaily) error {
	if len(prices) == 0 {
		return nil
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(upsertPriceQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, p := range prices {
		p.Symbol = strings.ToUpper(p.Symbol)
		_, err := stmt.Exec(p.Symbol, p.Date, p.Open, p.High, p.Low, p.Close, p.Volume, nullableVWAP(p.VWAP), now)
		if err != nil {
			return fmt.Errorf("failed to insert price data for %s: %w", p.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetPriceDataBySymbol retrieves up to limit bars for a symbol, most recent first
func (db *DB) GetPriceDataBySymbol(symbol string, limit int) ([]*models.PriceDataDaily, error) {
	query := `SELECT ` + priceColumns + `
		FROM price_data_daily
		WHERE symbol = $1
		ORDER BY date DESC
		LIMIT $2
	`
	return db.queryPriceData(query, strings.ToUpper(symbol), limit)
}

// GetPriceDataRange retrieves bars for a symbol within a date range, oldest first
func (db *DB) GetPriceDataRange(symbol string, startDate, endDate time.Time) ([]*models.PriceDataDaily, error) {
	query := `SELECT ` + priceColumns + `
		FROM price_data_daily
		WHERE symbol = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC
	`
	return db.queryPriceData(query, strings.ToUpper(symbol), startDate, endDate)
}

// GetPriceSeries returns every stored close for a symbol as an ascending series
func (db *DB) GetPriceSeries(symbol string) (models.PriceSeries, error) {
	query := `
		SELECT date, close
		FROM price_data_daily
		WHERE symbol = $1
		ORDER BY date ASC
	`
	rows, err := db.conn.Query(query, strings.ToUpper(symbol))
	if err != nil {
		return nil, fmt.Errorf("failed to get price series: %w", err)
	}
	defer rows.Close()

	var points []models.PricePoint
	for rows.Next() {
		var date time.Time
		var close decimal.Decimal
		if err := rows.Scan(&date, &close); err != nil {
			return nil, fmt.Errorf("failed to scan price point: %w", err)
		}
		points = append(points, models.PricePoint{Date: models.NormalizeDate(date), Close: close.InexactFloat64()})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate price series: %w", err)
	}
	return models.NewPriceSeries(points), nil
}

// GetLatestPriceData retrieves the most recent bar for a symbol
func (db *DB) GetLatestPriceData(symbol string) (*models.PriceDataDaily, error) {
	query := `SELECT ` + priceColumns + `
		FROM price_data_daily
		WHERE symbol = $1
		ORDER BY date DESC
		LIMIT 1
	`
	p, err := scanPriceData(db.conn.QueryRow(query, strings.ToUpper(symbol)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("price data for %s: %w", symbol, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest price data: %w", err)
	}
	return p, nil
}

// DeletePriceDataBySymbol removes all bars for a symbol
func (db *DB) DeletePriceDataBySymbol(symbol string) error {
	_, err := db.conn.Exec(`DELETE FROM price_data_daily WHERE symbol = $1`, strings.ToUpper(symbol))
	if err != nil {
		return fmt.Errorf("failed to delete price data for %s: %w", symbol, err)
	}
	return nil
}

// DeletePriceDataOlderThan removes bars dated before date
func (db *DB) DeletePriceDataOlderThan(date time.Time) (int64, error) {
	result, err := db.conn.Exec(`DELETE FROM price_data_daily WHERE date < $1`, date)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old price data: %w", err)
	}
	return result.RowsAffected()
}

func (db *DB) queryPriceData(query string, args ...any) ([]*models.PriceDataDaily, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get price data: %w", err)
	}
	defer rows.Close()

	var prices []*models.PriceDataDaily
	for rows.Next() {
		p, err := scanPriceData(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price data: %w", err)
		}
		prices = append(prices, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate price data: %w", err)
	}
	return prices, nil
}
