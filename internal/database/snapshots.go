package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ConstantinVictorBeatErtel/fincast/internal/models"
)

// SaveSnapshot stores a computed report and returns its id
func (db *DB) SaveSnapshot(report *models.FinancialsReport) (int, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to encode report for %s: %w", report.Symbol, err)
	}

	query := `
		INSERT INTO financial_snapshots (symbol, source, ttm_label, report, generated_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	var id int
	err = db.conn.QueryRow(query,
		strings.ToUpper(report.Symbol), report.Source, report.FiscalInfo.TTMLabel,
		data, report.GeneratedAt, time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to save snapshot: %w", err)
	}
	return id, nil
}

// GetLatestSnapshot retrieves the most recently generated report for a symbol
func (db *DB) GetLatestSnapshot(symbol string) (*models.FinancialsReport, error) {
	query := `
		SELECT report
		FROM financial_snapshots
		WHERE symbol = $1
		ORDER BY generated_at DESC, id DESC
		LIMIT 1
	`
	var data []byte
	err := db.conn.QueryRow(query, strings.ToUpper(symbol)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot for %s: %w", symbol, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}

	var report models.FinancialsReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot for %s: %w", symbol, err)
	}
	return &report, nil
}

// DeleteSnapshotsOlderThan removes snapshots generated before date
func (db *DB) DeleteSnapshotsOlderThan(date time.Time) (int64, error) {
	result, err := db.conn.Exec(`DELETE FROM financial_snapshots WHERE generated_at < $1`, date)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old snapshots: %w", err)
	}
	return result.RowsAffected()
}
