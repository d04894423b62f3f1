// Package cache stores computed financials reports for a bounded time. The
// service treats every cache failure as a miss.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ConstantinVictorBeatErtel/fincast/internal/models"
)

// DefaultTTL is how long a computed report stays cached
const DefaultTTL = time.Hour

// ErrMiss is returned by Get when the key is absent or expired
var ErrMiss = errors.New("cache miss")

// Cache is a byte store with per-key expiry
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// ReportKey is the cache key of a symbol's financials report
func ReportKey(symbol string) string {
	return "financials:" + strings.ToUpper(symbol)
}

// ValuationKey is the cache key of a symbol's valuation history
func ValuationKey(symbol string) string {
	return "valuation:" + strings.ToUpper(symbol)
}

// SymbolKeys returns every key cached for a symbol
func SymbolKeys(symbol string) []string {
	return []string{ReportKey(symbol), ValuationKey(symbol)}
}

// GetReport reads a cached report
func GetReport(ctx context.Context, c Cache, symbol string) (*models.FinancialsReport, error) {
	data, err := c.Get(ctx, ReportKey(symbol))
	if err != nil {
		return nil, err
	}
	var report models.FinancialsReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to decode cached report for %s: %w", symbol, err)
	}
	return &report, nil
}

// SetReport caches a report
func SetReport(ctx context.Context, c Cache, report *models.FinancialsReport, ttl time.Duration) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report for %s: %w", report.Symbol, err)
	}
	return c.Set(ctx, ReportKey(report.Symbol), data, ttl)
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process Cache for tests and single-instance deployments
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemory creates an empty in-process cache
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry), now: time.Now}
}

// Get returns the value for key, or ErrMiss
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, ErrMiss
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return nil, ErrMiss
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

// Set stores value under key; a non-positive ttl never expires
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

// Delete removes keys
func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}
