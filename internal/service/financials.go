// Package service coordinates storage, caching, the financials engine and
// event publishing for one symbol at a time.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ConstantinVictorBeatErtel/fincast/internal/cache"
	"github.com/ConstantinVictorBeatErtel/fincast/internal/database"
	"github.com/ConstantinVictorBeatErtel/fincast/internal/engine"
	"github.com/ConstantinVictorBeatErtel/fincast/internal/models"
	"github.com/rs/zerolog"
)

var (
	// ErrInvalidSymbol is returned for an empty or malformed ticker
	ErrInvalidSymbol = errors.New("invalid symbol")
	// ErrInvalidInput is returned when ingested data fails validation
	ErrInvalidInput = errors.New("invalid input")
)

// Store is the persistence the service reads from and writes to
type Store interface {
	GetCompany(symbol string) (*models.CompanyInfo, error)
	UpsertCompany(c *models.CompanyInfo) error
	LoadStatements(symbol string) (*models.Statements, error)
	UpsertLineItems(items []*models.LineItem) error
	GetPriceSeries(symbol string) (models.PriceSeries, error)
	CreatePriceDataBatch(prices []*models.PriceDataDaily) error
	SaveSnapshot(report *models.FinancialsReport) (int, error)
	GetLatestSnapshot(symbol string) (*models.FinancialsReport, error)
}

// Publisher announces computed reports
type Publisher interface {
	PublishFinancialsComputed(ctx context.Context, report *models.FinancialsReport) error
}

// FinancialsService builds, caches and persists financials reports
type FinancialsService struct {
	store     Store
	engine    *engine.Engine
	cache     cache.Cache
	publisher Publisher
	ttl       time.Duration
	log       zerolog.Logger
}

// Option configures a FinancialsService
type Option func(*FinancialsService)

// WithCache enables report caching with the given TTL
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *FinancialsService) {
		s.cache = c
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithPublisher publishes every computed report
func WithPublisher(p Publisher) Option {
	return func(s *FinancialsService) { s.publisher = p }
}

// WithLogger sets the service logger
func WithLogger(log zerolog.Logger) Option {
	return func(s *FinancialsService) { s.log = log }
}

// NewFinancialsService creates a FinancialsService
func NewFinancialsService(store Store, eng *engine.Engine, opts ...Option) *FinancialsService {
	s := &FinancialsService{
		store:  store,
		engine: eng,
		ttl:    cache.DefaultTTL,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("component", "financials_service").Logger()
	return s
}

// NormalizeSymbol upper-cases and validates a ticker
func NormalizeSymbol(symbol string) (string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" || len(symbol) > 20 || strings.ContainsAny(symbol, " /\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}
	return symbol, nil
}

// Get returns the financials report for symbol, from cache unless refresh is
// set. A symbol with no stored statements yields the degraded fallback report.
func (s *FinancialsService) Get(ctx context.Context, symbol string, refresh bool) (*models.FinancialsReport, error) {
	symbol, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	if !refresh && s.cache != nil {
		report, err := cache.GetReport(ctx, s.cache, symbol)
		if err == nil {
			s.log.Debug().Str("symbol", symbol).Msg("report served from cache")
			return report, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("cache read failed")
		}
	}

	report, err := s.compute(ctx, symbol)
	if err != nil {
		return nil, err
	}

	if !report.Degraded() {
		if _, err := s.store.SaveSnapshot(report); err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("failed to save snapshot")
		}
	}
	if s.cache != nil {
		if err := cache.SetReport(ctx, s.cache, report, s.ttl); err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("cache write failed")
		}
		// the valuation entry is derived from the report it replaces
		if refresh {
			if err := s.cache.Delete(ctx, cache.ValuationKey(symbol)); err != nil {
				s.log.Warn().Err(err).Str("symbol", symbol).Msg("cache invalidation failed")
			}
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishFinancialsComputed(ctx, report); err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("failed to publish financials event")
		}
	}
	return report, nil
}

// Valuation returns only the quarterly valuation history for symbol
func (s *FinancialsService) Valuation(ctx context.Context, symbol string) ([]models.ValuationPoint, error) {
	symbol, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	key := cache.ValuationKey(symbol)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil {
			var points []models.ValuationPoint
			if err := json.Unmarshal(data, &points); err == nil {
				return points, nil
			}
		}
	}

	report, err := s.Get(ctx, symbol, false)
	if err != nil {
		return nil, err
	}
	points := report.ValuationHistory
	if points == nil {
		points = []models.ValuationPoint{}
	}

	if s.cache != nil {
		if data, err := json.Marshal(points); err == nil {
			if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
				s.log.Warn().Err(err).Str("symbol", symbol).Msg("cache write failed")
			}
		}
	}
	return points, nil
}

// LatestSnapshot returns the most recently persisted report
func (s *FinancialsService) LatestSnapshot(symbol string) (*models.FinancialsReport, error) {
	symbol, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	return s.store.GetLatestSnapshot(symbol)
}

// UpdateCompany stores company metadata and drops cached reports
func (s *FinancialsService) UpdateCompany(ctx context.Context, symbol string, company *models.CompanyInfo) error {
	symbol, err := NormalizeSymbol(symbol)
	if err != nil {
		return err
	}
	if company == nil {
		return fmt.Errorf("%w: no company supplied", ErrInvalidInput)
	}
	company.Symbol = symbol
	if err := s.store.UpsertCompany(company); err != nil {
		return err
	}
	s.invalidate(ctx, symbol)
	return nil
}

// AddStatements stores statement tables and drops cached reports. It returns
// the number of cells written.
func (s *FinancialsService) AddStatements(ctx context.Context, symbol string, payloads []models.StatementPayload) (int, error) {
	symbol, err := NormalizeSymbol(symbol)
	if err != nil {
		return 0, err
	}

	var items []*models.LineItem
	for i := range payloads {
		payloadItems, err := payloads[i].LineItems(symbol)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		items = append(items, payloadItems...)
	}
	if len(items) == 0 {
		return 0, fmt.Errorf("%w: no statement cells supplied", ErrInvalidInput)
	}

	if err := s.store.UpsertLineItems(items); err != nil {
		return 0, err
	}
	s.invalidate(ctx, symbol)
	return len(items), nil
}

// AddPrices stores daily bars and drops cached reports. It returns the number
// of bars written.
func (s *FinancialsService) AddPrices(ctx context.Context, symbol string, bars []models.PriceBar) (int, error) {
	symbol, err := NormalizeSymbol(symbol)
	if err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, fmt.Errorf("%w: no prices supplied", ErrInvalidInput)
	}

	prices := make([]*models.PriceDataDaily, 0, len(bars))
	for _, b := range bars {
		p, err := b.ToPriceData(symbol)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		prices = append(prices, p)
	}

	if err := s.store.CreatePriceDataBatch(prices); err != nil {
		return 0, err
	}
	s.invalidate(ctx, symbol)
	return len(prices), nil
}

func (s *FinancialsService) compute(ctx context.Context, symbol string) (*models.FinancialsReport, error) {
	company, err := s.store.GetCompany(symbol)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("failed to load company: %w", err)
	}

	statements, err := s.store.LoadStatements(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to load statements: %w", err)
	}

	prices, err := s.store.GetPriceSeries(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to load prices: %w", err)
	}

	start := time.Now()
	report := s.engine.Build(ctx, engine.Input{
		Symbol:     symbol,
		Company:    company,
		Statements: statements,
		Prices:     prices,
	})
	s.log.Info().
		Str("symbol", symbol).
		Str("source", report.Source).
		Str("ttm_label", report.FiscalInfo.TTMLabel).
		Dur("duration", time.Since(start)).
		Msg("computed financials report")

	return report, nil
}

func (s *FinancialsService) invalidate(ctx context.Context, symbol string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cache.SymbolKeys(symbol)...); err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("failed to invalidate cached report")
	}
}
