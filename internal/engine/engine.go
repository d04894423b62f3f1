// Package engine turns raw statement tables and a price series into a
// normalized USD financials report: trailing-twelve-month figures, an annual
// history with valuation ratios, and a quarterly valuation series.
//
// Missing data is never an error. Absent rows resolve to 0 or to a fixed
// estimation fallback, and a company with no statements at all gets a zeroed
// report marked as degraded.
package engine

import (
	"context"
	"math"
	"reflect"
	"time"

	"github.com/ConstantinVictorBeatErtel/fincast/internal/models"
	"github.com/ConstantinVictorBeatErtel/fincast/internal/numeric"
	"github.com/rs/zerolog"
)

// DefaultMaxHistoryPeriods is the number of annual periods kept in the history
const DefaultMaxHistoryPeriods = 4

// Input is everything the engine needs for one company
type Input struct {
	Symbol     string
	Company    *models.CompanyInfo
	Statements *models.Statements
	Prices     models.PriceSeries
}

// Engine builds financials reports. It holds only read-only tables and is
// safe for concurrent use.
type Engine struct {
	detector       *Detector
	converter      *Converter
	requireFullTTM bool
	maxHistory     int
	log            zerolog.Logger
	now            func() time.Time
}

// Option configures an Engine
type Option func(*Engine)

// WithRequireFullTTM makes the engine report the latest annual period instead
// of summing fewer than four quarters
func WithRequireFullTTM(require bool) Option {
	return func(e *Engine) { e.requireFullTTM = require }
}

// WithMaxHistoryPeriods sets how many annual periods the history keeps
func WithMaxHistoryPeriods(n int) Option {
	return func(e *Engine) { e.maxHistory = n }
}

// WithHeuristics replaces the built-in currency heuristic tables
func WithHeuristics(h *Heuristics) Option {
	return func(e *Engine) { e.detector = NewDetector(h) }
}

// WithLogger sets the engine logger
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithClock sets the time source for GeneratedAt
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an Engine. A nil provider always uses the static rate table.
func New(provider RateProvider, opts ...Option) *Engine {
	e := &Engine{
		maxHistory: DefaultMaxHistoryPeriods,
		log:        zerolog.Nop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.detector == nil {
		e.detector = NewDetector(nil)
	}
	e.converter = NewConverter(provider, e.log)
	e.log = e.log.With().Str("component", "engine").Logger()
	return e
}

// Build produces the report for one company. It never fails: without any
// income statement data the zeroed fallback report is returned.
func (e *Engine) Build(ctx context.Context, in Input) *models.FinancialsReport {
	st := in.Statements
	company := in.Company
	if company == nil {
		company = &models.CompanyInfo{Symbol: in.Symbol}
	}
	log := e.log.With().Str("symbol", in.Symbol).Logger()

	if st == nil || (st.QuarterlyIncome.Empty() && st.AnnualIncome.Empty()) {
		log.Warn().Msg("no income statement data, returning fallback report")
		return e.FallbackReport(in.Symbol, company.DisplayName())
	}

	// one rate per request; every absolute figure is converted once before
	// any ratio is derived from it
	currency := e.detector.Detect(company)
	rate := e.converter.Rate(ctx, currency, USD)
	priceRate := rate
	if trading := NormalizeCurrency(company.TradingCurrency); trading != currency {
		priceRate = e.converter.Rate(ctx, trading, USD)
	}
	prices := scalePrices(in.Prices, priceRate.Value)

	fyEnd := company.FiscalYearEnd
	latestAnnual := st.AnnualIncome.Periods()
	if fyEnd == nil && len(latestAnnual) > 0 {
		fyEnd = &latestAnnual[0]
	}

	report := &models.FinancialsReport{
		Symbol:      in.Symbol,
		CompanyName: company.DisplayName(),
		Source:      models.SourceStatements,
		CurrencyInfo: models.CurrencyInfo{
			OriginalCurrency:   currency,
			ConvertedToUSD:     currency != USD,
			ConversionRate:     rate.Value,
			ExchangeRateSource: rate.Source,
		},
		AliasTableVersion: AliasTableVersion,
		GeneratedAt:       e.now().UTC(),
	}

	// trailing window, or the latest annual period when quarters are unusable
	var (
		f            fundamentals
		anchor       time.Time
		quartersUsed int
		basis        = models.BasisTTM
	)
	window, ok := aggregateTTM(st)
	useAnnual := !ok || (e.requireFullTTM && window.QuartersUsed < ttmQuarters)
	if useAnnual && len(latestAnnual) > 0 {
		log.Debug().Int("quarters", window.QuartersUsed).Msg("using latest annual period in place of TTM")
		anchor = latestAnnual[0]
		f = periodFundamentals(st, models.FrequencyAnnual, anchor)
		basis = models.BasisAnnual
	} else {
		if useAnnual {
			log.Warn().Int("quarters", window.QuartersUsed).Msg("fewer than four quarters and no annual data, summing partial window")
		}
		anchor = window.Anchor
		f = window.fundamentals
		quartersUsed = window.QuartersUsed
	}
	f = f.scale(rate.Value)

	report.FiscalInfo = LabelFiscalPeriod(anchor, fyEnd)
	periodLabel := report.FiscalInfo.TTMLabel
	if basis == models.BasisAnnual {
		periodLabel = YearLabel(anchor.Year())
	}

	shares := companyShares(st, company, f.Shares)
	report.MarketData = marketData(company, prices, priceRate.Value, shares, f)
	v := valuation{
		Price:           report.MarketData.CurrentPrice,
		MarketCap:       report.MarketData.MarketCap,
		EnterpriseValue: report.MarketData.EnterpriseValue,
		PERatio:         report.MarketData.PERatio,
		PSRatio:         numeric.Ratio(report.MarketData.MarketCap, f.Revenue),
		EVEBITDA:        numeric.Ratio(report.MarketData.EnterpriseValue, f.EBITDA),
		EVFCF:           numeric.Ratio(report.MarketData.EnterpriseValue, f.CashFlow.FCF),
		FCFYield:        numeric.Pct(f.CashFlow.FCF, report.MarketData.MarketCap),
	}

	report.TTMFinancials = models.TTMFinancials{
		Revenue:            f.Revenue,
		GrossProfit:        f.GrossProfit,
		GrossMarginPct:     numeric.Pct(f.GrossProfit, f.Revenue),
		EBITDA:             f.EBITDA,
		EBITDAMarginPct:    numeric.Pct(f.EBITDA, f.Revenue),
		NetIncome:          f.NetIncome,
		NetIncomeMarginPct: numeric.Pct(f.NetIncome, f.Revenue),
		EPS:                f.EPS,
		SharesOutstanding:  f.Shares,
		OperatingCashFlow:  f.CashFlow.OperatingCashFlow,
		CapitalExpenditure: f.CashFlow.CapitalExpenditure,
		FCF:                f.CashFlow.FCF,
		FCFMarginPct:       numeric.Pct(f.CashFlow.FCF, f.Revenue),
		FCFSource:          f.CashFlow.Source,
		ROIC:               f.ROIC,
		PSRatio:            v.PSRatio,
		EVEBITDA:           v.EVEBITDA,
		EVFCF:              v.EVFCF,
		FCFYield:           v.FCFYield,
		QuartersUsed:       quartersUsed,
		Basis:              basis,
		PeriodLabel:        periodLabel,
		LatestQuarter:      report.FiscalInfo.LatestQuarterLabel,
	}
	if f.CashFlow.Source == models.FCFSourceEstimated {
		log.Debug().Msg("no cash flow data, estimating FCF from revenue")
	}

	report.HistoricalFinancials = BuildHistory(st, prices, HistoryOptions{
		Rate:          rate.Value,
		MaxPeriods:    e.maxHistory,
		Shares:        shares,
		FiscalYearEnd: fyEnd,
	})
	ttmEntry := periodMetrics(periodLabel, anchor, f, v)
	ttmEntry.IsTTM = true
	report.HistoricalFinancials = append(report.HistoricalFinancials, ttmEntry)

	report.ValuationHistory = BuildValuationHistory(st, prices, ValuationOptions{
		Rate:          rate.Value,
		Shares:        shares,
		FiscalYearEnd: fyEnd,
	})

	sanitizeFloats(reflect.ValueOf(report))

	log.Debug().
		Str("currency", currency).
		Str("basis", basis).
		Int("periods", len(report.HistoricalFinancials)).
		Msg("financials report built")
	return report
}

// FallbackReport is the zeroed, schema-complete report returned when a
// company has no usable statements
func (e *Engine) FallbackReport(symbol, companyName string) *models.FinancialsReport {
	if companyName == "" {
		companyName = symbol
	}
	return &models.FinancialsReport{
		Symbol:      symbol,
		CompanyName: companyName,
		Source:      models.SourceStatementsAlternative,
		FiscalInfo:  models.FiscalInfo{TTMLabel: "TTM"},
		TTMFinancials: models.TTMFinancials{
			FCFSource:   models.FCFSourceEstimated,
			Basis:       models.BasisTTM,
			PeriodLabel: "TTM",
		},
		HistoricalFinancials: []models.PeriodMetrics{},
		ValuationHistory:     []models.ValuationPoint{},
		CurrencyInfo: models.CurrencyInfo{
			OriginalCurrency:   USD,
			ConversionRate:     1.0,
			ExchangeRateSource: models.RateSourceNone,
		},
		AliasTableVersion: AliasTableVersion,
		GeneratedAt:       e.now().UTC(),
	}
}

func scalePrices(series models.PriceSeries, rate float64) models.PriceSeries {
	if rate == 1 {
		return series
	}
	out := make(models.PriceSeries, len(series))
	for i, p := range series {
		out[i] = models.PricePoint{Date: p.Date, Close: p.Close * rate}
	}
	return out
}

// companyShares picks the share count for market capitalization: company
// metadata, then the latest balance sheet, then the diluted average
func companyShares(st *models.Statements, company *models.CompanyInfo, diluted float64) float64 {
	if v := numeric.Finite(company.SharesOutstanding); v > 0 {
		return v
	}
	if v := Snapshot(st.QuarterlyBalance, MetricSharesOutstanding); v > 0 {
		return v
	}
	if v := Snapshot(st.AnnualBalance, MetricSharesOutstanding); v > 0 {
		return v
	}
	return diluted
}

// marketData prefers the company metadata, converted with priceRate, and
// computes whatever is missing from the price series and fundamentals
func marketData(company *models.CompanyInfo, prices models.PriceSeries, priceRate, shares float64, f fundamentals) models.MarketData {
	md := models.MarketData{
		CurrentPrice:    numeric.Finite(company.CurrentPrice) * priceRate,
		MarketCap:       numeric.Finite(company.MarketCap) * priceRate,
		EnterpriseValue: numeric.Finite(company.EnterpriseValue) * priceRate,
		PERatio:         numeric.Finite(company.TrailingPE),
	}
	if md.CurrentPrice <= 0 {
		if latest, ok := prices.Latest(); ok {
			md.CurrentPrice = latest.Close
		}
	}
	if md.MarketCap <= 0 && md.CurrentPrice > 0 && shares > 0 {
		md.MarketCap = md.CurrentPrice * shares
	}
	if md.EnterpriseValue <= 0 && md.MarketCap > 0 {
		md.EnterpriseValue = md.MarketCap + f.TotalDebt - f.Cash
	}
	if md.PERatio <= 0 {
		md.PERatio = numeric.Ratio(md.CurrentPrice, f.EPS)
	}
	return md
}

// sanitizeFloats replaces every NaN or infinite float reachable from v with 0
func sanitizeFloats(v reflect.Value) {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		if !v.IsNil() {
			sanitizeFloats(v.Elem())
		}
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if v.Type().Field(i).IsExported() {
				sanitizeFloats(v.Field(i))
			}
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			sanitizeFloats(v.Index(i))
		}
	case reflect.Float32, reflect.Float64:
		if f := v.Float(); (math.IsNaN(f) || math.IsInf(f, 0)) && v.CanSet() {
			v.SetFloat(0)
		}
	}
}
