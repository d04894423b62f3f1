package engine

import (
	"time"

	"github.com/ConstantinVictorBeatErtel/fincast/internal/models"
	"github.com/ConstantinVictorBeatErtel/fincast/internal/numeric"
)

// maxValuationPoints caps the quarterly valuation history
const maxValuationPoints = 20

// ValuationOptions configures BuildValuationHistory
type ValuationOptions struct {
	Rate          float64
	Shares        float64
	FiscalYearEnd *time.Time
}

// BuildValuationHistory samples valuation multiples at each quarter end,
// oldest first. Each point uses the trailing four quarters ending on or
// before that date and the closing price at or before it. Quarters with no
// price or no share count are skipped.
func BuildValuationHistory(st *models.Statements, prices models.PriceSeries, opts ValuationOptions) []models.ValuationPoint {
	if st == nil || len(prices) == 0 {
		return nil
	}
	rate := opts.Rate
	if rate <= 0 {
		rate = 1
	}

	income := st.QuarterlyIncome
	balance := st.QuarterlyBalance
	periods := income.Periods() // most recent first

	var out []models.ValuationPoint
	for i := len(periods) - 1; i >= 0; i-- {
		end := periods[i]
		window := periods[i:]
		if len(window) > ttmQuarters {
			window = window[:ttmQuarters]
		}

		price, ok := PriceAt(prices, end)
		if !ok {
			continue
		}
		shares := Resolve(income, MetricDilutedShares, end)
		if shares <= 0 {
			shares = Resolve(balance, MetricSharesOutstanding, end)
		}
		if shares <= 0 {
			shares = opts.Shares
		}
		if shares <= 0 {
			continue
		}

		revenue := sumPeriods(income, MetricRevenue, window) * rate
		netIncome := sumPeriods(income, MetricNetIncome, window) * rate
		ebitda := sumPeriods(income, MetricEBITDA, window) * rate
		debt := Resolve(balance, MetricTotalDebt, end) * rate
		cash := Resolve(balance, MetricCash, end) * rate

		marketCap := price * shares
		out = append(out, models.ValuationPoint{
			Date:         end,
			Quarter:      LabelFiscalPeriod(end, opts.FiscalYearEnd).LatestQuarterLabel,
			Price:        price,
			MarketCap:    marketCap,
			Revenue:      revenue,
			NetIncome:    netIncome,
			EBITDA:       ebitda,
			PERatio:      numeric.Ratio(marketCap, netIncome),
			PSRatio:      numeric.Ratio(marketCap, revenue),
			EVEBITDA:     numeric.Ratio(marketCap+debt-cash, ebitda),
			QuartersUsed: len(window),
		})
	}

	if len(out) > maxValuationPoints {
		out = out[len(out)-maxValuationPoints:]
	}
	return out
}
