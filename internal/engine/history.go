package engine

import (
	"sort"
	"time"

	"github.com/ConstantinVictorBeatErtel/fincast/internal/models"
	"github.com/ConstantinVictorBeatErtel/fincast/internal/numeric"
)

// ROIC returns NOPAT over invested capital as a percentage, where NOPAT is
// operating profit less tax and invested capital is equity plus debt less
// cash. It is 0 when invested capital is not positive.
func ROIC(operatingProfit, tax, equity, debt, cash float64) float64 {
	return numeric.Pct(operatingProfit-tax, equity+debt-cash)
}

// valuation holds the market ratios of one period
type valuation struct {
	Price           float64
	MarketCap       float64
	EnterpriseValue float64
	PERatio         float64
	PSRatio         float64
	EVEBITDA        float64
	EVFCF           float64
	FCFYield        float64
}

// value derives market capitalization, enterprise value and the valuation
// ratios of f at price. Every ratio is 0 when its denominator is not positive.
func value(f fundamentals, price, shares float64) valuation {
	v := valuation{Price: price}
	if price > 0 && shares > 0 {
		v.MarketCap = price * shares
		v.EnterpriseValue = v.MarketCap + f.TotalDebt - f.Cash
	}
	v.PERatio = numeric.Ratio(price, f.EPS)
	v.PSRatio = numeric.Ratio(v.MarketCap, f.Revenue)
	v.EVEBITDA = numeric.Ratio(v.EnterpriseValue, f.EBITDA)
	v.EVFCF = numeric.Ratio(v.EnterpriseValue, f.CashFlow.FCF)
	v.FCFYield = numeric.Pct(f.CashFlow.FCF, v.MarketCap)
	return v
}

func periodMetrics(label string, periodEnd time.Time, f fundamentals, v valuation) models.PeriodMetrics {
	return models.PeriodMetrics{
		Year:            label,
		PeriodEnd:       periodEnd,
		Revenue:         f.Revenue,
		GrossProfit:     f.GrossProfit,
		GrossMargin:     numeric.Pct(f.GrossProfit, f.Revenue),
		EBITDA:          f.EBITDA,
		EBITDAMargin:    numeric.Pct(f.EBITDA, f.Revenue),
		NetIncome:       f.NetIncome,
		NetIncomeMargin: numeric.Pct(f.NetIncome, f.Revenue),
		EPS:             f.EPS,
		FCF:             f.CashFlow.FCF,
		FCFMargin:       numeric.Pct(f.CashFlow.FCF, f.Revenue),
		ROIC:            f.ROIC,
		Price:           v.Price,
		MarketCap:       v.MarketCap,
		EnterpriseValue: v.EnterpriseValue,
		PERatio:         v.PERatio,
		PSRatio:         v.PSRatio,
		EVEBITDA:        v.EVEBITDA,
		EVFCF:           v.EVFCF,
		FCFYield:        v.FCFYield,
	}
}

// HistoryOptions configures BuildHistory
type HistoryOptions struct {
	// Frequency selects the annual or quarterly tables. Empty means annual,
	// falling back to quarterly when there are no annual periods.
	Frequency string
	// Rate converts reporting-currency amounts to USD. 0 means 1.
	Rate float64
	// MaxPeriods keeps only the most recent periods. 0 keeps all.
	MaxPeriods int
	// Shares is used for market capitalization when a period has no share count
	Shares float64
	// FiscalYearEnd labels quarterly periods
	FiscalYearEnd *time.Time
}

// BuildHistory builds the historical series oldest to newest. Prices must
// already be in USD. Revenue growth is measured against the preceding period
// of the returned series, so the first period always has 0 growth.
func BuildHistory(st *models.Statements, prices models.PriceSeries, opts HistoryOptions) []models.PeriodMetrics {
	if st == nil {
		return nil
	}
	rate := opts.Rate
	if rate <= 0 {
		rate = 1
	}

	frequency := opts.Frequency
	if frequency == "" {
		frequency = models.FrequencyAnnual
		if st.AnnualIncome.Empty() {
			frequency = models.FrequencyQuarterly
		}
	}

	periods := st.Table(models.StatementIncome, frequency).Periods()
	if opts.MaxPeriods > 0 && len(periods) > opts.MaxPeriods {
		periods = periods[:opts.MaxPeriods]
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Before(periods[j]) })

	out := make([]models.PeriodMetrics, 0, len(periods))
	prevRevenue := 0.0
	for i, period := range periods {
		f := periodFundamentals(st, frequency, period).scale(rate)

		shares := f.Shares
		if shares <= 0 {
			shares = opts.Shares
		}
		price, _ := PriceAt(prices, period)

		label := YearLabel(period.Year())
		if frequency == models.FrequencyQuarterly {
			label = LabelFiscalPeriod(period, opts.FiscalYearEnd).LatestQuarterLabel
		}

		m := periodMetrics(label, period, f, value(f, price, shares))
		if i > 0 {
			m.RevenueGrowth = numeric.Pct(f.Revenue-prevRevenue, prevRevenue)
		}
		prevRevenue = f.Revenue
		out = append(out, m)
	}
	return out
}
