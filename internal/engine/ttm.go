package engine

import (
	"time"

	"github.com/ConstantinVictorBeatErtel/fincast/internal/models"
)

const (
	// ttmQuarters is the length of the trailing window
	ttmQuarters = 4

	// annualProxyWindow bounds the distance between the TTM anchor and an
	// annual cash-flow period used in place of quarterly data
	annualProxyWindow = 370 * 24 * time.Hour

	// estimatedFCFShare of revenue is used as FCF when no cash-flow data exists
	estimatedFCFShare = 0.25
)

// recentPeriods returns up to n periods of table, most recent first
func recentPeriods(table *models.StatementTable, n int) []time.Time {
	periods := table.Periods()
	if len(periods) > n {
		periods = periods[:n]
	}
	return periods
}

// SumTTM sums a flow metric over the four most recent quarters of table.
// Fewer quarters are summed when fewer exist; the count used is returned so
// callers can require a full window.
func SumTTM(table *models.StatementTable, m Metric) (float64, int) {
	periods := recentPeriods(table, ttmQuarters)
	return sumPeriods(table, m, periods), len(periods)
}

func sumPeriods(table *models.StatementTable, m Metric, periods []time.Time) float64 {
	var sum float64
	for _, p := range periods {
		sum += Resolve(table, m, p)
	}
	return sum
}

// Snapshot reads a stock metric from the most recent period that carries a
// value. Stocks are never summed across periods.
func Snapshot(table *models.StatementTable, m Metric) float64 {
	for _, p := range table.Periods() {
		if v, ok := Lookup(table, m, p); ok {
			return v
		}
	}
	return 0
}

// CashFlow is a free cash flow figure with its inputs and provenance
type CashFlow struct {
	OperatingCashFlow  float64
	CapitalExpenditure float64
	FCF                float64
	Source             string
}

// Scale multiplies every monetary field by rate
func (c CashFlow) Scale(rate float64) CashFlow {
	c.OperatingCashFlow *= rate
	c.CapitalExpenditure *= rate
	c.FCF *= rate
	return c
}

// PeriodCashFlow reads FCF for one period: the direct row when present,
// otherwise operating cash flow plus capital expenditure. Capex is reported
// negative, so the addition subtracts it.
func PeriodCashFlow(table *models.StatementTable, period time.Time) (CashFlow, bool) {
	if !table.HasPeriod(period) {
		return CashFlow{}, false
	}
	cf := CashFlow{
		OperatingCashFlow:  Resolve(table, MetricOperatingCashFlow, period),
		CapitalExpenditure: Resolve(table, MetricCapitalExpenditure, period),
	}
	if fcf, ok := Lookup(table, MetricFreeCashFlow, period); ok {
		cf.FCF = fcf
		cf.Source = models.FCFSourceDirect
		return cf, true
	}
	if _, ok := Lookup(table, MetricOperatingCashFlow, period); ok {
		cf.FCF = cf.OperatingCashFlow + cf.CapitalExpenditure
		cf.Source = models.FCFSourceComputed
		return cf, true
	}
	return CashFlow{}, false
}

// TTMFreeCashFlow resolves trailing FCF over window, the quarters summed for
// revenue, most recent first. Only cash-flow quarters inside window count. The
// order is fixed: a direct quarterly FCF row, quarterly operating cash flow
// plus capex, the annual cash-flow period nearest the window's latest quarter
// within 370 days, and finally 25% of ttmRevenue.
func TTMFreeCashFlow(st *models.Statements, window []time.Time, ttmRevenue float64) CashFlow {
	if st == nil {
		st = &models.Statements{}
	}

	quarterly := st.QuarterlyCashFlow
	if overlap := periodsIn(quarterly, window); len(overlap) > 0 {
		ocf := sumPeriods(quarterly, MetricOperatingCashFlow, overlap)
		capex := sumPeriods(quarterly, MetricCapitalExpenditure, overlap)
		if HasMetric(quarterly, MetricFreeCashFlow) {
			fcf := sumPeriods(quarterly, MetricFreeCashFlow, overlap)
			return CashFlow{OperatingCashFlow: ocf, CapitalExpenditure: capex, FCF: fcf, Source: models.FCFSourceDirect}
		}
		if HasMetric(quarterly, MetricOperatingCashFlow) {
			return CashFlow{OperatingCashFlow: ocf, CapitalExpenditure: capex, FCF: ocf + capex, Source: models.FCFSourceComputed}
		}
	}

	if len(window) > 0 {
		if period, ok := nearestPeriod(st.AnnualCashFlow, window[0], annualProxyWindow); ok {
			if cf, ok := PeriodCashFlow(st.AnnualCashFlow, period); ok {
				cf.Source = models.FCFSourceAnnualProxy
				return cf
			}
		}
	}

	return CashFlow{FCF: ttmRevenue * estimatedFCFShare, Source: models.FCFSourceEstimated}
}

// periodsIn returns the periods of window that are columns of table
func periodsIn(table *models.StatementTable, window []time.Time) []time.Time {
	var out []time.Time
	for _, p := range window {
		if table.HasPeriod(p) {
			out = append(out, p)
		}
	}
	return out
}

// nearestPeriod returns the period of table closest to anchor, if it lies
// within window of it
func nearestPeriod(table *models.StatementTable, anchor time.Time, window time.Duration) (time.Time, bool) {
	var (
		best     time.Time
		bestDist time.Duration
		found    bool
	)
	for _, p := range table.Periods() {
		dist := anchor.Sub(p)
		if dist < 0 {
			dist = -dist
		}
		if dist > window {
			continue
		}
		if !found || dist < bestDist {
			best, bestDist, found = p, dist, true
		}
	}
	return best, found
}

// fundamentals are the absolute figures of one period or trailing window,
// before valuation ratios are applied
type fundamentals struct {
	Revenue     float64
	GrossProfit float64
	EBITDA      float64
	NetIncome   float64
	EPS         float64
	Shares      float64
	CashFlow    CashFlow
	ROIC        float64
	TotalDebt   float64
	Cash        float64
}

// scale converts the monetary fields of f with rate. Share counts are not
// monetary. ROIC is a ratio of two converted amounts and is unchanged.
func (f fundamentals) scale(rate float64) fundamentals {
	f.Revenue *= rate
	f.GrossProfit *= rate
	f.EBITDA *= rate
	f.NetIncome *= rate
	f.EPS *= rate
	f.CashFlow = f.CashFlow.Scale(rate)
	f.TotalDebt *= rate
	f.Cash *= rate
	return f
}

// ttmWindow is the trailing-twelve-month aggregate of the quarterly tables
type ttmWindow struct {
	fundamentals
	Anchor       time.Time
	QuartersUsed int
}

// aggregateTTM sums the quarterly flow metrics and snapshots the balance
// sheet. It reports false when there is no quarterly income data.
func aggregateTTM(st *models.Statements) (ttmWindow, bool) {
	income := st.QuarterlyIncome
	window := recentPeriods(income, ttmQuarters)
	if len(window) == 0 {
		return ttmWindow{}, false
	}

	w := ttmWindow{Anchor: window[0], QuartersUsed: len(window)}
	w.Revenue = sumPeriods(income, MetricRevenue, window)
	w.GrossProfit = sumPeriods(income, MetricGrossProfit, window)
	w.EBITDA = sumPeriods(income, MetricEBITDA, window)
	w.NetIncome = sumPeriods(income, MetricNetIncome, window)

	// EPS over the latest diluted share count; summed quarterly EPS otherwise
	w.Shares = Snapshot(income, MetricDilutedShares)
	if w.Shares > 0 {
		w.EPS = w.NetIncome / w.Shares
	} else {
		w.EPS = sumPeriods(income, MetricDilutedEPS, window)
	}

	w.CashFlow = TTMFreeCashFlow(st, window, w.Revenue)

	ebit, hasEBIT := 0.0, HasMetric(income, MetricEBIT)
	if hasEBIT {
		ebit = sumPeriods(income, MetricEBIT, window)
	}
	tax := sumPeriods(income, MetricTaxProvision, window)

	balance := st.QuarterlyBalance
	if balance.Empty() {
		balance = st.AnnualBalance
	}
	equity := Snapshot(balance, MetricStockholdersEquity)
	w.TotalDebt = Snapshot(balance, MetricTotalDebt)
	w.Cash = Snapshot(balance, MetricCash)
	w.ROIC = ROIC(operatingProfit(ebit, hasEBIT, w.EBITDA), tax, equity, w.TotalDebt, w.Cash)

	return w, true
}

// periodFundamentals reads the fundamentals of one period from the tables of
// the given frequency
func periodFundamentals(st *models.Statements, frequency string, period time.Time) fundamentals {
	income := st.Table(models.StatementIncome, frequency)
	cashFlow := st.Table(models.StatementCashFlow, frequency)
	balance := st.Table(models.StatementBalance, frequency)

	f := fundamentals{
		Revenue:     Resolve(income, MetricRevenue, period),
		GrossProfit: Resolve(income, MetricGrossProfit, period),
		EBITDA:      Resolve(income, MetricEBITDA, period),
		NetIncome:   Resolve(income, MetricNetIncome, period),
		EPS:         Resolve(income, MetricDilutedEPS, period),
		Shares:      Resolve(income, MetricDilutedShares, period),
	}
	if f.Shares <= 0 {
		f.Shares = Resolve(balance, MetricSharesOutstanding, period)
	}
	if f.EPS == 0 && f.Shares > 0 {
		f.EPS = f.NetIncome / f.Shares
	}

	if cf, ok := PeriodCashFlow(cashFlow, period); ok {
		f.CashFlow = cf
	} else {
		f.CashFlow = CashFlow{FCF: f.Revenue * estimatedFCFShare, Source: models.FCFSourceEstimated}
	}

	ebit, hasEBIT := Lookup(income, MetricEBIT, period)
	tax := Resolve(income, MetricTaxProvision, period)
	equity := Resolve(balance, MetricStockholdersEquity, period)
	f.TotalDebt = Resolve(balance, MetricTotalDebt, period)
	f.Cash = Resolve(balance, MetricCash, period)
	f.ROIC = ROIC(operatingProfit(ebit, hasEBIT, f.EBITDA), tax, equity, f.TotalDebt, f.Cash)

	return f
}

func operatingProfit(ebit float64, hasEBIT bool, ebitda float64) float64 {
	if hasEBIT {
		return ebit
	}
	return ebitda
}
