package engine

import (
	"math"
	"testing"

	"github.com/ConstantinVictorBeatErtel/fincast/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	period := date(2024, 12, 31)

	t.Run("first alias present wins", func(t *testing.T) {
		table := models.NewStatementTable(models.StatementCashFlow, models.FrequencyQuarterly)
		table.Set("Total Cash From Operating Activities", period, 80.0)
		table.Set("Operating Cash Flow", period, 100.0)

		assert.Equal(t, 100.0, Resolve(table, MetricOperatingCashFlow, period))
	})

	t.Run("later alias used when preferred is absent", func(t *testing.T) {
		table := models.NewStatementTable(models.StatementCashFlow, models.FrequencyQuarterly)
		table.Set("Total Cash From Operating Activities", period, 80.0)

		assert.Equal(t, 80.0, Resolve(table, MetricOperatingCashFlow, period))
	})

	t.Run("absent metric is zero", func(t *testing.T) {
		table := models.NewStatementTable(models.StatementIncome, models.FrequencyQuarterly)
		table.Set("Total Revenue", period, 10.0)

		assert.Equal(t, 0.0, Resolve(table, MetricEBITDA, period))
		assert.False(t, HasMetric(table, MetricEBITDA))
	})

	t.Run("absent period is zero", func(t *testing.T) {
		table := models.NewStatementTable(models.StatementIncome, models.FrequencyQuarterly)
		table.Set("Total Revenue", period, 10.0)

		v, ok := Lookup(table, MetricRevenue, date(2023, 12, 31))
		assert.False(t, ok)
		assert.Equal(t, 0.0, v)
	})

	t.Run("non numeric and non finite cells are zero", func(t *testing.T) {
		table := models.NewStatementTable(models.StatementIncome, models.FrequencyQuarterly)
		table.Set("Total Revenue", period, math.NaN())
		table.Set("Net Income", period, "n/a")
		table.Set("EBITDA", period, math.Inf(1))
		table.Set("Gross Profit", period, nil)

		assert.Equal(t, 0.0, Resolve(table, MetricRevenue, period))
		assert.Equal(t, 0.0, Resolve(table, MetricNetIncome, period))
		assert.Equal(t, 0.0, Resolve(table, MetricEBITDA, period))
		assert.Equal(t, 0.0, Resolve(table, MetricGrossProfit, period))
	})

	t.Run("nil table", func(t *testing.T) {
		assert.Equal(t, 0.0, Resolve(nil, MetricRevenue, period))
	})
}

func TestAliasesCoverEveryMetric(t *testing.T) {
	metrics := []Metric{
		MetricRevenue, MetricGrossProfit, MetricEBITDA, MetricEBIT, MetricNetIncome,
		MetricDilutedEPS, MetricDilutedShares, MetricTaxProvision, MetricOperatingCashFlow,
		MetricCapitalExpenditure, MetricFreeCashFlow, MetricStockholdersEquity,
		MetricTotalDebt, MetricCash, MetricSharesOutstanding,
	}
	for _, m := range metrics {
		assert.NotEmpty(t, Aliases[m], "metric %q has no aliases", m)
	}
}
