package database

import (
	"testing"
	"time"

	"github.com/ConstantinVictorBeatErtel/fincast/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lineItem(statement, frequency, label string, period time.Time, value float64) *models.LineItem {
	return &models.LineItem{
		Symbol:    "AAPL",
		Statement: statement,
		Frequency: frequency,
		Label:     label,
		PeriodEnd: period,
		Value:     decimal.NewNullDecimal(decimal.NewFromFloat(value)),
	}
}

func TestStatementRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)

	q1 := time.Date(2024, 12, 28, 0, 0, 0, 0, time.UTC)
	q4 := time.Date(2024, 9, 28, 0, 0, 0, 0, time.UTC)

	t.Run("UpsertLineItems and LoadStatements", func(t *testing.T) {
		testDB.TruncateAll(t)

		items := []*models.LineItem{
			lineItem(models.StatementIncome, models.FrequencyQuarterly, "Total Revenue", q1, 124300000000),
			lineItem(models.StatementIncome, models.FrequencyQuarterly, "Total Revenue", q4, 94930000000),
			lineItem(models.StatementIncome, models.FrequencyQuarterly, "Net Income", q1, 36330000000),
			lineItem(models.StatementCashFlow, models.FrequencyQuarterly, "Free Cash Flow", q1, 26995000000),
			lineItem(models.StatementBalance, models.FrequencyAnnual, "Total Debt", q4, 106629000000),
			{Symbol: "AAPL", Statement: models.StatementIncome, Frequency: models.FrequencyQuarterly, Label: "EBITDA", PeriodEnd: q1},
		}
		require.NoError(t, testDB.UpsertLineItems(items))

		st, err := testDB.LoadStatements("aapl")
		require.NoError(t, err)

		assert.Equal(t, []time.Time{q1, q4}, st.QuarterlyIncome.Periods())
		v, ok := st.QuarterlyIncome.Value("Total Revenue", q1)
		require.True(t, ok)
		assert.True(t, decimal.NewFromInt(124300000000).Equal(v.(decimal.Decimal)))

		// Stored NULL stays missing
		v, ok = st.QuarterlyIncome.Value("EBITDA", q1)
		assert.True(t, ok)
		assert.Nil(t, v)

		assert.True(t, st.QuarterlyCashFlow.HasRow("Free Cash Flow"))
		assert.True(t, st.AnnualBalance.HasRow("Total Debt"))
		assert.True(t, st.AnnualIncome.Empty())
	})

	t.Run("UpsertLineItems overwrites a re-ingested cell", func(t *testing.T) {
		testDB.TruncateAll(t)

		require.NoError(t, testDB.UpsertLineItems([]*models.LineItem{
			lineItem(models.StatementIncome, models.FrequencyAnnual, "Total Revenue", q4, 1),
		}))
		require.NoError(t, testDB.UpsertLineItems([]*models.LineItem{
			lineItem(models.StatementIncome, models.FrequencyAnnual, "Total Revenue", q4, 391035000000),
		}))

		items, err := testDB.GetLineItems("AAPL")
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.True(t, decimal.NewFromInt(391035000000).Equal(items[0].Value.Decimal))
	})

	t.Run("invalid statement kind fails the whole batch", func(t *testing.T) {
		testDB.TruncateAll(t)

		err := testDB.UpsertLineItems([]*models.LineItem{
			lineItem(models.StatementIncome, models.FrequencyAnnual, "Total Revenue", q4, 1),
			lineItem("equity", models.FrequencyAnnual, "Total Revenue", q4, 1),
		})
		require.Error(t, err)

		items, err := testDB.GetLineItems("AAPL")
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("LoadStatements for unknown symbol is empty", func(t *testing.T) {
		testDB.TruncateAll(t)

		st, err := testDB.LoadStatements("NONEXISTENT")
		require.NoError(t, err)
		assert.True(t, st.Empty())
	})

	t.Run("DeleteLineItems removes only that symbol", func(t *testing.T) {
		testDB.TruncateAll(t)

		other := lineItem(models.StatementIncome, models.FrequencyAnnual, "Total Revenue", q4, 1)
		other.Symbol = "MSFT"
		require.NoError(t, testDB.UpsertLineItems([]*models.LineItem{
			lineItem(models.StatementIncome, models.FrequencyAnnual, "Total Revenue", q4, 1),
			other,
		}))

		deleted, err := testDB.DeleteLineItems("AAPL")
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		items, err := testDB.GetLineItems("MSFT")
		require.NoError(t, err)
		assert.Len(t, items, 1)
	})
}
