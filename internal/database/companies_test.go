package database

import (
	"errors"
	"testing"
	"time"

	"github.com/ConstantinVictorBeatErtel/fincast/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompanyRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)

	t.Run("UpsertCompany creates and retrieves", func(t *testing.T) {
		testDB.TruncateAll(t)

		fyEnd := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
		company := &models.CompanyInfo{
			Symbol:            "novo",
			LongName:          "Novo Nordisk A/S",
			ShortName:         "Novo Nordisk",
			Country:           "Denmark",
			Currency:          "DKK",
			TradingCurrency:   "USD",
			FiscalYearEnd:     &fyEnd,
			SharesOutstanding: 4437000000,
			CurrentPrice:      125.5,
		}
		require.NoError(t, testDB.UpsertCompany(company))

		retrieved, err := testDB.GetCompany("NOVO")
		require.NoError(t, err)
		assert.Equal(t, "NOVO", retrieved.Symbol)
		assert.Equal(t, "Novo Nordisk A/S", retrieved.LongName)
		assert.Equal(t, "DKK", retrieved.Currency)
		assert.Equal(t, "USD", retrieved.TradingCurrency)
		require.NotNil(t, retrieved.FiscalYearEnd)
		assert.True(t, fyEnd.Equal(*retrieved.FiscalYearEnd))
		assert.InDelta(t, 4437000000, retrieved.SharesOutstanding, 1e-3)
		assert.InDelta(t, 125.5, retrieved.CurrentPrice, 1e-9)
	})

	t.Run("UpsertCompany replaces existing row", func(t *testing.T) {
		testDB.TruncateAll(t)

		require.NoError(t, testDB.UpsertCompany(&models.CompanyInfo{Symbol: "AAPL", LongName: "Apple", Currency: "USD"}))
		require.NoError(t, testDB.UpsertCompany(&models.CompanyInfo{Symbol: "AAPL", LongName: "Apple Inc.", Country: "United States"}))

		retrieved, err := testDB.GetCompany("AAPL")
		require.NoError(t, err)
		assert.Equal(t, "Apple Inc.", retrieved.LongName)
		assert.Equal(t, "United States", retrieved.Country)
		assert.Empty(t, retrieved.Currency)
		assert.Nil(t, retrieved.FiscalYearEnd)
	})

	t.Run("GetCompany returns ErrNotFound", func(t *testing.T) {
		testDB.TruncateAll(t)

		_, err := testDB.GetCompany("NONEXISTENT")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("DeleteCompany removes row", func(t *testing.T) {
		testDB.TruncateAll(t)

		require.NoError(t, testDB.UpsertCompany(&models.CompanyInfo{Symbol: "MSFT"}))
		require.NoError(t, testDB.DeleteCompany("MSFT"))

		err := testDB.DeleteCompany("MSFT")
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}
