package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/ConstantinVictorBeatErtel/fincast/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRates struct {
	rates map[string]map[string]float64
	err   error
	calls int
}

func (s *stubRates) Rates(_ context.Context, base string) (map[string]float64, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.rates[base], nil
}

func TestDetector_Detect(t *testing.T) {
	d := NewDetector(nil)

	tests := []struct {
		name string
		info *models.CompanyInfo
		want string
	}{
		{"nil metadata", nil, "USD"},
		{"explicit currency", &models.CompanyInfo{Currency: "eur", LongName: "Novo Nordisk A/S"}, "EUR"},
		{"null sentinel ignored", &models.CompanyInfo{Currency: "None", LongName: "Novo Nordisk A/S"}, "DKK"},
		{"nan sentinel ignored", &models.CompanyInfo{Currency: "nan", Country: "Japan"}, "JPY"},
		{"company name", &models.CompanyInfo{LongName: "Novo Nordisk A/S"}, "DKK"},
		{"short name", &models.CompanyInfo{ShortName: "ROCHE HOLDING AG"}, "CHF"},
		{"whole word match", &models.CompanyInfo{LongName: "ING Group N.V."}, "EUR"},
		{"no match inside a word", &models.CompanyInfo{LongName: "Sterling Group Holdings Inc."}, "USD"},
		{"company beats country", &models.CompanyInfo{LongName: "Novartis AG", Country: "Denmark"}, "CHF"},
		{"country", &models.CompanyInfo{LongName: "Acme Widgets", Country: "Federal Republic of Germany"}, "EUR"},
		{"default", &models.CompanyInfo{LongName: "Apple Inc.", Country: "United States"}, "USD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.Detect(tt.info))
		})
	}
}

func TestParseHeuristics(t *testing.T) {
	h, err := ParseHeuristics([]byte(`
version: 2
companies:
  - match: Acme
    currency: sek
countries:
  - match: Narnia
    currency: nok
`))
	require.NoError(t, err)
	assert.Equal(t, 2, h.Version)

	code, ok := h.CompanyCurrency("ACME Corp")
	require.True(t, ok)
	assert.Equal(t, "SEK", code)

	code, ok = h.CountryCurrency("Kingdom of Narnia")
	require.True(t, ok)
	assert.Equal(t, "NOK", code)

	_, ok = h.CompanyCurrency("Acmeco")
	assert.False(t, ok)

	_, err = ParseHeuristics([]byte("companies:\n  - match: acme\n"))
	assert.Error(t, err)
}

func TestLoadHeuristics_Default(t *testing.T) {
	h, err := LoadHeuristics("")
	require.NoError(t, err)
	assert.Same(t, DefaultHeuristics(), h)

	_, err = LoadHeuristics("/nonexistent/heuristics.yaml")
	assert.Error(t, err)
}

func TestConverter_Rate(t *testing.T) {
	ctx := context.Background()

	t.Run("same currency needs no lookup", func(t *testing.T) {
		provider := &stubRates{}
		c := NewConverter(provider, zerolog.Nop())

		r := c.Rate(ctx, "usd", "USD")
		assert.Equal(t, 1.0, r.Value)
		assert.Equal(t, models.RateSourceNone, r.Source)
		assert.Equal(t, 0, provider.calls)
	})

	t.Run("live rate", func(t *testing.T) {
		provider := &stubRates{rates: map[string]map[string]float64{"DKK": {"USD": 0.145}}}
		c := NewConverter(provider, zerolog.Nop())

		r := c.Rate(ctx, "DKK", "USD")
		assert.Equal(t, 0.145, r.Value)
		assert.Equal(t, models.RateSourceLive, r.Source)
	})

	t.Run("lookup error uses fallback table", func(t *testing.T) {
		c := NewConverter(&stubRates{err: errors.New("connection refused")}, zerolog.Nop())

		r := c.Rate(ctx, "EUR", "USD")
		assert.Equal(t, 1.08, r.Value)
		assert.Equal(t, models.RateSourceFallback, r.Source)
	})

	t.Run("missing or invalid target uses fallback table", func(t *testing.T) {
		provider := &stubRates{rates: map[string]map[string]float64{
			"GBP": {"EUR": 1.17},
			"JPY": {"USD": 0},
		}}
		c := NewConverter(provider, zerolog.Nop())

		assert.Equal(t, 1.27, c.Rate(ctx, "GBP", "USD").Value)
		assert.Equal(t, 0.0067, c.Rate(ctx, "JPY", "USD").Value)
	})

	t.Run("unknown currency defaults to one", func(t *testing.T) {
		c := NewConverter(nil, zerolog.Nop())
		assert.Equal(t, 1.0, c.Rate(ctx, "XYZ", "USD").Value)
	})

	t.Run("rates are not cached", func(t *testing.T) {
		provider := &stubRates{rates: map[string]map[string]float64{"EUR": {"USD": 1.1}}}
		c := NewConverter(provider, zerolog.Nop())

		c.Rate(ctx, "EUR", "USD")
		c.Rate(ctx, "EUR", "USD")
		assert.Equal(t, 2, provider.calls)
	})
}

func TestConverter_Convert(t *testing.T) {
	ctx := context.Background()
	c := NewConverter(nil, zerolog.Nop())

	assert.Equal(t, 123.45, c.Convert(ctx, 123.45, "USD", "USD"))
	assert.Equal(t, 123.45, c.Convert(ctx, 123.45, "DKK", "dkk"))

	for code := range FallbackRates {
		usd := c.Convert(ctx, 1000, code, "USD")
		back := c.Convert(ctx, usd, "USD", code)
		assert.InDelta(t, 1000, back, 1e-6, code)
	}
}
