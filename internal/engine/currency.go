package engine

import (
	"context"
	"math"
	"strings"

	"github.com/ConstantinVictorBeatErtel/fincast/internal/models"
	"github.com/rs/zerolog"
)

// USD is the reporting currency of every output
const USD = "USD"

// FallbackRates are approximate USD values of one unit of each currency, used
// when the live lookup fails.
var FallbackRates = map[string]float64{
	"EUR": 1.08, "GBP": 1.27, "CAD": 0.74, "AUD": 0.66,
	"JPY": 0.0067, "CHF": 1.12, "CNY": 0.14, "INR": 0.012,
	"BRL": 0.21, "MXN": 0.059, "KRW": 0.00076, "SGD": 0.74,
	"HKD": 0.13, "SEK": 0.095, "NOK": 0.095, "DKK": 0.14,
	"PLN": 0.25, "CZK": 0.044, "HUF": 0.0028, "RUB": 0.011,
}

var nullCurrencies = map[string]bool{
	"":     true,
	"NONE": true,
	"NULL": true,
	"N/A":  true,
	"NAN":  true,
}

// NormalizeCurrency upper-cases a currency code and maps null sentinels to ""
func NormalizeCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if nullCurrencies[code] {
		return ""
	}
	return code
}

// Detector determines a statement's reporting currency
type Detector struct {
	heuristics *Heuristics
}

// NewDetector creates a Detector; nil heuristics means the built-in tables
func NewDetector(h *Heuristics) *Detector {
	if h == nil {
		h = DefaultHeuristics()
	}
	return &Detector{heuristics: h}
}

// Detect returns the reporting currency: the explicit field, then the
// company-name table, then the country table, then USD.
func (d *Detector) Detect(info *models.CompanyInfo) string {
	if info == nil {
		return USD
	}
	if code := NormalizeCurrency(info.Currency); code != "" {
		return code
	}
	for _, name := range []string{info.LongName, info.ShortName} {
		if code, ok := d.heuristics.CompanyCurrency(name); ok {
			return code
		}
	}
	if code, ok := d.heuristics.CountryCurrency(info.Country); ok {
		return code
	}
	return USD
}

// RateProvider looks up live exchange rates: units of each target currency
// per one unit of base.
type RateProvider interface {
	Rates(ctx context.Context, base string) (map[string]float64, error)
}

// Rate is a resolved exchange rate and where it came from
type Rate struct {
	Value  float64
	Source string
}

// Converter converts monetary values between currencies. It does not cache:
// every Rate call performs a lookup.
type Converter struct {
	provider RateProvider
	log      zerolog.Logger
}

// NewConverter creates a Converter; a nil provider always uses FallbackRates
func NewConverter(provider RateProvider, log zerolog.Logger) *Converter {
	return &Converter{
		provider: provider,
		log:      log.With().Str("component", "currency").Logger(),
	}
}

// FallbackRate returns the static from->to rate. Unknown currencies count as 1.0.
func FallbackRate(from, to string) float64 {
	from, to = NormalizeCurrency(from), NormalizeCurrency(to)
	if from == to {
		return 1.0
	}
	return usdValue(from) / usdValue(to)
}

func usdValue(code string) float64 {
	if code == USD || code == "" {
		return 1.0
	}
	if v, ok := FallbackRates[code]; ok {
		return v
	}
	return 1.0
}

// Rate returns the from->to exchange rate, falling back to the static table
// when the live lookup fails or omits the target currency.
func (c *Converter) Rate(ctx context.Context, from, to string) Rate {
	from, to = NormalizeCurrency(from), NormalizeCurrency(to)
	if from == "" {
		from = USD
	}
	if to == "" {
		to = USD
	}
	if from == to {
		return Rate{Value: 1.0, Source: models.RateSourceNone}
	}

	if c.provider != nil {
		rates, err := c.provider.Rates(ctx, from)
		if err == nil {
			if v, ok := rates[to]; ok && v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v) {
				return Rate{Value: v, Source: models.RateSourceLive}
			}
			c.log.Warn().Str("from", from).Str("to", to).Msg("live rates missing target currency, using fallback table")
		} else {
			c.log.Warn().Err(err).Str("from", from).Str("to", to).Msg("exchange rate lookup failed, using fallback table")
		}
	}

	return Rate{Value: FallbackRate(from, to), Source: models.RateSourceFallback}
}

// Convert converts value from one currency to another. Equal currencies
// return value unchanged.
func (c *Converter) Convert(ctx context.Context, value float64, from, to string) float64 {
	if NormalizeCurrency(from) == NormalizeCurrency(to) {
		return value
	}
	return value * c.Rate(ctx, from, to).Value
}
