package models

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// PriceDataDaily represents daily OHLCV price data for a stock
type PriceDataDaily struct {
	ID        int             `json:"id"`
	Symbol    string          `json:"symbol"`
	Date      time.Time       `json:"date"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    int64           `json:"volume"`
	VWAP      decimal.Decimal `json:"vwap,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// PricePoint is one closing price
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// PriceSeries is a date-ascending sequence of closing prices
type PriceSeries []PricePoint

// NewPriceSeries copies points and sorts them by date ascending
func NewPriceSeries(points []PricePoint) PriceSeries {
	out := make(PriceSeries, len(points))
	copy(out, points)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// PriceSeriesFromDaily builds a price series from stored daily rows
func PriceSeriesFromDaily(rows []*PriceDataDaily) PriceSeries {
	points := make([]PricePoint, 0, len(rows))
	for _, r := range rows {
		points = append(points, PricePoint{Date: r.Date, Close: r.Close.InexactFloat64()})
	}
	return NewPriceSeries(points)
}

// Latest returns the most recent point
func (s PriceSeries) Latest() (PricePoint, bool) {
	if len(s) == 0 {
		return PricePoint{}, false
	}
	return s[len(s)-1], true
}
