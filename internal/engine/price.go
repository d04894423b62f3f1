package engine

import (
	"sort"
	"time"

	"github.com/ConstantinVictorBeatErtel/fincast/internal/models"
)

// PriceAt returns the closing price on date, or on the nearest trading day
// before it. It reports false when the series starts after date.
func PriceAt(series models.PriceSeries, date time.Time) (float64, bool) {
	if len(series) == 0 {
		return 0, false
	}
	date = models.NormalizeDate(date)
	// first index strictly after date
	i := sort.Search(len(series), func(i int) bool {
		return models.NormalizeDate(series[i].Date).After(date)
	})
	for i--; i >= 0; i-- {
		if series[i].Close > 0 {
			return series[i].Close, true
		}
	}
	return 0, false
}
