package engine

import (
	"time"

	"github.com/ConstantinVictorBeatErtel/fincast/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// quarterEnds returns n quarter end dates, most recent first, starting at latest
func quarterEnds(latest time.Time, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = time.Date(latest.Year(), latest.Month()-time.Month(3*i)+1, 0, 0, 0, 0, 0, time.UTC)
	}
	return out
}

// setRow fills one row of table, values aligned with periods
func setRow(table *models.StatementTable, label string, periods []time.Time, values ...any) {
	for i, v := range values {
		table.Set(label, periods[i], v)
	}
}
