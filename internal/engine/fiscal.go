package engine

import (
	"fmt"
	"time"

	"github.com/ConstantinVictorBeatErtel/fincast/internal/models"
)

// LabelFiscalPeriod assigns a fiscal quarter and year to the latest quarter
// end. Without a fiscal-year-end hint the calendar year is assumed.
//
// When latest falls after fyEnd the company has entered the next fiscal year
// and the quarter is counted from fyEnd. When it falls on or before fyEnd the
// quarter is counted back from it, so a March quarter of a June fiscal year is
// Q3. A hint more than a year away is moved by whole fiscal years first.
func LabelFiscalPeriod(latest time.Time, fyEnd *time.Time) models.FiscalInfo {
	latest = models.NormalizeDate(latest)

	var year, quarter int
	switch {
	case fyEnd == nil || fyEnd.IsZero():
		year = latest.Year()
		quarter = 1 + (int(latest.Month())-1)/3
	case latest.After(models.NormalizeDate(*fyEnd)):
		elapsed := monthsBetween(*fyEnd, latest)
		years := 0
		if elapsed > 12 {
			years = (elapsed - 1) / 12
			elapsed -= years * 12
		}
		year = fyEnd.Year() + 1 + years
		quarter = clampQuarter((elapsed + 2) / 3)
	default:
		before := monthsBetween(latest, *fyEnd)
		years := before / 12
		before -= years * 12
		year = fyEnd.Year() - years
		quarter = clampQuarter(4 - before/3)
	}

	label := QuarterLabel(quarter, year)
	return models.FiscalInfo{
		LatestQuarterDate:  models.DateKey(latest),
		LatestQuarterLabel: label,
		TTMLabel:           fmt.Sprintf("TTM (As of %s)", label),
		CurrentFiscalYear:  year,
		FiscalQuarter:      quarter,
	}
}

// QuarterLabel formats a fiscal quarter as "Qn FYyy"
func QuarterLabel(quarter, fiscalYear int) string {
	return fmt.Sprintf("Q%d FY%02d", quarter, fiscalYear%100)
}

// YearLabel formats a fiscal year as "FYyy"
func YearLabel(fiscalYear int) string {
	return fmt.Sprintf("FY%02d", fiscalYear%100)
}

// monthsBetween counts calendar months from a to b, ignoring the day of month
func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

func clampQuarter(q int) int {
	if q < 1 {
		return 1
	}
	if q > 4 {
		return 4
	}
	return q
}
