package period

import "time"

// Position is where a period end falls in the fiscal calendar.
type Position struct {
	FiscalYear int
	Quarter    int // 1-4
}

// FiscalPosition maps a period end date to its fiscal year and quarter.
//
// The end date is first attributed to a calendar month (dates within the grace
// window at the start of a month belong to the previous month); the quarter is
// the attributed month's position after the fiscal year end month, and the fiscal
// year is the year in which that fiscal year closes.
func (t Thresholds) FiscalPosition(end time.Time) Position {
	fye := t.FiscalYearEndMonth
	if fye < 1 || fye > 12 {
		fye = 12
	}

	attributed := end
	if end.Day() <= t.WeekCalendarGraceDays {
		attributed = end.AddDate(0, 0, -end.Day())
	}
	month := int(attributed.Month())
	year := attributed.Year()

	// Months elapsed since the fiscal year end month, 1..12.
	offset := (month-fye+11)%12 + 1
	pos := Position{FiscalYear: year, Quarter: (offset + 2) / 3}
	if month > fye {
		pos.FiscalYear = year + 1
	}
	return pos
}

// IsFirstQuarter reports whether the position is fiscal Q1, where the discrete
// quarter and the year-to-date value coincide.
func (p Position) IsFirstQuarter() bool { return p.Quarter == 1 }

// IsFourthQuarter reports whether the position is fiscal Q4, the only quarter
// whose 10-Q value may be read as year-to-date.
func (p Position) IsFourthQuarter() bool { return p.Quarter == 4 }

func (t Thresholds) isQuarterDuration(days int) bool {
	return days >= t.QuarterMinDays && days <= t.QuarterMaxDays
}

func (t Thresholds) isAnnualDuration(days int) bool {
	return days >= t.AnnualMinDays && days <= t.AnnualMaxDays
}
