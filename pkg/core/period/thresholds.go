package period

import "fmt"

// Thresholds holds every tunable used by the classifier. None of these values
// is known to be "correct" across all filers; they are recalibrated against
// real filer data and exercised by tests at several settings.
type Thresholds struct {
	// YTDRatioThreshold is the value/Q1 ratio at or above which a fiscal-Q4
	// bucket from a quarterly filing is treated as a year-to-date figure.
	// A discrete quarter rarely exceeds a few times Q1, while a full-year
	// cumulative sits near 4x. The default of 8.0 flags only extreme cases.
	// Earlier calibrations used 1.5 and 3.0.
	YTDRatioThreshold float64 `json:"ytd_ratio_threshold" yaml:"ytd_ratio_threshold"`

	// QuarterMinDays and QuarterMaxDays bound the duration of a discrete quarter.
	// 13-week quarters run 91 days; 52/53-week filers can report 84 or 98.
	QuarterMinDays int `json:"quarter_min_days" yaml:"quarter_min_days"`
	QuarterMaxDays int `json:"quarter_max_days" yaml:"quarter_max_days"`

	// AnnualMinDays and AnnualMaxDays bound the duration of a fiscal-year total
	// (364 or 371 days for 52/53-week filers).
	AnnualMinDays int `json:"annual_min_days" yaml:"annual_min_days"`
	AnnualMaxDays int `json:"annual_max_days" yaml:"annual_max_days"`

	// FiscalYearEndMonth is the calendar month (1-12) that closes the fiscal year.
	FiscalYearEndMonth int `json:"fiscal_year_end_month" yaml:"fiscal_year_end_month"`

	// WeekCalendarGraceDays attributes a period ending within the first days of a
	// month to the previous month (a 52/53-week year ending on Jan 2 belongs to December).
	WeekCalendarGraceDays int `json:"week_calendar_grace_days" yaml:"week_calendar_grace_days"`

	// UseDurationHints narrows a fully dated bucket to its quarter-length facts
	// before the ratio heuristic runs. It never classifies a value by itself.
	UseDurationHints bool `json:"use_duration_hints" yaml:"use_duration_hints"`

	// DeriveMissingQuarters fills a missing discrete quarter by differencing
	// cumulative values of the same fiscal year.
	DeriveMissingQuarters bool `json:"derive_missing_quarters" yaml:"derive_missing_quarters"`
}

// DefaultThresholds returns the calibrated defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		YTDRatioThreshold:     8.0,
		QuarterMinDays:        80,
		QuarterMaxDays:        100,
		AnnualMinDays:         350,
		AnnualMaxDays:         380,
		FiscalYearEndMonth:    12,
		WeekCalendarGraceDays: 7,
		UseDurationHints:      true,
		DeriveMissingQuarters: false,
	}
}

// Validate rejects inconsistent settings.
func (t Thresholds) Validate() error {
	if t.YTDRatioThreshold <= 1 {
		return fmt.Errorf("ytd_ratio_threshold must be greater than 1, got %v", t.YTDRatioThreshold)
	}
	if t.QuarterMinDays <= 0 || t.QuarterMinDays > t.QuarterMaxDays {
		return fmt.Errorf("invalid quarter window [%d, %d]", t.QuarterMinDays, t.QuarterMaxDays)
	}
	if t.AnnualMinDays <= t.QuarterMaxDays || t.AnnualMinDays > t.AnnualMaxDays {
		return fmt.Errorf("invalid annual window [%d, %d]", t.AnnualMinDays, t.AnnualMaxDays)
	}
	if t.FiscalYearEndMonth < 1 || t.FiscalYearEndMonth > 12 {
		return fmt.Errorf("fiscal_year_end_month must be 1-12, got %d", t.FiscalYearEndMonth)
	}
	if t.WeekCalendarGraceDays < 0 || t.WeekCalendarGraceDays > 14 {
		return fmt.Errorf("week_calendar_grace_days must be 0-14, got %d", t.WeekCalendarGraceDays)
	}
	return nil
}
