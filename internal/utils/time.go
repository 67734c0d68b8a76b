package utils

import (
	"time"
)

// Clock abstracts wall-clock reads so time-dependent pricing logic stays
// reproducible under test.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func NewSystemClock() Clock { return systemClock{} }

// FixedClock always reports the same instant.
type FixedClock struct {
	Instant time.Time
}

func (c FixedClock) Now() time.Time { return c.Instant }

func FormatTimeISO(t time.Time) string {
	return t.Format(time.RFC3339)
}

func ParseTimeISO(timeStr string) (time.Time, error) {
	return time.Parse(time.RFC3339, timeStr)
}

func StartOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

func EndOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 23, 59, 59, 999999999, t.Location())
}

func IsWeekend(t time.Time) bool {
	weekday := t.Weekday()
	return weekday == time.Saturday || weekday == time.Sunday
}

func IsLunchHour(t time.Time) bool {
	hour := t.Hour()
	return hour >= LunchStartHour && hour < LunchEndHour
}

func IsDinnerHour(t time.Time) bool {
	hour := t.Hour()
	return hour >= DinnerStartHour && hour < DinnerEndHour
}

// IsHoliday covers the fixed-date holidays that move restaurant demand.
// A real deployment would source these from a calendar feed.
func IsHoliday(t time.Time) bool {
	month, day := t.Month(), t.Day()
	switch {
	case month == time.January && day == 1:
		return true
	case month == time.February && day == 14:
		return true
	case month == time.July && day == 4:
		return true
	case month == time.December && (day == 24 || day == 25 || day == 31):
		return true
	}
	return false
}

// SeasonalMultiplier maps the month to the demand swing restaurants see over
// the year: the December holiday run peaks, deep winter runs slow, summer
// trends above baseline.
func SeasonalMultiplier(t time.Time) float64 {
	switch t.Month() {
	case time.December:
		return HolidaySeasonMultiplier
	case time.January, time.February:
		return LowSeasonMultiplier
	case time.June, time.July, time.August:
		return SummerSeasonMultiplier
	default:
		return 1.0
	}
}

// SeasonOf maps a month to its meteorological season (northern hemisphere).
func SeasonOf(t time.Time) string {
	switch t.Month() {
	case time.December, time.January, time.February:
		return "winter"
	case time.March, time.April, time.May:
		return "spring"
	case time.June, time.July, time.August:
		return "summer"
	default:
		return "autumn"
	}
}
