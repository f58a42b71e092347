package utils

import (
	"math"
	"time"
)

// AddMonthsClamped adds calendar months preserving the day of month,
// clamping to the last valid day of the target month (Jan 31 + 1 month is
// Feb 28, not Mar 3). Go's AddDate normalizes overflow instead of clamping,
// which would drift due dates for contracts anchored late in the month.
func AddMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	lastDay := first.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	hour, min, sec := t.Clock()
	return time.Date(first.Year(), first.Month(), day, hour, min, sec, t.Nanosecond(), t.Location())
}

// AddWeeklyCycle advances a date by one 7-day billing cycle.
func AddWeeklyCycle(t time.Time) time.Time {
	return t.AddDate(0, 0, 7)
}

// DaysUntil returns ceil((target - now) / 24h). Zero or negative means the
// target is due today or overdue.
func DaysUntil(now, target time.Time) int {
	return int(math.Ceil(target.Sub(now).Hours() / 24))
}

// SameCalendarDay reports whether two instants fall on the same calendar
// date in a's location.
func SameCalendarDay(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.In(a.Location()).Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// DayKey formats an instant as the YYYY-MM-DD key used for date-scoped
// dedup records.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
