package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAddMonthsClamped(t *testing.T) {
	tests := []struct {
		name     string
		input    time.Time
		months   int
		expected time.Time
	}{
		{
			name:     "mid-month stays on same day",
			input:    date(2023, time.March, 15),
			months:   1,
			expected: date(2023, time.April, 15),
		},
		{
			name:     "jan 31 clamps to feb 28",
			input:    date(2023, time.January, 31),
			months:   1,
			expected: date(2023, time.February, 28),
		},
		{
			name:     "jan 31 clamps to feb 29 in leap year",
			input:    date(2024, time.January, 31),
			months:   1,
			expected: date(2024, time.February, 29),
		},
		{
			name:     "mar 31 clamps to apr 30",
			input:    date(2023, time.March, 31),
			months:   1,
			expected: date(2023, time.April, 30),
		},
		{
			name:     "december rolls into next year",
			input:    date(2023, time.December, 10),
			months:   1,
			expected: date(2024, time.January, 10),
		},
		{
			name:     "multiple months",
			input:    date(2023, time.January, 1),
			months:   4,
			expected: date(2023, time.May, 1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AddMonthsClamped(tt.input, tt.months))
		})
	}
}

func TestAddMonthsClampedPreservesClock(t *testing.T) {
	input := time.Date(2023, time.January, 31, 14, 30, 45, 0, time.UTC)
	result := AddMonthsClamped(input, 1)

	assert.Equal(t, time.Date(2023, time.February, 28, 14, 30, 45, 0, time.UTC), result)
}

func TestAddWeeklyCycle(t *testing.T) {
	assert.Equal(t, date(2023, time.March, 8), AddWeeklyCycle(date(2023, time.March, 1)))
}

func TestDaysUntil(t *testing.T) {
	now := date(2023, time.April, 15)

	assert.Equal(t, 16, DaysUntil(now, date(2023, time.May, 1)))
	assert.Equal(t, 0, DaysUntil(now, now))
	assert.Equal(t, -3, DaysUntil(now, date(2023, time.April, 12)))

	// Partial days round up.
	assert.Equal(t, 1, DaysUntil(now, now.Add(2*time.Hour)))
}

func TestSameCalendarDay(t *testing.T) {
	morning := time.Date(2023, time.April, 15, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2023, time.April, 15, 23, 59, 0, 0, time.UTC)
	nextDay := time.Date(2023, time.April, 16, 0, 1, 0, 0, time.UTC)

	assert.True(t, SameCalendarDay(morning, evening))
	assert.False(t, SameCalendarDay(morning, nextDay))
}

func TestDayKey(t *testing.T) {
	assert.Equal(t, "2023-04-15", DayKey(date(2023, time.April, 15)))
}
