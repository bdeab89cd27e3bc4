package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestWorkDaysMondayToSunday(t *testing.T) {
	// 2026-01-05 is a Monday, 2026-01-11 the following Sunday.
	got := WorkDays(day(2026, time.January, 5), day(2026, time.January, 11), nil)
	assert.Equal(t, 6, got)
}

func TestWorkDaysExcludesHolidays(t *testing.T) {
	holidays := NewHolidaySet([]time.Time{day(2026, time.January, 6)}) // Tuesday
	got := WorkDays(day(2026, time.January, 5), day(2026, time.January, 7), holidays)
	assert.Equal(t, 2, got)
}

func TestWorkDaysSingleSunday(t *testing.T) {
	sunday := day(2026, time.January, 11)
	assert.Equal(t, 0, WorkDays(sunday, sunday, nil))
}

func TestWorkDaysSaturdayCounts(t *testing.T) {
	saturday := day(2026, time.January, 10)
	assert.True(t, IsWorkDay(saturday, nil))
}

func TestWorkDaysHolidayOnSundayNotDoubleCounted(t *testing.T) {
	holidays := NewHolidaySet([]time.Time{day(2026, time.January, 11)}) // Sunday
	got := WorkDays(day(2026, time.January, 5), day(2026, time.January, 11), holidays)
	assert.Equal(t, 6, got)
}

func TestEachWorkDayOrder(t *testing.T) {
	var visited []string
	EachWorkDay(day(2026, time.January, 10), day(2026, time.January, 12), nil, func(d time.Time) {
		visited = append(visited, d.Format("2006-01-02"))
	})
	assert.Equal(t, []string{"2026-01-10", "2026-01-12"}, visited)
}

func TestWorkingDaysInMonth(t *testing.T) {
	// January 2026 has 31 days and Sundays on 4, 11, 18, 25.
	assert.Equal(t, 27, WorkingDaysInMonth(1, 2026))
	// February 2026 has 28 days and Sundays on 1, 8, 15, 22.
	assert.Equal(t, 24, WorkingDaysInMonth(2, 2026))
}

func TestMonthBounds(t *testing.T) {
	first, last := MonthBounds(2, 2024)
	assert.Equal(t, day(2024, time.February, 1), first)
	assert.Equal(t, day(2024, time.February, 29), last)
}
