// Package calendar implements the work-day counting policy shared by the
// leave workflow and the payroll engine: Sundays and gazetted holidays are
// excluded, Saturdays count (six-day week).
package calendar

import "time"

// HolidaySet is a date-keyed lookup of gazetted holidays. Keys are the
// ISO date (2006-01-02) of the holiday.
type HolidaySet map[string]struct{}

// NewHolidaySet builds a set from holiday dates.
func NewHolidaySet(dates []time.Time) HolidaySet {
	set := make(HolidaySet, len(dates))
	for _, d := range dates {
		set[d.Format("2006-01-02")] = struct{}{}
	}
	return set
}

// Contains reports whether the given day is a holiday.
func (s HolidaySet) Contains(day time.Time) bool {
	_, ok := s[day.Format("2006-01-02")]
	return ok
}

// IsWorkDay reports whether the day counts toward leave and payroll quotas.
func IsWorkDay(day time.Time, holidays HolidaySet) bool {
	if day.Weekday() == time.Sunday {
		return false
	}
	return !holidays.Contains(day)
}

// WorkDays counts work days in the inclusive range [start, end].
func WorkDays(start, end time.Time, holidays HolidaySet) int {
	days := 0
	for d := truncate(start); !d.After(truncate(end)); d = d.AddDate(0, 0, 1) {
		if IsWorkDay(d, holidays) {
			days++
		}
	}
	return days
}

// EachWorkDay visits every work day in the inclusive range in order.
func EachWorkDay(start, end time.Time, holidays HolidaySet, fn func(time.Time)) {
	for d := truncate(start); !d.After(truncate(end)); d = d.AddDate(0, 0, 1) {
		if IsWorkDay(d, holidays) {
			fn(d)
		}
	}
}

// MonthBounds returns the first and last day of the given month.
func MonthBounds(month, year int) (time.Time, time.Time) {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first, last
}

// WorkingDaysInMonth counts non-Sundays in the month. Holidays are not
// excluded here: the payroll divisor deliberately matches the original
// policy of counting every non-Sunday.
func WorkingDaysInMonth(month, year int) int {
	first, last := MonthBounds(month, year)
	days := 0
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		if d.Weekday() != time.Sunday {
			days++
		}
	}
	return days
}

func truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
