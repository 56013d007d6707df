package utils

import (
	"fmt"
	"time"
)

const DateOnlyFormat = "2006-01-02"

// FirstOfMonth returns midnight UTC on the first day of t's month.
func FirstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// FormatPeriod renders a time as the MM-YYYY period identifier used by the
// snapshot table.
func FormatPeriod(t time.Time) string {
	return fmt.Sprintf("%02d-%d", int(t.Month()), t.Year())
}

// PreviousPeriod derives the calendar month that just closed relative to now.
// It uses explicit calendar arithmetic (first of the current month minus one
// day) rather than a fixed 30-day offset, so it is correct for 28-31 day
// months and across year boundaries.
func PreviousPeriod(now time.Time) (period string, year int, month int) {
	lastOfPrevious := FirstOfMonth(now).AddDate(0, 0, -1)
	return FormatPeriod(lastOfPrevious), lastOfPrevious.Year(), int(lastOfPrevious.Month())
}
