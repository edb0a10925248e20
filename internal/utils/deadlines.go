package utils

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// I9Section2BusinessDays is how many business days after the first day of
// work the employer has to complete section 2.
const I9Section2BusinessDays = 3

// ParseDate parses a YYYY-MM-DD string into a UTC midnight time.
func ParseDate(dateStr string) (time.Time, error) {
	t, err := time.Parse(dateLayout, dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format, expected YYYY-MM-DD: %w", err)
	}
	return t, nil
}

// FormatDate renders the date portion of t.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// DateOnly truncates t to midnight in its own location.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// AddBusinessDays moves n days forward, stepping one day at a time and not
// counting Saturdays or Sundays. Holidays are not considered.
func AddBusinessDays(from time.Time, n int) time.Time {
	t := from
	for added := 0; added < n; {
		t = t.AddDate(0, 0, 1)
		if !isWeekend(t) {
			added++
		}
	}
	return t
}

// AddCalendarDays moves n calendar days forward, weekends included.
func AddCalendarDays(from time.Time, n int) time.Time {
	return from.AddDate(0, 0, n)
}

// DaysBetween counts whole calendar days from a to b, ignoring time of day.
// It is negative when b is before a.
func DaysBetween(a, b time.Time) int {
	// compare calendar dates in UTC so a DST change cannot shorten a day
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, a.Location())
	return int(b.Sub(a).Hours() / 24)
}

// DaysLate returns how many calendar days completedAt falls after deadline,
// or 0 when it is on time.
func DaysLate(deadline, completedAt time.Time) int {
	if n := DaysBetween(deadline, completedAt); n > 0 {
		return n
	}
	return 0
}

// I9Deadlines returns the section 1 deadline (the first day of work) and the
// section 2 deadline (three business days later).
func I9Deadlines(startDate time.Time) (section1, section2 time.Time) {
	start := DateOnly(startDate)
	return start, AddBusinessDays(start, I9Section2BusinessDays)
}

// WaitingPeriodEnd returns when an FCRA waiting period started at sentAt ends.
func WaitingPeriodEnd(sentAt time.Time, days int) time.Time {
	return AddCalendarDays(sentAt, days)
}
