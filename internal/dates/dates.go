// Package dates holds the civil-date helpers shared by the calendar
// transformer, the renderer and the navigation controller.
//
// A civil date is represented as a time.Time at midnight UTC. Keeping every
// date in UTC avoids daylight-saving surprises when adding days.
package dates

import (
	"strings"
	"time"
)

// ISODate is the layout of the date keys used throughout the calendar.
const ISODate = "2006-01-02"

// timestampLayouts are tried in order once the plain date layout fails.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

var clockLayouts = []string{
	"15:04",
	"15:04:05",
	"15:04:05.999999999",
}

// ParseDate resolves a date or timestamp string to its civil date.
// Timestamps keep the date written in them; no zone conversion happens.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(ISODate, s); err == nil {
		return Civil(t), true
	}
	t, ok := parseTimestamp(s)
	if !ok {
		return time.Time{}, false
	}
	return Civil(t), true
}

// IsTimestamp reports whether s carries a time-of-day part as well as a date.
func IsTimestamp(s string) bool {
	_, ok := parseTimestamp(strings.TrimSpace(s))
	return ok
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseClock normalises a clock value or a timestamp to HH:MM.
func ParseClock(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04"), true
		}
	}
	if t, ok := parseTimestamp(s); ok {
		return t.Format("15:04"), true
	}
	return "", false
}

// ClockMinutes returns the minutes since midnight of an HH:MM value.
func ClockMinutes(hhmm string) (int, bool) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

// FormatISO formats a date as YYYY-MM-DD.
func FormatISO(t time.Time) string {
	return t.Format(ISODate)
}

// Civil truncates t to midnight UTC of the date it shows in its own location.
func Civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthStart returns the first day of t's month.
func MonthStart(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// DaysInMonth returns the number of days of the given month.
func DaysInMonth(year int, month time.Month) int {
	// Day 0 of the next month normalises to the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// WeekStart returns the Sunday starting the week that contains t.
func WeekStart(t time.Time) time.Time {
	c := Civil(t)
	return c.AddDate(0, 0, -int(c.Weekday()))
}

// AddDays shifts a civil date by n days.
func AddDays(t time.Time, n int) time.Time {
	return Civil(t).AddDate(0, 0, n)
}

// AddMonthsClamped shifts t by n months, clamping the day of month to the
// length of the target month (Jan 31 + 1 month is Feb 28 or 29).
func AddMonthsClamped(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	target := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	if last := DaysInMonth(target.Year(), target.Month()); d > last {
		d = last
	}
	return time.Date(target.Year(), target.Month(), d, 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same civil date.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
