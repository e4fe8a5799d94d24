// Package period provides canonical period-key arithmetic for recurring
// obligations. All dates are calendar dates in a single reference timezone;
// they are normalized to midnight UTC so two values naming the same calendar
// day always compare equal.
package period

import (
	"strings"
	"time"
)

// Period represents the recurrence cadence of an obligation.
type Period int

const (
	// Unspecified represents an invalid cadence value.
	Unspecified Period = iota
	// Daily recurs every calendar day.
	Daily
	// Weekly recurs every ISO week (Monday through Sunday).
	Weekly
	// Monthly recurs every calendar month.
	Monthly
)

// Label returns the string label for a period.
func (p Period) Label() string {
	switch p {
	case Daily:
		return "daily"
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	default:
		return "unspecified"
	}
}

// FromLabel converts a cadence label to a Period value.
func FromLabel(label string) Period {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "daily":
		return Daily
	case "weekly":
		return Weekly
	case "monthly":
		return Monthly
	default:
		return Unspecified
	}
}

// DateOf truncates a time to its calendar date at midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// KeyFor maps a calendar date to the canonical key of the period containing
// it: the date itself (daily), the Monday of the ISO week (weekly), or the
// first day of the month (monthly). Stable under re-application.
func KeyFor(date time.Time, p Period) time.Time {
	date = DateOf(date)
	switch p {
	case Weekly:
		offset := (int(date.Weekday()) + 6) % 7
		return date.AddDate(0, 0, -offset)
	case Monthly:
		y, m, _ := date.Date()
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	default:
		return date
	}
}

// Expand returns the ordered calendar dates covered by a period key: one
// date (daily), seven dates from the key (weekly), or every date of the
// key's month (monthly). Intended for calendar rendering, not completion
// matching.
func Expand(key time.Time, p Period) []time.Time {
	key = KeyFor(key, p)
	switch p {
	case Weekly:
		days := make([]time.Time, 7)
		for i := range days {
			days[i] = key.AddDate(0, 0, i)
		}
		return days
	case Monthly:
		end := key.AddDate(0, 1, 0)
		var days []time.Time
		for d := key; d.Before(end); d = d.AddDate(0, 0, 1) {
			days = append(days, d)
		}
		return days
	default:
		return []time.Time{key}
	}
}

// NextDue returns the next occurrence after from: +1 day, +7 days, or +1
// calendar month. Month arithmetic preserves the day-of-month where valid
// and clamps to the last day of shorter months.
func NextDue(from time.Time, p Period) time.Time {
	from = DateOf(from)
	switch p {
	case Weekly:
		return from.AddDate(0, 0, 7)
	case Monthly:
		return addMonthsClamped(from, 1)
	default:
		return from.AddDate(0, 0, 1)
	}
}

// PrevKey returns the key of the period immediately before key.
// Key must already be canonical.
func PrevKey(key time.Time, p Period) time.Time {
	switch p {
	case Weekly:
		return key.AddDate(0, 0, -7)
	case Monthly:
		return key.AddDate(0, -1, 0)
	default:
		return key.AddDate(0, 0, -1)
	}
}

// NextKey returns the key of the period immediately after key.
// Key must already be canonical.
func NextKey(key time.Time, p Period) time.Time {
	switch p {
	case Weekly:
		return key.AddDate(0, 0, 7)
	case Monthly:
		return key.AddDate(0, 1, 0)
	default:
		return key.AddDate(0, 0, 1)
	}
}

// Window is the active date range of an obligation. End is nil for
// open-ended obligations.
type Window struct {
	Start time.Time
	End   *time.Time
}

// Contains reports whether date falls inside the window, inclusive on both
// ends.
func (w Window) Contains(date time.Time) bool {
	date = DateOf(date)
	if date.Before(DateOf(w.Start)) {
		return false
	}
	if w.End != nil && date.After(DateOf(*w.End)) {
		return false
	}
	return true
}

// IsDueOn reports whether an obligation anchored at the window's start date
// is due on the given date. Daily obligations are due every in-window day.
// Weekly obligations are due on the anchor weekday; monthly obligations on
// the anchor day-of-month, falling back to the last day of shorter months.
func IsDueOn(w Window, p Period, date time.Time) bool {
	date = DateOf(date)
	if !w.Contains(date) {
		return false
	}
	anchor := DateOf(w.Start)
	switch p {
	case Weekly:
		return date.Weekday() == anchor.Weekday()
	case Monthly:
		due := anchor.Day()
		if last := lastDayOfMonth(date); due > last {
			due = last
		}
		return date.Day() == due
	default:
		return true
	}
}

func lastDayOfMonth(date time.Time) int {
	y, m, _ := date.Date()
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func addMonthsClamped(date time.Time, months int) time.Time {
	y, m, d := date.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	if last := lastDayOfMonth(first); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}
