// Package models defines data structures and domain types.
package models

import (
	"fmt"
	"time"
)

// DayLayout is the canonical text form of a Day.
const DayLayout = "2006-01-02"

// Day is a calendar date stored as midnight UTC.
type Day struct {
	t time.Time
}

// DayOf returns the calendar day of t in t's own location.
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return Day{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// NewDay builds a Day from its components.
func NewDay(year int, month time.Month, day int) Day {
	return Day{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return Day{}, fmt.Errorf("invalid day %q: %w", s, err)
	}
	return Day{t: t}, nil
}

// Time returns midnight UTC of the day.
func (d Day) Time() time.Time { return d.t }

// AddDays returns the day n days later (or earlier when n < 0).
func (d Day) AddDays(n int) Day { return Day{t: d.t.AddDate(0, 0, n)} }

// Before reports whether d is strictly before other.
func (d Day) Before(other Day) bool { return d.t.Before(other.t) }

// After reports whether d is strictly after other.
func (d Day) After(other Day) bool { return d.t.After(other.t) }

// IsZero reports whether the day is unset.
func (d Day) IsZero() bool { return d.t.IsZero() }

// String formats the day as YYYY-MM-DD.
func (d Day) String() string { return d.t.Format(DayLayout) }

// MarshalText implements encoding.TextMarshaler.
func (d Day) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Day) UnmarshalText(b []byte) error {
	parsed, err := ParseDay(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start Day `json:"start"`
	End   Day `json:"end"`
}

// LastNDays returns the n-day range ending on the day of now.
func LastNDays(now time.Time, n int) DateRange {
	if n < 1 {
		n = 1
	}
	end := DayOf(now)
	return DateRange{Start: end.AddDays(-(n - 1)), End: end}
}

// Days returns the number of days in the range.
func (r DateRange) Days() int {
	if r.End.Before(r.Start) {
		return 0
	}
	return int(r.End.t.Sub(r.Start.t).Hours()/24) + 1
}

// Contains reports whether d falls inside the range.
func (r DateRange) Contains(d Day) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// Each returns every day of the range in ascending order.
func (r DateRange) Each() []Day {
	days := make([]Day, 0, r.Days())
	for d := r.Start; !d.After(r.End); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

// Extend returns a range with the same end that covers at least n days.
func (r DateRange) Extend(n int) DateRange {
	if r.Days() >= n {
		return r
	}
	return DateRange{Start: r.End.AddDays(-(n - 1)), End: r.End}
}

// String formats the range for display.
func (r DateRange) String() string {
	return r.Start.String() + " to " + r.End.String()
}
