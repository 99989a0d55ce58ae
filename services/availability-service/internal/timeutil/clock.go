// Package timeutil holds the wall-clock arithmetic used by the availability grid:
// "HH:MM" clock values as minutes of day, ISO dates, and half-open interval checks.
package timeutil

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTimeFormat is returned for clock or date strings that do not match the expected layout.
var ErrInvalidTimeFormat = errors.New("invalid time format")

const (
	DateLayout = "2006-01-02"

	MinutesPerDay = 24 * 60
)

// ToMinutes parses "HH:MM" (00:00..23:59, or 24:00 meaning end of day) into minutes since midnight.
func ToMinutes(clock string) (int, error) {
	if len(clock) != 5 || clock[2] != ':' {
		return 0, fmt.Errorf("%w: %q (want HH:MM)", ErrInvalidTimeFormat, clock)
	}
	h, okH := twoDigits(clock[0], clock[1])
	m, okM := twoDigits(clock[3], clock[4])
	if !okH || !okM || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("%w: %q (want HH:MM)", ErrInvalidTimeFormat, clock)
	}
	return h*60 + m, nil
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}

// FormatMinutes renders minutes since midnight as "HH:MM".
func FormatMinutes(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// AddMinutes shifts a clock value, failing when the result leaves [00:00, 24:00].
func AddMinutes(clock string, delta int) (string, error) {
	m, err := ToMinutes(clock)
	if err != nil {
		return "", err
	}
	out := m + delta
	if out < 0 || out > MinutesPerDay {
		return "", fmt.Errorf("%w: %s%+d leaves the day", ErrInvalidTimeFormat, clock, delta)
	}
	return FormatMinutes(out), nil
}

// IntervalsOverlap reports whether [aStart, aEnd) and [bStart, bEnd) share any minute.
// Back-to-back intervals do not overlap.
func IntervalsOverlap(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

// ParseDate parses an ISO "YYYY-MM-DD" date as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	d, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q (want YYYY-MM-DD)", ErrInvalidTimeFormat, s)
	}
	return d, nil
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// IsToday reports whether date (YYYY-MM-DD) is the calendar date of now in now's location.
func IsToday(date string, now time.Time) bool {
	return date == FormatDate(now)
}

// MinuteOfDay returns now's wall-clock minute, seconds truncated.
func MinuteOfDay(now time.Time) int {
	return now.Hour()*60 + now.Minute()
}

// IsPast reports whether a slot starting at minute on date has already begun relative to now.
// A slot starting exactly at the current minute counts as past.
func IsPast(date string, minute int, now time.Time) bool {
	return IsToday(date, now) && minute <= MinuteOfDay(now)
}

// DaysInclusive counts calendar dates in [start, end]; it returns 0 when end precedes start.
func DaysInclusive(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(s).Hours()/24) + 1
}
