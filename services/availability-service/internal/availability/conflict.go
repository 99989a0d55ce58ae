package availability

import (
	"slices"
	"strconv"

	"github.com/glowbook/clinicavail/services/availability-service/internal/model"
	"github.com/glowbook/clinicavail/services/availability-service/internal/timeutil"
)

// Interval is a half-open span of minutes within a day.
type Interval struct {
	Start int
	End   int
}

func (i Interval) Valid() bool {
	return i.Start < i.End
}

// bookingInterval resolves the occupied minutes of a booking. EndTime wins over DurationMinutes.
func bookingInterval(b model.Booking) (Interval, string) {
	start, err := timeutil.ToMinutes(b.StartTime)
	if err != nil {
		return Interval{}, "invalid start_time " + strconv.Quote(b.StartTime)
	}
	end := 0
	switch {
	case b.EndTime != "":
		end, err = timeutil.ToMinutes(b.EndTime)
		if err != nil {
			return Interval{}, "invalid end_time " + strconv.Quote(b.EndTime)
		}
	case b.DurationMinutes > 0:
		end = start + b.DurationMinutes
	default:
		return Interval{}, "missing end_time and duration"
	}
	iv := Interval{Start: start, End: end}
	if !iv.Valid() {
		return Interval{}, "end_time not after start_time"
	}
	return iv, ""
}

// busyIntervals converts one day's bookings into blocking intervals, ordered by start.
// Cancelled bookings are ignored; malformed ones are reported and treated as non-blocking.
func busyIntervals(date string, bookings []model.Booking) ([]Interval, []PartialDataWarning) {
	var busy []Interval
	var warnings []PartialDataWarning
	for _, b := range bookings {
		if !b.Blocks() {
			continue
		}
		iv, reason := bookingInterval(b)
		if reason != "" {
			warnings = append(warnings, PartialDataWarning{Kind: "booking", RecordID: b.ID, Date: date, Reason: reason})
			continue
		}
		busy = append(busy, iv)
	}
	slices.SortFunc(busy, func(a, b Interval) int { return a.Start - b.Start })
	return busy, warnings
}

// Resolver decides slot availability against one day's bookings for a staff member.
type Resolver struct {
	busy []Interval
}

// NewResolver indexes the blocking bookings of date. Skipped bookings come back as warnings.
func NewResolver(date string, bookings []model.Booking) (*Resolver, []PartialDataWarning) {
	busy, warnings := busyIntervals(date, bookings)
	return &Resolver{busy: busy}, warnings
}

// IsAvailable reports whether candidate overlaps none of the blocking bookings.
func (r *Resolver) IsAvailable(candidate Interval) bool {
	for _, b := range r.busy {
		if b.Start >= candidate.End {
			// busy is sorted by start; nothing later can overlap.
			return true
		}
		if timeutil.IntervalsOverlap(candidate.Start, candidate.End, b.Start, b.End) {
			return false
		}
	}
	return true
}
