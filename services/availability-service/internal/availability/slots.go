package availability

import (
	"time"

	"github.com/glowbook/clinicavail/services/availability-service/internal/model"
	"github.com/glowbook/clinicavail/services/availability-service/internal/timeutil"
)

// windowSlots walks window in steps of interval and emits one slot per step whose end fits
// the window. A slot is available when its occupancy span [start, start+occupancy) fits the
// window, is free according to conflicts and has not started yet relative to now.
func windowSlots(date string, window Interval, interval, occupancy int, conflicts *Resolver, now time.Time) []model.AvailabilitySlot {
	if interval <= 0 || !window.Valid() {
		return nil
	}
	if occupancy < interval {
		occupancy = interval
	}

	var slots []model.AvailabilitySlot
	for start := window.Start; start+interval <= window.End; start += interval {
		span := Interval{Start: start, End: start + occupancy}
		available := span.End <= window.End &&
			conflicts.IsAvailable(span) &&
			!timeutil.IsPast(date, start, now)
		slots = append(slots, model.AvailabilitySlot{
			StartTime:   timeutil.FormatMinutes(start),
			EndTime:     timeutil.FormatMinutes(start + interval),
			IsAvailable: available,
		})
	}
	return slots
}
