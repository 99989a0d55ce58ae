package availability

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/glowbook/clinicavail/services/availability-service/internal/model"
	"github.com/glowbook/clinicavail/services/availability-service/internal/timeutil"
)

// rule is a validated availability entry with its dates and clock values parsed.
type rule struct {
	id        string
	anchor    time.Time // UTC midnight
	until     time.Time // UTC midnight, zero when open-ended
	window    Interval
	blocked   bool
	recurring model.RecurrenceType
}

// parseRule validates an entry. Dates are handled as UTC midnights so day arithmetic is DST-free.
func parseRule(e model.AvailabilityEntry) (rule, error) {
	anchor, err := timeutil.ParseDate(e.Date, time.UTC)
	if err != nil {
		return rule{}, fmt.Errorf("date: %w", err)
	}
	start, err := timeutil.ToMinutes(e.StartTime)
	if err != nil {
		return rule{}, fmt.Errorf("start_time: %w", err)
	}
	end, err := timeutil.ToMinutes(e.EndTime)
	if err != nil {
		return rule{}, fmt.Errorf("end_time: %w", err)
	}
	if start >= end {
		return rule{}, fmt.Errorf("start_time %s is not before end_time %s", e.StartTime, e.EndTime)
	}

	r := rule{id: e.ID, anchor: anchor, window: Interval{Start: start, End: end}}
	switch e.Type {
	case model.AvailabilityAvailable:
	case model.AvailabilityBlocked:
		r.blocked = true
	default:
		return rule{}, fmt.Errorf("unknown availability type %q", e.Type)
	}

	switch e.RecurrenceType {
	case "", model.RecurrenceNone:
		r.recurring = model.RecurrenceNone
	case model.RecurrenceDaily, model.RecurrenceWeekly:
		r.recurring = e.RecurrenceType
		if e.RecurrenceEndDate != "" {
			until, err := timeutil.ParseDate(e.RecurrenceEndDate, time.UTC)
			if err != nil {
				return rule{}, fmt.Errorf("recurrence_end_date: %w", err)
			}
			if until.Before(anchor) {
				return rule{}, fmt.Errorf("recurrence_end_date %s precedes date %s", e.RecurrenceEndDate, e.Date)
			}
			r.until = until
		}
	default:
		return rule{}, fmt.Errorf("unknown recurrence type %q", e.RecurrenceType)
	}
	return r, nil
}

// ValidateEntry checks an entry the same way the grid builder does before expanding it.
func ValidateEntry(e model.AvailabilityEntry) error {
	if e.StaffID == "" {
		return errors.New("staff_id is required")
	}
	_, err := parseRule(e)
	return err
}

// occurrences lazily yields the dates in [from, to] on which r applies. Only the requested
// range is walked, never the full recurrence lifetime.
func (r rule) occurrences(from, to time.Time) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		last := to
		if !r.until.IsZero() && r.until.Before(last) {
			last = r.until
		}
		if r.recurring == model.RecurrenceNone {
			if !r.anchor.Before(from) && !r.anchor.After(to) {
				yield(r.anchor)
			}
			return
		}

		first := r.anchor
		if first.Before(from) {
			first = from
		}
		step := 1
		if r.recurring == model.RecurrenceWeekly {
			step = 7
			shift := (int(r.anchor.Weekday()) - int(first.Weekday()) + 7) % 7
			first = first.AddDate(0, 0, shift)
		}
		for d := first; !d.After(last); d = d.AddDate(0, 0, step) {
			if !yield(d) {
				return
			}
		}
	}
}

// dayLayers collects the rules that apply to one date, split by precedence layer.
type dayLayers struct {
	explicit  []rule
	recurring []rule
}

// effective applies the precedence rule: any explicit (non-recurring) entry for the date
// replaces every recurring entry for that date.
func (d dayLayers) effective() []rule {
	if len(d.explicit) > 0 {
		return d.explicit
	}
	return d.recurring
}

// windows returns the open windows of the day: the union of available windows minus the
// union of blocked windows, ordered and non-overlapping.
func windows(rules []rule) []Interval {
	var open, blocks []Interval
	for _, r := range rules {
		if r.blocked {
			blocks = append(blocks, r.window)
		} else {
			open = append(open, r.window)
		}
	}
	open = mergeIntervals(open)
	if len(open) == 0 {
		return nil
	}
	blocks = mergeIntervals(blocks)

	var out []Interval
	for _, base := range open {
		out = append(out, subtractBlocks(base, blocks)...)
	}
	return out
}

func mergeIntervals(in []Interval) []Interval {
	if len(in) == 0 {
		return nil
	}
	sorted := slices.Clone(in)
	slices.SortFunc(sorted, func(a, b Interval) int {
		if a.Start != b.Start {
			return a.Start - b.Start
		}
		return a.End - b.End
	})
	merged := make([]Interval, 0, len(sorted))
	for _, cur := range sorted {
		if len(merged) == 0 || cur.Start > merged[len(merged)-1].End {
			merged = append(merged, cur)
			continue
		}
		last := &merged[len(merged)-1]
		if cur.End > last.End {
			last.End = cur.End
		}
	}
	return merged
}

// subtractBlocks removes merged, sorted blocks from base.
func subtractBlocks(base Interval, blocks []Interval) []Interval {
	var out []Interval
	cursor := base.Start
	for _, b := range blocks {
		if b.End <= cursor || b.Start >= base.End {
			continue
		}
		if b.Start > cursor {
			out = append(out, Interval{Start: cursor, End: b.Start})
		}
		if b.End > cursor {
			cursor = b.End
		}
	}
	if base.End > cursor {
		out = append(out, Interval{Start: cursor, End: base.End})
	}
	return out
}
