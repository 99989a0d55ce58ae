package availability

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/glowbook/clinicavail/services/availability-service/internal/model"
	"github.com/glowbook/clinicavail/services/availability-service/internal/timeutil"
)

// Request describes one grid computation. Now is passed explicitly so results are
// reproducible; it is interpreted in Location (the tenant's timezone).
type Request struct {
	StaffID             string
	OutletID            string
	Service             model.Service
	Outlet              model.Outlet
	StartDate           string
	EndDate             string
	SlotIntervalMinutes int
	MaxRangeDays        int
	Now                 time.Time
	Location            *time.Location
}

// Span is a validated request date range.
type Span struct {
	Start time.Time // UTC midnight
	End   time.Time // UTC midnight
	Days  int
}

// Validate checks the request without touching any data source, so oversized or malformed
// ranges are rejected before collaborators are queried.
func (r Request) Validate() (Span, error) {
	if r.StaffID == "" {
		return Span{}, ErrMissingStaffContext
	}
	if r.SlotIntervalMinutes <= 0 || r.SlotIntervalMinutes > timeutil.MinutesPerDay {
		return Span{}, ErrInvalidInterval
	}
	return ValidateRange(r.StartDate, r.EndDate, r.MaxRangeDays)
}

// ValidateRange parses an inclusive date range and enforces the day bound. maxDays <= 0 means
// DefaultMaxRangeDays.
func ValidateRange(startDate, endDate string, maxDays int) (Span, error) {
	start, err := timeutil.ParseDate(startDate, time.UTC)
	if err != nil {
		return Span{}, fmt.Errorf("start_date: %w", err)
	}
	end, err := timeutil.ParseDate(endDate, time.UTC)
	if err != nil {
		return Span{}, fmt.Errorf("end_date: %w", err)
	}
	if end.Before(start) {
		return Span{}, ErrInvalidRange
	}
	if maxDays <= 0 {
		maxDays = DefaultMaxRangeDays
	}
	days := timeutil.DaysInclusive(start, end)
	if days > maxDays {
		return Span{}, fmt.Errorf("%w: %d days requested, at most %d allowed", ErrRangeTooLarge, days, maxDays)
	}
	return Span{Start: start, End: end, Days: days}, nil
}

// Result is a computed grid plus the records skipped while building it.
type Result struct {
	Grid     model.AvailabilityGrid
	Warnings []PartialDataWarning
}

// Builder computes availability grids. It keeps no state between calls.
type Builder struct {
	logger *slog.Logger
}

func NewBuilder(logger *slog.Logger) *Builder {
	return &Builder{logger: logger}
}

// Build produces the grid for req from the staff member's entries and bookings.
func (b *Builder) Build(req Request, entries []model.AvailabilityEntry, bookings []model.Booking) (Result, error) {
	span, err := req.Validate()
	if err != nil {
		return Result{}, err
	}
	loc := req.Location
	if loc == nil {
		loc = time.UTC
	}
	now := req.Now.In(loc)

	var warnings []PartialDataWarning
	layers := b.expandEntries(req, span, entries, &warnings)
	bookingsByDate := groupBookings(req.StaffID, span, bookings, &warnings)

	grid := model.AvailabilityGrid{
		StartDate:           timeutil.FormatDate(span.Start),
		EndDate:             timeutil.FormatDate(span.End),
		NumDays:             span.Days,
		SlotIntervalMinutes: req.SlotIntervalMinutes,
		Days:                make(map[string][]model.AvailabilitySlot, span.Days),
		Metadata: model.GridMetadata{
			ServiceID:              req.Service.ID,
			ServiceName:            req.Service.Name,
			OutletID:               req.OutletID,
			OutletName:             req.Outlet.Name,
			StaffID:                req.StaffID,
			ServiceDurationMinutes: req.Service.DurationMinutes,
			Timezone:               loc.String(),
		},
	}

	for d := span.Start; !d.After(span.End); d = d.AddDate(0, 0, 1) {
		date := timeutil.FormatDate(d)
		day := []model.AvailabilitySlot{}

		if l, ok := layers[date]; ok {
			conflicts, bw := NewResolver(date, bookingsByDate[date])
			warnings = append(warnings, bw...)
			for _, w := range windows(l.effective()) {
				day = append(day, windowSlots(date, w, req.SlotIntervalMinutes, req.Service.DurationMinutes, conflicts, now)...)
			}
		}

		for _, s := range day {
			if s.IsAvailable {
				grid.Metadata.TotalAvailableSlots++
			}
		}
		grid.Days[date] = day
	}

	for _, w := range warnings {
		b.logger.Warn("skipping malformed record",
			"kind", w.Kind,
			"record_id", w.RecordID,
			"staff_id", req.StaffID,
			"date", w.Date,
			"reason", w.Reason,
		)
	}
	grid.Metadata.SkippedRecords = len(warnings)
	return Result{Grid: grid, Warnings: warnings}, nil
}

func (b *Builder) expandEntries(req Request, span Span, entries []model.AvailabilityEntry, warnings *[]PartialDataWarning) map[string]*dayLayers {
	layers := make(map[string]*dayLayers)
	for _, e := range entries {
		if e.StaffID != "" && e.StaffID != req.StaffID {
			continue
		}
		if req.OutletID != "" && e.OutletID != "" && e.OutletID != req.OutletID {
			continue
		}
		r, err := parseRule(e)
		if err != nil {
			*warnings = append(*warnings, PartialDataWarning{Kind: "entry", RecordID: e.ID, Date: e.Date, Reason: err.Error()})
			continue
		}
		for d := range r.occurrences(span.Start, span.End) {
			date := timeutil.FormatDate(d)
			l := layers[date]
			if l == nil {
				l = &dayLayers{}
				layers[date] = l
			}
			if r.recurring == model.RecurrenceNone {
				l.explicit = append(l.explicit, r)
			} else {
				l.recurring = append(l.recurring, r)
			}
		}
	}
	return layers
}

func groupBookings(staffID string, span Span, bookings []model.Booking, warnings *[]PartialDataWarning) map[string][]model.Booking {
	out := make(map[string][]model.Booking)
	for _, bk := range bookings {
		if bk.StaffID != "" && bk.StaffID != staffID {
			continue
		}
		d, err := timeutil.ParseDate(bk.Date, time.UTC)
		if err != nil {
			if bk.Blocks() {
				*warnings = append(*warnings, PartialDataWarning{Kind: "booking", RecordID: bk.ID, Reason: fmt.Sprintf("invalid date %q", bk.Date)})
			}
			continue
		}
		if d.Before(span.Start) || d.After(span.End) {
			continue
		}
		key := timeutil.FormatDate(d)
		out[key] = append(out[key], bk)
	}
	return out
}
