// Package scheduling wires the grid builder to its data sources for one tenant request.
package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/glowbook/clinicavail/services/availability-service/internal/availability"
	"github.com/glowbook/clinicavail/services/availability-service/internal/model"
	"github.com/glowbook/clinicavail/services/availability-service/internal/policy"
	"github.com/glowbook/clinicavail/services/availability-service/internal/slotview"
	"github.com/glowbook/clinicavail/services/availability-service/internal/storage"
	"github.com/glowbook/clinicavail/services/availability-service/internal/timeutil"
	"github.com/glowbook/clinicavail/services/availability-service/internal/upstream"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const DefaultSlotIntervalMinutes = 30

// ErrUnknownReference is returned when the requested service or outlet does not exist upstream.
var ErrUnknownReference = errors.New("unknown catalog reference")

var tracer = otel.Tracer("github.com/glowbook/clinicavail/services/availability-service/internal/scheduling")

type EntrySource interface {
	ListEntries(ctx context.Context, tenantID string, q storage.EntryQuery) ([]model.AvailabilityEntry, error)
}

type BookingSource interface {
	ListBookings(ctx context.Context, tenantID, staffID string, from, to time.Time) ([]model.Booking, error)
}

type Catalog interface {
	GetService(ctx context.Context, tenantID, id string) (model.Service, error)
	GetOutlet(ctx context.Context, tenantID, id string) (model.Outlet, error)
	GetStaff(ctx context.Context, tenantID, id string) (model.StaffSummary, error)
}

type Locations interface {
	Load(name string) (*time.Location, error)
}

// FetchError reports a collaborator that could not be read. The request itself was valid and
// may be retried.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// catalogError separates a caller naming a record that does not exist from a lookup that failed.
func catalogError(kind, id string, err error) error {
	if upstream.IsNotFound(err) {
		return fmt.Errorf("%w: %s %q", ErrUnknownReference, kind, id)
	}
	return &FetchError{Source: kind, Err: err}
}

type Config struct {
	MaxRangeDays    int
	DefaultTimezone string
}

type Service struct {
	logger    *slog.Logger
	entries   EntrySource
	bookings  BookingSource
	catalog   Catalog
	policies  policy.Provider
	locations Locations
	builder   *availability.Builder
	cfg       Config
	now       func() time.Time
}

func NewService(logger *slog.Logger, entries EntrySource, bookings BookingSource, catalog Catalog, policies policy.Provider, locations Locations, cfg Config) *Service {
	if cfg.MaxRangeDays <= 0 {
		cfg.MaxRangeDays = availability.DefaultMaxRangeDays
	}
	return &Service{
		logger:    logger,
		entries:   entries,
		bookings:  bookings,
		catalog:   catalog,
		policies:  policies,
		locations: locations,
		builder:   availability.NewBuilder(logger),
		cfg:       cfg,
		now:       time.Now,
	}
}

type GridQuery struct {
	TenantID            string
	StaffID             string
	OutletID            string
	ServiceID           string
	StartDate           string
	EndDate             string
	SlotIntervalMinutes int // 0 uses the tenant default
}

// Grid validates q, reads entries, bookings and catalog data concurrently, and builds the grid.
// Invalid requests fail before any collaborator is called.
func (s *Service) Grid(ctx context.Context, q GridQuery) (availability.Result, error) {
	ctx, span := tracer.Start(ctx, "scheduling.Grid", trace.WithAttributes(
		attribute.String("tenant.id", q.TenantID),
		attribute.String("staff.id", q.StaffID),
		attribute.String("range.start", q.StartDate),
		attribute.String("range.end", q.EndDate),
	))
	defer span.End()

	res, err := s.grid(ctx, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}
	span.SetAttributes(
		attribute.Int("grid.available_slots", res.Grid.Metadata.TotalAvailableSlots),
		attribute.Int("grid.skipped_records", len(res.Warnings)),
	)
	return res, nil
}

func (s *Service) grid(ctx context.Context, q GridQuery) (availability.Result, error) {
	if q.StaffID == "" {
		return availability.Result{}, availability.ErrMissingStaffContext
	}
	if q.SlotIntervalMinutes < 0 || q.SlotIntervalMinutes > timeutil.MinutesPerDay {
		return availability.Result{}, availability.ErrInvalidInterval
	}
	span, err := availability.ValidateRange(q.StartDate, q.EndDate, s.cfg.MaxRangeDays)
	if err != nil {
		return availability.Result{}, err
	}

	pol, err := s.policies.Policy(ctx, q.TenantID)
	if err != nil {
		return availability.Result{}, &FetchError{Source: "policy", Err: err}
	}
	interval := q.SlotIntervalMinutes
	if interval == 0 {
		interval = pol.SlotIntervalMinutes
	}
	if interval <= 0 {
		interval = DefaultSlotIntervalMinutes
	}

	var (
		service  = model.Service{ID: q.ServiceID}
		outlet   = model.Outlet{ID: q.OutletID}
		entries  []model.AvailabilityEntry
		bookings []model.Booking
	)
	g, gctx := errgroup.WithContext(ctx)
	if q.ServiceID != "" {
		g.Go(func() error {
			v, err := s.catalog.GetService(gctx, q.TenantID, q.ServiceID)
			if err != nil {
				return catalogError("service", q.ServiceID, err)
			}
			service = v
			return nil
		})
	}
	if q.OutletID != "" {
		g.Go(func() error {
			v, err := s.catalog.GetOutlet(gctx, q.TenantID, q.OutletID)
			if err != nil {
				return catalogError("outlet", q.OutletID, err)
			}
			outlet = v
			return nil
		})
	}
	g.Go(func() error {
		v, err := s.entries.ListEntries(gctx, q.TenantID, storage.EntryQuery{
			StaffID:  q.StaffID,
			OutletID: q.OutletID,
			From:     span.Start,
			To:       span.End,
		})
		if err != nil {
			return &FetchError{Source: "availability entries", Err: err}
		}
		entries = v
		return nil
	})
	g.Go(func() error {
		v, err := s.bookings.ListBookings(gctx, q.TenantID, q.StaffID, span.Start, span.End)
		if err != nil {
			return &FetchError{Source: "bookings", Err: err}
		}
		bookings = v
		return nil
	})
	if err := g.Wait(); err != nil {
		return availability.Result{}, err
	}

	return s.builder.Build(availability.Request{
		StaffID:             q.StaffID,
		OutletID:            q.OutletID,
		Service:             service,
		Outlet:              outlet,
		StartDate:           q.StartDate,
		EndDate:             q.EndDate,
		SlotIntervalMinutes: interval,
		MaxRangeDays:        s.cfg.MaxRangeDays,
		Now:                 s.now(),
		Location:            s.location(q.TenantID, outlet.Timezone, pol.Timezone),
	}, entries, bookings)
}

// location picks the outlet zone, then the tenant zone, then the service default. An unknown
// zone name falls through to the next candidate.
func (s *Service) location(tenantID string, names ...string) *time.Location {
	for _, name := range append(names, s.cfg.DefaultTimezone) {
		if name == "" {
			continue
		}
		loc, err := s.locations.Load(name)
		if err == nil {
			return loc
		}
		s.logger.Warn("unknown timezone", "tenant_id", tenantID, "timezone", name, "err", err)
	}
	return time.UTC
}

// Slots renders one date of the grid for the booking picker. The past-time filter is applied
// again against the clock at render time.
func (s *Service) Slots(ctx context.Context, q GridQuery, date string) (slotview.View, error) {
	q.StartDate, q.EndDate = date, date
	res, err := s.Grid(ctx, q)
	if err != nil {
		return slotview.View{}, err
	}

	staff := model.StaffSummary{ID: q.StaffID}
	if v, err := s.catalog.GetStaff(ctx, q.TenantID, q.StaffID); err == nil {
		staff = v
	} else {
		s.logger.Warn("staff summary unavailable", "tenant_id", q.TenantID, "staff_id", q.StaffID, "err", err)
	}

	loc := time.UTC
	if l, err := s.locations.Load(res.Grid.Metadata.Timezone); err == nil {
		loc = l
	}
	return slotview.Render(res.Grid, date, staff, s.now().In(loc)), nil
}
