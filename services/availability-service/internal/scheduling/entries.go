package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/glowbook/clinicavail/services/availability-service/internal/availability"
	"github.com/glowbook/clinicavail/services/availability-service/internal/model"
	"github.com/glowbook/clinicavail/services/availability-service/internal/outbox"
	"github.com/glowbook/clinicavail/services/availability-service/internal/storage"
	"github.com/jackc/pgx/v5"
)

var ErrNoEntries = errors.New("at least one availability entry is required")

// EntryValidationError identifies the first invalid entry of a bulk write.
type EntryValidationError struct {
	Index int
	Err   error
}

func (e *EntryValidationError) Error() string {
	return fmt.Sprintf("entries[%d]: %v", e.Index, e.Err)
}

func (e *EntryValidationError) Unwrap() error {
	return e.Err
}

type EntryStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	ListEntries(ctx context.Context, tenantID string, q storage.EntryQuery) ([]model.AvailabilityEntry, error)
	GetEntry(ctx context.Context, tenantID, id string) (model.AvailabilityEntry, error)
	CreateEntries(ctx context.Context, tx pgx.Tx, tenantID string, entries []model.AvailabilityEntry) ([]model.AvailabilityEntry, error)
	DeleteEntry(ctx context.Context, tx pgx.Tx, tenantID, id string) (model.AvailabilityEntry, error)
}

type EventWriter interface {
	Insert(ctx context.Context, tx pgx.Tx, evt outbox.Event) error
}

// EntryAdmin manages availability entries. Every write commits together with its outbox event.
type EntryAdmin struct {
	store        EntryStore
	events       EventWriter
	logger       *slog.Logger
	maxRangeDays int
}

func NewEntryAdmin(store EntryStore, events EventWriter, logger *slog.Logger, maxRangeDays int) *EntryAdmin {
	return &EntryAdmin{store: store, events: events, logger: logger, maxRangeDays: maxRangeDays}
}

type EntryListQuery struct {
	StaffID   string
	OutletID  string
	StartDate string
	EndDate   string
}

func (a *EntryAdmin) List(ctx context.Context, tenantID string, q EntryListQuery) ([]model.AvailabilityEntry, error) {
	if q.StaffID == "" {
		return nil, availability.ErrMissingStaffContext
	}
	span, err := availability.ValidateRange(q.StartDate, q.EndDate, a.maxRangeDays)
	if err != nil {
		return nil, err
	}
	entries, err := a.store.ListEntries(ctx, tenantID, storage.EntryQuery{
		StaffID:  q.StaffID,
		OutletID: q.OutletID,
		From:     span.Start,
		To:       span.End,
	})
	if err != nil {
		return nil, &FetchError{Source: "availability entries", Err: err}
	}
	return entries, nil
}

func (a *EntryAdmin) Get(ctx context.Context, tenantID, id string) (model.AvailabilityEntry, error) {
	return a.store.GetEntry(ctx, tenantID, id)
}

// Create validates and stores up to storage.MaxBulkEntries entries atomically. One event is
// emitted per staff member touched.
func (a *EntryAdmin) Create(ctx context.Context, tenantID string, entries []model.AvailabilityEntry) ([]model.AvailabilityEntry, error) {
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}
	if len(entries) > storage.MaxBulkEntries {
		return nil, storage.ErrTooManyEntries
	}
	for i, e := range entries {
		if err := availability.ValidateEntry(e); err != nil {
			return nil, &EntryValidationError{Index: i, Err: err}
		}
	}

	tx, err := a.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	created, err := a.store.CreateEntries(ctx, tx, tenantID, entries)
	if err != nil {
		return nil, err
	}

	var staffOrder []string
	byStaff := make(map[string][]model.AvailabilityEntry)
	for _, e := range created {
		if _, ok := byStaff[e.StaffID]; !ok {
			staffOrder = append(staffOrder, e.StaffID)
		}
		byStaff[e.StaffID] = append(byStaff[e.StaffID], e)
	}
	for _, staffID := range staffOrder {
		evt, err := outbox.EntriesCreated(tenantID, staffID, byStaff[staffID])
		if err != nil {
			return nil, err
		}
		if err := a.events.Insert(ctx, tx, evt); err != nil {
			return nil, fmt.Errorf("write outbox event: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	a.logger.Info("availability entries created", "tenant_id", tenantID, "count", len(created), "staff_count", len(staffOrder))
	return created, nil
}

// Delete removes one entry. storage.IsNotFound reports a missing id.
func (a *EntryAdmin) Delete(ctx context.Context, tenantID, id string) (model.AvailabilityEntry, error) {
	tx, err := a.store.Begin(ctx)
	if err != nil {
		return model.AvailabilityEntry{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	deleted, err := a.store.DeleteEntry(ctx, tx, tenantID, id)
	if err != nil {
		return model.AvailabilityEntry{}, err
	}
	evt, err := outbox.EntryDeleted(tenantID, deleted)
	if err != nil {
		return model.AvailabilityEntry{}, err
	}
	if err := a.events.Insert(ctx, tx, evt); err != nil {
		return model.AvailabilityEntry{}, fmt.Errorf("write outbox event: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return model.AvailabilityEntry{}, err
	}
	a.logger.Info("availability entry deleted", "tenant_id", tenantID, "entry_id", id, "staff_id", deleted.StaffID)
	return deleted, nil
}
