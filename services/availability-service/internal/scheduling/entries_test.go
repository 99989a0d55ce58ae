package scheduling

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/glowbook/clinicavail/services/availability-service/internal/availability"
	"github.com/glowbook/clinicavail/services/availability-service/internal/model"
	"github.com/glowbook/clinicavail/services/availability-service/internal/outbox"
	"github.com/glowbook/clinicavail/services/availability-service/internal/storage"
	"github.com/jackc/pgx/v5"
)

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (tx *fakeTx) Commit(context.Context) error {
	tx.committed = true
	return nil
}

func (tx *fakeTx) Rollback(context.Context) error {
	if !tx.committed {
		tx.rolledBack = true
	}
	return nil
}

type fakeStore struct {
	tx        *fakeTx
	created   []model.AvailabilityEntry
	deleteErr error
}

func (s *fakeStore) Begin(context.Context) (pgx.Tx, error) {
	s.tx = &fakeTx{}
	return s.tx, nil
}

func (s *fakeStore) ListEntries(context.Context, string, storage.EntryQuery) ([]model.AvailabilityEntry, error) {
	return s.created, nil
}

func (s *fakeStore) GetEntry(_ context.Context, _, id string) (model.AvailabilityEntry, error) {
	for _, e := range s.created {
		if e.ID == id {
			return e, nil
		}
	}
	return model.AvailabilityEntry{}, pgx.ErrNoRows
}

func (s *fakeStore) CreateEntries(_ context.Context, _ pgx.Tx, tenantID string, entries []model.AvailabilityEntry) ([]model.AvailabilityEntry, error) {
	for i, e := range entries {
		e.ID = "id-" + string(rune('a'+i))
		e.TenantID = tenantID
		s.created = append(s.created, e)
	}
	return s.created, nil
}

func (s *fakeStore) DeleteEntry(_ context.Context, _ pgx.Tx, _, id string) (model.AvailabilityEntry, error) {
	if s.deleteErr != nil {
		return model.AvailabilityEntry{}, s.deleteErr
	}
	return model.AvailabilityEntry{ID: id, StaffID: "staff-1"}, nil
}

type fakeEvents struct {
	events []outbox.Event
	err    error
}

func (f *fakeEvents) Insert(_ context.Context, _ pgx.Tx, evt outbox.Event) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, evt)
	return nil
}

func newAdmin() (*EntryAdmin, *fakeStore, *fakeEvents) {
	store := &fakeStore{}
	events := &fakeEvents{}
	return NewEntryAdmin(store, events, slog.New(slog.NewTextHandler(io.Discard, nil)), 90), store, events
}

func entry(staffID string) model.AvailabilityEntry {
	return model.AvailabilityEntry{StaffID: staffID, Date: "2026-03-11", StartTime: "09:00", EndTime: "12:00", Type: model.AvailabilityAvailable}
}

func TestEntryAdminCreate_CommitsWithOneEventPerStaff(t *testing.T) {
	admin, store, events := newAdmin()
	created, err := admin.Create(context.Background(), "t1", []model.AvailabilityEntry{entry("s1"), entry("s2"), entry("s1")})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(created) != 3 || !store.tx.committed {
		t.Fatalf("expected 3 committed entries, got %d (committed=%v)", len(created), store.tx.committed)
	}
	if len(events.events) != 2 || events.events[0].AggregateID != "s1" || events.events[1].AggregateID != "s2" {
		t.Fatalf("unexpected events: %+v", events.events)
	}
}

func TestEntryAdminCreate_Bounds(t *testing.T) {
	admin, store, _ := newAdmin()
	if _, err := admin.Create(context.Background(), "t1", nil); !errors.Is(err, ErrNoEntries) {
		t.Fatalf("expected ErrNoEntries, got %v", err)
	}
	many := make([]model.AvailabilityEntry, storage.MaxBulkEntries+1)
	for i := range many {
		many[i] = entry("s1")
	}
	if _, err := admin.Create(context.Background(), "t1", many); !errors.Is(err, storage.ErrTooManyEntries) {
		t.Fatalf("expected ErrTooManyEntries, got %v", err)
	}
	if store.tx != nil {
		t.Fatal("no transaction should be opened for rejected batches")
	}
}

func TestEntryAdminCreate_ValidationNamesEntry(t *testing.T) {
	admin, store, _ := newAdmin()
	bad := entry("s1")
	bad.EndTime = "08:00"
	_, err := admin.Create(context.Background(), "t1", []model.AvailabilityEntry{entry("s1"), bad})
	var ve *EntryValidationError
	if !errors.As(err, &ve) || ve.Index != 1 {
		t.Fatalf("expected validation error for entry 1, got %v", err)
	}
	if store.tx != nil {
		t.Fatal("no transaction should be opened for invalid batches")
	}
}

func TestEntryAdminCreate_OutboxFailureRollsBack(t *testing.T) {
	admin, store, events := newAdmin()
	events.err = errors.New("db down")
	if _, err := admin.Create(context.Background(), "t1", []model.AvailabilityEntry{entry("s1")}); err == nil {
		t.Fatal("expected error")
	}
	if store.tx.committed || !store.tx.rolledBack {
		t.Fatal("expected rollback without commit")
	}
}

func TestEntryAdminDelete(t *testing.T) {
	admin, store, events := newAdmin()
	deleted, err := admin.Delete(context.Background(), "t1", "e1")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if deleted.ID != "e1" || !store.tx.committed || len(events.events) != 1 || events.events[0].EventType != outbox.EventEntryDeleted {
		t.Fatalf("unexpected delete outcome: %+v %+v", deleted, events.events)
	}

	store.deleteErr = pgx.ErrNoRows
	if _, err := admin.Delete(context.Background(), "t1", "missing"); !storage.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestEntryAdminGet(t *testing.T) {
	admin, _, _ := newAdmin()
	created, err := admin.Create(context.Background(), "t1", []model.AvailabilityEntry{
		{StaffID: "staff-1", Date: "2026-03-11", StartTime: "09:00", EndTime: "12:00", Type: model.AvailabilityAvailable, RecurrenceType: model.RecurrenceNone},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	got, err := admin.Get(context.Background(), "t1", created[0].ID)
	if err != nil || got.StartTime != "09:00" {
		t.Fatalf("unexpected get result: %+v %v", got, err)
	}
	if _, err := admin.Get(context.Background(), "t1", "missing"); !storage.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestEntryAdminList_ValidatesRange(t *testing.T) {
	admin, _, _ := newAdmin()
	_, err := admin.List(context.Background(), "t1", EntryListQuery{StaffID: "s1", StartDate: "2026-01-01", EndDate: "2026-12-31"})
	if !errors.Is(err, availability.ErrRangeTooLarge) {
		t.Fatalf("expected ErrRangeTooLarge, got %v", err)
	}
	if _, err := admin.List(context.Background(), "t1", EntryListQuery{StartDate: "2026-01-01", EndDate: "2026-01-02"}); !errors.Is(err, availability.ErrMissingStaffContext) {
		t.Fatalf("expected ErrMissingStaffContext, got %v", err)
	}
}
