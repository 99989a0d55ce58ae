package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glowbook/clinicavail/libs/auth"
	"github.com/glowbook/clinicavail/services/availability-service/internal/availability"
	"github.com/glowbook/clinicavail/services/availability-service/internal/model"
	"github.com/glowbook/clinicavail/services/availability-service/internal/scheduling"
	"github.com/glowbook/clinicavail/services/availability-service/internal/slotview"
	"github.com/glowbook/clinicavail/services/availability-service/internal/storage"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const testSecret = "test-secret"

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type fakeGrid struct {
	err   error
	lastQ scheduling.GridQuery
}

func (f *fakeGrid) Grid(_ context.Context, q scheduling.GridQuery) (availability.Result, error) {
	f.lastQ = q
	if f.err != nil {
		return availability.Result{}, f.err
	}
	return availability.Result{Grid: model.AvailabilityGrid{
		StartDate:           q.StartDate,
		EndDate:             q.EndDate,
		NumDays:             2,
		SlotIntervalMinutes: 30,
		Days: map[string][]model.AvailabilitySlot{
			"2026-03-11": {{StartTime: "09:00", EndTime: "09:30", IsAvailable: true}},
			"2026-03-12": {},
		},
		Metadata: model.GridMetadata{StaffID: q.StaffID, TotalAvailableSlots: 1},
	}}, nil
}

func (f *fakeGrid) Slots(_ context.Context, q scheduling.GridQuery, date string) (slotview.View, error) {
	f.lastQ = q
	if f.err != nil {
		return slotview.View{}, f.err
	}
	return slotview.View{Date: date, Items: []slotview.Item{{Time: "09:00", Available: true}}, AvailableCount: 1}, nil
}

func token(t *testing.T, tenantID string) string {
	t.Helper()
	tok, err := auth.SignHS256(auth.Claims{
		TenantID:         tenantID,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}, testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func serveGrid(t *testing.T, svc GridService, target string) *httptest.ResponseRecorder {
	t.Helper()
	h := NewAvailabilityHandler(svc, discard())
	protected := auth.Verifier{Secret: testSecret}.RequireTenant()(http.HandlerFunc(h.Grid))
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("Authorization", "Bearer "+token(t, "t1"))
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	return rec
}

func TestGrid_OK(t *testing.T) {
	svc := &fakeGrid{}
	rec := serveGrid(t, svc, "/api/v1/availability/grid?staff_id=staff-1&outlet_id=o1&service_id=svc-1&start_date=2026-03-11&end_date=2026-03-12&slot_interval_minutes=30")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastQ.TenantID != "t1" || svc.lastQ.SlotIntervalMinutes != 30 || svc.lastQ.ServiceID != "svc-1" {
		t.Fatalf("unexpected query: %+v", svc.lastQ)
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	for _, key := range []string{"start_date", "end_date", "num_days", "slot_interval_minutes", "availability_grid", "metadata"} {
		if _, ok := body[key]; !ok {
			t.Fatalf("missing %q in %s", key, rec.Body.String())
		}
	}
	if !strings.Contains(string(body["availability_grid"]), `"2026-03-12":[]`) {
		t.Fatalf("empty day must serialize as []: %s", body["availability_grid"])
	}
}

func TestGrid_SameInputSameBytes(t *testing.T) {
	target := "/api/v1/availability/grid?staff_id=staff-1&start_date=2026-03-11&end_date=2026-03-12"
	a := serveGrid(t, &fakeGrid{}, target).Body.Bytes()
	b := serveGrid(t, &fakeGrid{}, target).Body.Bytes()
	if !bytes.Equal(a, b) {
		t.Fatalf("responses differ:\n%s\n%s", a, b)
	}
}

func TestGrid_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		want string
	}{
		{"missing staff", availability.ErrMissingStaffContext, http.StatusOK, `"state":"select_staff"`},
		{"range too large", fmt.Errorf("%w: 120 days", availability.ErrRangeTooLarge), http.StatusBadRequest, `"error":"range_too_large"`},
		{"bad range", availability.ErrInvalidRange, http.StatusBadRequest, `"error":"invalid_request"`},
		{"unknown service", fmt.Errorf("%w: service %q", scheduling.ErrUnknownReference, "svc-9"), http.StatusNotFound, `"error":"not_found"`},
		{"fetch failure", &scheduling.FetchError{Source: "bookings", Err: errors.New("503")}, http.StatusBadGateway, `"retryable":true`},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, `"error":"internal_error"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serveGrid(t, &fakeGrid{err: tc.err}, "/api/v1/availability/grid?staff_id=s&start_date=2026-03-11&end_date=2026-03-11")
			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tc.want) {
				t.Fatalf("expected %s in %s", tc.want, rec.Body.String())
			}
		})
	}
}

func TestGrid_BadIntervalRejected(t *testing.T) {
	svc := &fakeGrid{}
	rec := serveGrid(t, svc, "/api/v1/availability/grid?staff_id=s&start_date=2026-03-11&end_date=2026-03-11&slot_interval_minutes=abc")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if svc.lastQ.StaffID != "" {
		t.Fatal("service must not be called for invalid input")
	}
}

func TestGrid_RequiresTenantToken(t *testing.T) {
	h := NewAvailabilityHandler(&fakeGrid{}, discard())
	protected := auth.Verifier{Secret: testSecret}.RequireTenant()(http.HandlerFunc(h.Grid))
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/availability/grid", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSlots(t *testing.T) {
	h := NewAvailabilityHandler(&fakeGrid{}, discard())

	rec := httptest.NewRecorder()
	h.Slots(rec, httptest.NewRequest(http.MethodGet, "/api/v1/availability/slots?staff_id=s", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without date, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Slots(rec, httptest.NewRequest(http.MethodGet, "/api/v1/availability/slots?staff_id=s&date=2026-03-11", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"items":[{"time":"09:00","available":true}]`) {
		t.Fatalf("unexpected response %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.Slots(rec, httptest.NewRequest(http.MethodPost, "/api/v1/availability/slots", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

type fakeEntries struct {
	created  []model.AvailabilityEntry
	tenantID string
	err      error
}

func (f *fakeEntries) List(_ context.Context, tenantID string, q scheduling.EntryListQuery) ([]model.AvailabilityEntry, error) {
	f.tenantID = tenantID
	return []model.AvailabilityEntry{{ID: "e1", StaffID: q.StaffID, Date: "2026-03-11", StartTime: "09:00", EndTime: "12:00", Type: model.AvailabilityAvailable}}, f.err
}

func (f *fakeEntries) Get(_ context.Context, _ string, id string) (model.AvailabilityEntry, error) {
	if f.err != nil {
		return model.AvailabilityEntry{}, f.err
	}
	return model.AvailabilityEntry{ID: id, StaffID: "staff-1", Date: "2026-03-11", StartTime: "09:00", EndTime: "12:00", Type: model.AvailabilityAvailable}, nil
}

func (f *fakeEntries) Create(_ context.Context, tenantID string, entries []model.AvailabilityEntry) ([]model.AvailabilityEntry, error) {
	f.tenantID = tenantID
	if f.err != nil {
		return nil, f.err
	}
	for i := range entries {
		entries[i].ID = fmt.Sprintf("e%d", i+1)
	}
	f.created = entries
	return entries, nil
}

func (f *fakeEntries) Delete(_ context.Context, _ string, id string) (model.AvailabilityEntry, error) {
	if f.err != nil {
		return model.AvailabilityEntry{}, f.err
	}
	return model.AvailabilityEntry{ID: id, StaffID: "staff-1"}, nil
}

func TestEntries_Create(t *testing.T) {
	svc := &fakeEntries{}
	h := NewEntryHandler(svc, discard())
	body := `{"entries":[{"staff_id":"staff-1","date":"2026-03-11","start_time":"09:00","end_time":"12:00","availability_type":"Available","recurrence_type":"weekly"}]}`
	rec := httptest.NewRecorder()
	h.Entries(rec, httptest.NewRequest(http.MethodPost, "/api/v1/availability/entries", strings.NewReader(body)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(svc.created) != 1 || svc.created[0].Type != model.AvailabilityAvailable || svc.created[0].RecurrenceType != model.RecurrenceWeekly {
		t.Fatalf("unexpected entries: %+v", svc.created)
	}
}

func TestEntries_CreateErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
		err  error
		code int
	}{
		{"bad json", `{`, nil, http.StatusBadRequest},
		{"too many", `{"entries":[]}`, storage.ErrTooManyEntries, http.StatusBadRequest},
		{"invalid entry", `{"entries":[]}`, &scheduling.EntryValidationError{Index: 0, Err: errors.New("bad")}, http.StatusBadRequest},
		{"duplicate", `{"entries":[]}`, &pgconn.PgError{Code: "23505"}, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewEntryHandler(&fakeEntries{err: tc.err}, discard())
			rec := httptest.NewRecorder()
			h.Entries(rec, httptest.NewRequest(http.MethodPost, "/api/v1/availability/entries", strings.NewReader(tc.body)))
			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d: %s", tc.code, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestEntries_ListAndDelete(t *testing.T) {
	h := NewEntryHandler(&fakeEntries{}, discard())

	rec := httptest.NewRecorder()
	h.Entries(rec, httptest.NewRequest(http.MethodGet, "/api/v1/availability/entries?staff_id=staff-1&start_date=2026-03-01&end_date=2026-03-31", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"count":1`) {
		t.Fatalf("unexpected list response %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.Entries(rec, httptest.NewRequest(http.MethodGet, "/api/v1/availability/entries?id=e1", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"id":"e1"`) || strings.Contains(rec.Body.String(), `"items"`) {
		t.Fatalf("unexpected get response %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.Entries(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/availability/entries", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without id, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Entries(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/availability/entries?id=e9", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"id":"e9"`) {
		t.Fatalf("unexpected delete response %d: %s", rec.Code, rec.Body.String())
	}

	h = NewEntryHandler(&fakeEntries{err: pgx.ErrNoRows}, discard())
	rec = httptest.NewRecorder()
	h.Entries(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/availability/entries?id=missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Entries(rec, httptest.NewRequest(http.MethodPut, "/api/v1/availability/entries", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
