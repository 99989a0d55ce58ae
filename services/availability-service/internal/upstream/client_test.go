package upstream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glowbook/clinicavail/services/availability-service/internal/availability"
	"github.com/glowbook/clinicavail/services/availability-service/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc, maxPages int) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL + "/", Token: "secret", PageSize: 2, MaxPages: maxPages},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestListBookings_FollowsPagesAndNormalizes(t *testing.T) {
	var pages []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/appointments" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" || r.Header.Get(TenantHeader) != "t1" {
			t.Errorf("missing auth headers: %v", r.Header)
		}
		q := r.URL.Query()
		if q.Get("staff_id") != "staff-1" || q.Get("start_date") != "2026-03-11" || q.Get("end_date") != "2026-03-12" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		pages = append(pages, q.Get("page"))
		w.Header().Set("Content-Type", "application/json")
		switch q.Get("page") {
		case "1":
			_, _ = io.WriteString(w, `{"items":[
				{"_id":"m1","staff_id":"staff-1","date":"2026-03-11","start_time":"10:00","end_time":"10:30","status":"Confirmed"},
				{"id":"b2","staff_id":"staff-1","appointment_date":"2026-03-11T00:00:00+07:00","start_time":"11:00","duration":"45","status":"completed"}
			],"total":3,"page":1,"page_size":2,"pages":2}`)
		default:
			_, _ = io.WriteString(w, `{"items":[
				{"id":"b3","_id":"ignored","staff_id":"staff-1","date":"2026-03-12","start_time":"09:00","duration_minutes":30.0,"status":"cancelled"}
			],"total":3,"page":2,"page_size":2,"pages":2}`)
		}
	}, 10)

	bookings, err := c.ListBookings(context.Background(), "t1", "staff-1",
		time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ListBookings failed: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 page requests, got %v", pages)
	}
	if len(bookings) != 3 {
		t.Fatalf("expected 3 bookings, got %d", len(bookings))
	}
	if bookings[0].ID != "m1" || bookings[0].Status != "confirmed" {
		t.Fatalf("unexpected first booking: %+v", bookings[0])
	}
	if bookings[1].Date != "2026-03-11" || bookings[1].DurationMinutes != 45 {
		t.Fatalf("unexpected second booking: %+v", bookings[1])
	}
	if bookings[2].ID != "b3" || bookings[2].DurationMinutes != 30 || bookings[2].Blocks() {
		t.Fatalf("unexpected third booking: %+v", bookings[2])
	}
}

func TestListBookings_SecondsPrecisionTimesBlockSlots(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"items":[
			{"id":"b1","staff_id":"staff-1","date":"2026-03-11","start_time":"10:00:00","end_time":"10:30:00","status":"confirmed"},
			{"id":"b2","staff_id":"staff-1","start_time":"2026-03-11T11:00:00+07:00","end_time":"2026-03-11T11:29:30+07:00","status":"confirmed"}
		],"total":2,"page":1,"page_size":2,"pages":1}`)
	}, 10)

	bookings, err := c.ListBookings(context.Background(), "t1", "staff-1",
		time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ListBookings failed: %v", err)
	}
	if bookings[0].StartTime != "10:00" || bookings[0].EndTime != "10:30" {
		t.Fatalf("unexpected first booking: %+v", bookings[0])
	}
	if bookings[1].Date != "2026-03-11" || bookings[1].StartTime != "11:00" || bookings[1].EndTime != "11:30" {
		t.Fatalf("unexpected second booking: %+v", bookings[1])
	}

	res, err := availability.NewBuilder(slog.New(slog.NewTextHandler(io.Discard, nil))).Build(availability.Request{
		StaffID:             "staff-1",
		StartDate:           "2026-03-11",
		EndDate:             "2026-03-11",
		SlotIntervalMinutes: 30,
		Now:                 time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC),
		Location:            time.UTC,
	}, []model.AvailabilityEntry{
		{ID: "e1", StaffID: "staff-1", Date: "2026-03-11", StartTime: "09:00", EndTime: "12:00", Type: model.AvailabilityAvailable, RecurrenceType: model.RecurrenceNone},
	}, bookings)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("expected no skipped bookings, got %+v", res.Warnings)
	}
	for _, slot := range res.Grid.Days["2026-03-11"] {
		booked := slot.StartTime == "10:00" || slot.StartTime == "11:00"
		if slot.IsAvailable == booked {
			t.Fatalf("slot %s available=%v", slot.StartTime, slot.IsAvailable)
		}
	}
}

func TestNormalizeClock(t *testing.T) {
	cases := []struct {
		in      string
		roundUp bool
		clock   string
		date    string
	}{
		{"10:00", false, "10:00", ""},
		{"10:00:00", false, "10:00", ""},
		{"10:00:00.000000", true, "10:00", ""},
		{"10:29:30", true, "10:30", ""},
		{"10:29:30", false, "10:29", ""},
		{"23:59:59.5", true, "24:00", ""},
		{"2026-03-11T09:15:00Z", false, "09:15", "2026-03-11"},
		{"2026-03-11T23:59:30+07:00", true, "24:00", "2026-03-11"},
		{"2026-03-11 14:00:00", false, "14:00", "2026-03-11"},
		{"ten", false, "ten", ""},
		{"25:00:00", false, "25:00:00", ""},
	}
	for _, tc := range cases {
		clock, date := normalizeClock(tc.in, tc.roundUp)
		if clock != tc.clock || date != tc.date {
			t.Fatalf("normalizeClock(%q, %v) = %q, %q; want %q, %q", tc.in, tc.roundUp, clock, date, tc.clock, tc.date)
		}
	}
}

func TestListBookings_PageLimit(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"items":[{"id":"x"}],"total":100,"page":1,"page_size":1,"pages":100}`)
	}, 3)
	_, err := c.ListBookings(context.Background(), "t1", "staff-1", time.Now(), time.Now())
	if !errors.Is(err, ErrPageLimit) {
		t.Fatalf("expected ErrPageLimit, got %v", err)
	}
}

func TestGetService_StatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such service", http.StatusNotFound)
	}, 1)
	_, err := c.GetService(context.Background(), "t1", "svc-1")
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Path != "/services/svc-1" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCatalogLookups(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/services/svc-1":
			_, _ = io.WriteString(w, `{"_id":"svc-1","name":"Facial","duration":60}`)
		case "/outlets/o1":
			_, _ = io.WriteString(w, `{"id":"o1","name":"Central","timezone":"Asia/Jakarta"}`)
		case "/staff/s1":
			_, _ = io.WriteString(w, `{"_id":"s1","name":"Mai","address":"Central","avatar":"https://cdn/x.png"}`)
		case "/tenants/t1":
			_, _ = io.WriteString(w, `{"_id":"t1","name":"Glow","timezone":"Asia/Bangkok","slot_interval_minutes":"15"}`)
		default:
			http.NotFound(w, r)
		}
	}, 1)
	ctx := context.Background()

	svc, err := c.GetService(ctx, "t1", "svc-1")
	if err != nil || svc.ID != "svc-1" || svc.DurationMinutes != 60 {
		t.Fatalf("unexpected service %+v (err=%v)", svc, err)
	}
	outlet, err := c.GetOutlet(ctx, "t1", "o1")
	if err != nil || outlet.Timezone != "Asia/Jakarta" {
		t.Fatalf("unexpected outlet %+v (err=%v)", outlet, err)
	}
	staff, err := c.GetStaff(ctx, "t1", "s1")
	if err != nil || staff.DisplayName != "Mai" || staff.OutletLabel != "Central" || staff.AvatarURL == "" {
		t.Fatalf("unexpected staff %+v (err=%v)", staff, err)
	}
	tenant, err := c.GetTenant(ctx, "t1")
	if err != nil || tenant.SlotIntervalMinutes != 15 || tenant.Timezone != "Asia/Bangkok" {
		t.Fatalf("unexpected tenant %+v (err=%v)", tenant, err)
	}
}
