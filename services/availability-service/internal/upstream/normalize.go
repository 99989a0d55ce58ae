package upstream

import (
	"strconv"
	"strings"
	"time"

	"github.com/glowbook/clinicavail/services/availability-service/internal/model"
	"github.com/glowbook/clinicavail/services/availability-service/internal/timeutil"
)

// The upstream API grew out of a document store, so records carry either "_id" or "id" and
// a few fields have legacy aliases. Everything is mapped onto model types here and nowhere else.

type envelope[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Pages    int `json:"pages"`
}

type wireBooking struct {
	MongoID         string  `json:"_id"`
	ID              string  `json:"id"`
	StaffID         string  `json:"staff_id"`
	OutletID        string  `json:"outlet_id"`
	Date            string  `json:"date"`
	AppointmentDate string  `json:"appointment_date"`
	StartTime       string  `json:"start_time"`
	EndTime         string  `json:"end_time"`
	Duration        flexInt `json:"duration"`
	DurationMinutes flexInt `json:"duration_minutes"`
	Status          string  `json:"status"`
}

func (w wireBooking) toModel() model.Booking {
	duration := int(w.DurationMinutes)
	if duration == 0 {
		duration = int(w.Duration)
	}
	start, startDate := normalizeClock(w.StartTime, false)
	end, _ := normalizeClock(w.EndTime, true)
	return model.Booking{
		ID:              firstNonEmpty(w.ID, w.MongoID),
		StaffID:         w.StaffID,
		OutletID:        w.OutletID,
		Date:            normalizeDate(firstNonEmpty(w.Date, w.AppointmentDate, startDate)),
		StartTime:       start,
		EndTime:         end,
		DurationMinutes: duration,
		Status:          strings.ToLower(strings.TrimSpace(w.Status)),
	}
}

type wireService struct {
	MongoID         string  `json:"_id"`
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	DurationMinutes flexInt `json:"duration_minutes"`
	Duration        flexInt `json:"duration"`
}

func (w wireService) toModel() model.Service {
	duration := int(w.DurationMinutes)
	if duration == 0 {
		duration = int(w.Duration)
	}
	return model.Service{ID: firstNonEmpty(w.ID, w.MongoID), Name: w.Name, DurationMinutes: duration}
}

type wireOutlet struct {
	MongoID  string `json:"_id"`
	ID       string `json:"id"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Timezone string `json:"timezone"`
}

func (w wireOutlet) toModel() model.Outlet {
	return model.Outlet{ID: firstNonEmpty(w.ID, w.MongoID), Name: w.Name, Address: w.Address, Timezone: w.Timezone}
}

type wireStaff struct {
	MongoID     string `json:"_id"`
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	OutletName  string `json:"outlet_name"`
	Address     string `json:"address"`
	Avatar      string `json:"avatar"`
	AvatarURL   string `json:"avatar_url"`
}

func (w wireStaff) toModel() model.StaffSummary {
	return model.StaffSummary{
		ID:          firstNonEmpty(w.ID, w.MongoID),
		DisplayName: firstNonEmpty(w.DisplayName, w.Name),
		OutletLabel: firstNonEmpty(w.OutletName, w.Address),
		AvatarURL:   firstNonEmpty(w.AvatarURL, w.Avatar),
	}
}

type wireTenant struct {
	MongoID             string  `json:"_id"`
	ID                  string  `json:"id"`
	Name                string  `json:"name"`
	Timezone            string  `json:"timezone"`
	SlotIntervalMinutes flexInt `json:"slot_interval_minutes"`
}

func (w wireTenant) toModel() model.Tenant {
	return model.Tenant{
		ID:                  firstNonEmpty(w.ID, w.MongoID),
		Name:                w.Name,
		Timezone:            w.Timezone,
		SlotIntervalMinutes: int(w.SlotIntervalMinutes),
	}
}

// flexInt accepts 30, 30.0 and "30". Anything else decodes as 0.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexInt(v)
	return nil
}

// normalizeDate reduces RFC 3339 timestamps to their date part in their own offset. Other values pass through so
// the grid builder can report them.
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > len(timeutil.DateLayout) {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.Format(timeutil.DateLayout)
		}
	}
	return s
}

var datetimeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"}

// normalizeClock reduces "HH:MM:SS[.ffffff]" and full datetimes to "HH:MM". A datetime also
// yields its date in its own offset. With roundUp, leftover seconds move the value to the next
// minute so an end time never shrinks. Unrecognized values pass through for the grid builder
// to report.
func normalizeClock(s string, roundUp bool) (clock, date string) {
	s = strings.TrimSpace(s)
	if len(s) > len(timeutil.DateLayout) && s[4] == '-' {
		for _, layout := range datetimeLayouts {
			t, err := time.Parse(layout, s)
			if err != nil {
				continue
			}
			clock = t.Format("15:04")
			if roundUp && (t.Second() != 0 || t.Nanosecond() != 0) {
				clock = t.Truncate(time.Minute).Add(time.Minute).Format("15:04")
				if clock == "00:00" {
					clock = "24:00"
				}
			}
			return clock, t.Format(timeutil.DateLayout)
		}
		return s, ""
	}
	if len(s) < len("15:04:05") || s[2] != ':' || s[5] != ':' {
		return s, ""
	}
	clock = s[:5]
	if _, err := timeutil.ToMinutes(clock); err != nil {
		return s, ""
	}
	if roundUp && strings.Trim(s[6:], "0.") != "" {
		if next, err := timeutil.AddMinutes(clock, 1); err == nil {
			clock = next
		}
	}
	return clock, ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
