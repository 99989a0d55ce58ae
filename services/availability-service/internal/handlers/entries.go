package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/glowbook/clinicavail/libs/httpx"
	"github.com/glowbook/clinicavail/services/availability-service/internal/model"
	"github.com/glowbook/clinicavail/services/availability-service/internal/scheduling"
)

type EntryService interface {
	List(ctx context.Context, tenantID string, q scheduling.EntryListQuery) ([]model.AvailabilityEntry, error)
	Get(ctx context.Context, tenantID, id string) (model.AvailabilityEntry, error)
	Create(ctx context.Context, tenantID string, entries []model.AvailabilityEntry) ([]model.AvailabilityEntry, error)
	Delete(ctx context.Context, tenantID, id string) (model.AvailabilityEntry, error)
}

type EntryHandler struct {
	svc    EntryService
	logger *slog.Logger
}

func NewEntryHandler(svc EntryService, logger *slog.Logger) *EntryHandler {
	return &EntryHandler{svc: svc, logger: logger}
}

type entryItem struct {
	ID                string `json:"id,omitempty"`
	StaffID           string `json:"staff_id"`
	OutletID          string `json:"outlet_id,omitempty"`
	Date              string `json:"date"`
	StartTime         string `json:"start_time"`
	EndTime           string `json:"end_time"`
	Type              string `json:"availability_type"`
	RecurrenceType    string `json:"recurrence_type,omitempty"`
	RecurrenceEndDate string `json:"recurrence_end_date,omitempty"`
	CreatedAt         string `json:"created_at,omitempty"`
	UpdatedAt         string `json:"updated_at,omitempty"`
}

func (it entryItem) toModel() model.AvailabilityEntry {
	return model.AvailabilityEntry{
		StaffID:           strings.TrimSpace(it.StaffID),
		OutletID:          strings.TrimSpace(it.OutletID),
		Date:              strings.TrimSpace(it.Date),
		StartTime:         strings.TrimSpace(it.StartTime),
		EndTime:           strings.TrimSpace(it.EndTime),
		Type:              model.AvailabilityType(strings.ToLower(strings.TrimSpace(it.Type))),
		RecurrenceType:    model.RecurrenceType(strings.ToLower(strings.TrimSpace(it.RecurrenceType))),
		RecurrenceEndDate: strings.TrimSpace(it.RecurrenceEndDate),
	}
}

func itemFromModel(e model.AvailabilityEntry) entryItem {
	it := entryItem{
		ID:                e.ID,
		StaffID:           e.StaffID,
		OutletID:          e.OutletID,
		Date:              e.Date,
		StartTime:         e.StartTime,
		EndTime:           e.EndTime,
		Type:              string(e.Type),
		RecurrenceType:    string(e.RecurrenceType),
		RecurrenceEndDate: e.RecurrenceEndDate,
	}
	if !e.CreatedAt.IsZero() {
		it.CreatedAt = e.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !e.UpdatedAt.IsZero() {
		it.UpdatedAt = e.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return it
}

func itemsFromModel(entries []model.AvailabilityEntry) []entryItem {
	items := make([]entryItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, itemFromModel(e))
	}
	return items
}

// Entries serves /api/v1/availability/entries for GET, POST and DELETE. GET with ?id= returns
// a single entry.
func (h *EntryHandler) Entries(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	case http.MethodDelete:
		h.delete(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *EntryHandler) list(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	if id := strings.TrimSpace(qs.Get("id")); id != "" {
		entry, err := h.svc.Get(r.Context(), httpx.TenantIDFromContext(r.Context()), id)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, itemFromModel(entry))
		return
	}
	entries, err := h.svc.List(r.Context(), httpx.TenantIDFromContext(r.Context()), scheduling.EntryListQuery{
		StaffID:   strings.TrimSpace(qs.Get("staff_id")),
		OutletID:  strings.TrimSpace(qs.Get("outlet_id")),
		StartDate: strings.TrimSpace(qs.Get("start_date")),
		EndDate:   strings.TrimSpace(qs.Get("end_date")),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": itemsFromModel(entries), "count": len(entries)})
}

func (h *EntryHandler) create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Entries []entryItem `json:"entries"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid json body")
		return
	}
	entries := make([]model.AvailabilityEntry, 0, len(req.Entries))
	for _, it := range req.Entries {
		entries = append(entries, it.toModel())
	}
	created, err := h.svc.Create(r.Context(), httpx.TenantIDFromContext(r.Context()), entries)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"items": itemsFromModel(created), "count": len(created)})
}

func (h *EntryHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeBadRequest(w, "id required")
		return
	}
	deleted, err := h.svc.Delete(r.Context(), httpx.TenantIDFromContext(r.Context()), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": itemFromModel(deleted)})
}
