package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/glowbook/clinicavail/libs/httpx"
	"github.com/glowbook/clinicavail/services/availability-service/internal/availability"
	"github.com/glowbook/clinicavail/services/availability-service/internal/model"
	"github.com/glowbook/clinicavail/services/availability-service/internal/scheduling"
	"github.com/glowbook/clinicavail/services/availability-service/internal/slotview"
)

type GridService interface {
	Grid(ctx context.Context, q scheduling.GridQuery) (availability.Result, error)
	Slots(ctx context.Context, q scheduling.GridQuery, date string) (slotview.View, error)
}

type AvailabilityHandler struct {
	svc    GridService
	logger *slog.Logger
}

func NewAvailabilityHandler(svc GridService, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{svc: svc, logger: logger}
}

type gridResponse struct {
	model.AvailabilityGrid
	Warnings []availability.PartialDataWarning `json:"warnings,omitempty"`
}

func gridQueryFromRequest(r *http.Request) (scheduling.GridQuery, error) {
	qs := r.URL.Query()
	q := scheduling.GridQuery{
		TenantID:  httpx.TenantIDFromContext(r.Context()),
		StaffID:   strings.TrimSpace(qs.Get("staff_id")),
		OutletID:  strings.TrimSpace(qs.Get("outlet_id")),
		ServiceID: strings.TrimSpace(qs.Get("service_id")),
		StartDate: strings.TrimSpace(qs.Get("start_date")),
		EndDate:   strings.TrimSpace(qs.Get("end_date")),
	}
	if raw := strings.TrimSpace(qs.Get("slot_interval_minutes")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return q, availability.ErrInvalidInterval
		}
		q.SlotIntervalMinutes = n
	}
	return q, nil
}

// Grid serves GET /api/v1/availability/grid.
func (h *AvailabilityHandler) Grid(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q, err := gridQueryFromRequest(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	res, err := h.svc.Grid(r.Context(), q)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, gridResponse{AvailabilityGrid: res.Grid, Warnings: res.Warnings})
}

// Slots serves GET /api/v1/availability/slots.
func (h *AvailabilityHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q, err := gridQueryFromRequest(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		writeBadRequest(w, "date required")
		return
	}
	view, err := h.svc.Slots(r.Context(), q, date)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
