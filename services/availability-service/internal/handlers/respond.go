package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/glowbook/clinicavail/services/availability-service/internal/availability"
	"github.com/glowbook/clinicavail/services/availability-service/internal/scheduling"
	"github.com/glowbook/clinicavail/services/availability-service/internal/storage"
	"github.com/glowbook/clinicavail/services/availability-service/internal/timeutil"
)

type errorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_request", Message: msg})
}

// writeError maps domain errors onto responses. A missing staff selection is a normal UI
// state and is answered with 200 so the client can render its guided empty state.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var (
		fetchErr *scheduling.FetchError
		entryErr *scheduling.EntryValidationError
	)
	switch {
	case errors.Is(err, availability.ErrMissingStaffContext):
		writeJSON(w, http.StatusOK, map[string]string{"state": "select_staff", "message": err.Error()})
	case errors.Is(err, availability.ErrRangeTooLarge):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "range_too_large", Message: err.Error()})
	case errors.Is(err, availability.ErrInvalidRange),
		errors.Is(err, availability.ErrInvalidInterval),
		errors.Is(err, timeutil.ErrInvalidTimeFormat),
		errors.Is(err, scheduling.ErrNoEntries),
		errors.Is(err, storage.ErrTooManyEntries),
		errors.As(err, &entryErr):
		writeBadRequest(w, err.Error())
	case errors.Is(err, scheduling.ErrUnknownReference):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Message: err.Error()})
	case storage.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found"})
	case storage.IsConflict(err):
		writeJSON(w, http.StatusConflict, errorBody{Error: "conflict", Message: "availability entry already exists"})
	case errors.As(err, &fetchErr):
		logger.Warn("collaborator fetch failed", "source", fetchErr.Source, "err", fetchErr.Err)
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "upstream_unavailable", Message: "could not load " + fetchErr.Source, Retryable: true})
	default:
		logger.Error("request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal_error", Retryable: true})
	}
}
