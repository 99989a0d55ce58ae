package outbox

import (
	"encoding/json"

	"github.com/glowbook/clinicavail/services/availability-service/internal/model"
)

// Event types double as Kafka topic names.
const (
	EventEntriesCreated = "availability.entries.created.v1"
	EventEntryDeleted   = "availability.entries.deleted.v1"
)

// Event is the domain event envelope written to the outbox table.
type Event struct {
	TenantID      string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

type entryPayload struct {
	ID                string `json:"id"`
	StaffID           string `json:"staff_id"`
	OutletID          string `json:"outlet_id,omitempty"`
	Date              string `json:"date"`
	StartTime         string `json:"start_time"`
	EndTime           string `json:"end_time"`
	Type              string `json:"availability_type"`
	RecurrenceType    string `json:"recurrence_type"`
	RecurrenceEndDate string `json:"recurrence_end_date,omitempty"`
}

func toPayload(e model.AvailabilityEntry) entryPayload {
	return entryPayload{
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
}

// EntriesCreated builds one event for a bulk write, keyed by staff member so consumers see
// a staff member's changes in order.
func EntriesCreated(tenantID, staffID string, entries []model.AvailabilityEntry) (Event, error) {
	items := make([]entryPayload, 0, len(entries))
	for _, e := range entries {
		items = append(items, toPayload(e))
	}
	payload, err := json.Marshal(map[string]any{
		"tenant_id": tenantID,
		"staff_id":  staffID,
		"entries":   items,
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		TenantID:      tenantID,
		AggregateType: "staff_availability",
		AggregateID:   staffID,
		EventType:     EventEntriesCreated,
		Payload:       payload,
	}, nil
}

func EntryDeleted(tenantID string, entry model.AvailabilityEntry) (Event, error) {
	payload, err := json.Marshal(map[string]any{
		"tenant_id": tenantID,
		"staff_id":  entry.StaffID,
		"entry":     toPayload(entry),
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		TenantID:      tenantID,
		AggregateType: "staff_availability",
		AggregateID:   entry.StaffID,
		EventType:     EventEntryDeleted,
		Payload:       payload,
	}, nil
}
