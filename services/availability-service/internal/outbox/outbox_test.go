package outbox

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/glowbook/clinicavail/libs/kafkax"
	otelx "github.com/glowbook/clinicavail/libs/otel"
	"github.com/glowbook/clinicavail/services/availability-service/internal/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func TestEntriesCreated(t *testing.T) {
	evt, err := EntriesCreated("t1", "staff-1", []model.AvailabilityEntry{
		{ID: "e1", StaffID: "staff-1", Date: "2026-03-11", StartTime: "09:00", EndTime: "12:00", Type: model.AvailabilityAvailable, RecurrenceType: model.RecurrenceNone},
	})
	if err != nil {
		t.Fatalf("EntriesCreated failed: %v", err)
	}
	if evt.EventType != EventEntriesCreated || evt.AggregateID != "staff-1" || evt.TenantID != "t1" {
		t.Fatalf("unexpected event: %+v", evt)
	}
	var body struct {
		Entries []map[string]string `json:"entries"`
	}
	if err := json.Unmarshal(evt.Payload, &body); err != nil {
		t.Fatalf("payload is not json: %v", err)
	}
	if len(body.Entries) != 1 || body.Entries[0]["availability_type"] != "available" {
		t.Fatalf("unexpected payload: %s", evt.Payload)
	}
}

func TestToMessage_CarriesHeadersAndTrace(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer otel.SetTextMapPropagator(prev)

	rec := Record{
		EventID:     "evt-1",
		TenantID:    "t1",
		AggregateID: "staff-1",
		EventType:   EventEntryDeleted,
		Payload:     []byte(`{}`),
		Trace:       otelx.TraceContext{Traceparent: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"},
	}
	msg := toMessage(context.Background(), rec)
	if msg.Topic != EventEntryDeleted || string(msg.Key) != "t1/staff-1" {
		t.Fatalf("unexpected routing: topic=%s key=%s", msg.Topic, msg.Key)
	}
	if got := kafkax.HeaderValue(msg.Headers, kafkax.HeaderTenantID); got != "t1" {
		t.Fatalf("expected tenant header, got %q", got)
	}
	if got := kafkax.HeaderValue(msg.Headers, "traceparent"); got != rec.Trace.Traceparent {
		t.Fatalf("expected traceparent to be restored, got %q", got)
	}
}
