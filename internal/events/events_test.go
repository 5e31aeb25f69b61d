package events

import (
	"encoding/json"
	"errors"
	"testing"

	"bookvalley/internal/models"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus()

	var received *Event
	var callCount int

	handler := func(event *Event) error {
		received = event
		callCount++
		return nil
	}

	bus.Subscribe(handler, models.EventReservationMade)

	payload := ReservationEventPayload{CustomerID: "alice", ReservationIDs: []string{"r-1", "r-2"}, Affected: 2}
	if err := bus.PublishJSON(models.EventReservationMade, payload); err != nil {
		t.Fatalf("PublishJSON failed: %v", err)
	}

	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
	if received.Type != models.EventReservationMade {
		t.Errorf("expected type %s, got %s", models.EventReservationMade, received.Type)
	}
	if received.ID == "" {
		t.Errorf("expected event id to be set")
	}

	var decoded ReservationEventPayload
	if err := json.Unmarshal(received.Payload, &decoded); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if decoded.CustomerID != "alice" || len(decoded.ReservationIDs) != 2 {
		t.Errorf("unexpected payload %+v", decoded)
	}
}

func TestEventBusSubscribeMany(t *testing.T) {
	bus := NewEventBus()
	var count int

	bus.Subscribe(func(_ *Event) error { count++; return nil }, ReservationTypes...)

	_ = bus.Publish(&Event{Type: models.EventReservationMade})
	_ = bus.Publish(&Event{Type: models.EventReservationCancelled})
	_ = bus.Publish(&Event{Type: "other"})

	if count != 2 {
		t.Errorf("expected 2 calls, got %d", count)
	}
}

func TestEventBusHandlerErrors(t *testing.T) {
	bus := NewEventBus()
	boom := errors.New("boom")
	var called bool

	bus.Subscribe(func(_ *Event) error { return boom }, "event")
	bus.Subscribe(func(_ *Event) error { called = true; return nil }, "event")

	err := bus.Publish(&Event{Type: "event"})
	if !errors.Is(err, boom) {
		t.Errorf("expected joined handler error, got %v", err)
	}
	if !called {
		t.Errorf("a failing handler must not stop the others")
	}
}

func TestEventBusNoSubscribers(t *testing.T) {
	bus := NewEventBus()
	if err := bus.Publish(&Event{Type: "unknown"}); err != nil {
		t.Errorf("Publish failed: %v", err)
	}
	if err := bus.PublishJSON("unknown", nil); err != nil {
		t.Errorf("PublishJSON failed: %v", err)
	}

	var nilBus *EventBus
	if err := nilBus.PublishJSON("unknown", nil); err != nil {
		t.Errorf("nil bus PublishJSON failed: %v", err)
	}
}

func TestNewJSONEvent(t *testing.T) {
	event, err := NewJSONEvent("type", ReservationEventPayload{Affected: 3})
	if err != nil {
		t.Fatalf("NewJSONEvent failed: %v", err)
	}
	if event.CreatedAt.IsZero() {
		t.Errorf("expected CreatedAt to be set")
	}

	var decoded ReservationEventPayload
	if err := json.Unmarshal(event.Payload, &decoded); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if decoded.Affected != 3 {
		t.Errorf("expected Affected 3, got %d", decoded.Affected)
	}

	if _, err := NewJSONEvent("type", make(chan int)); err == nil {
		t.Errorf("expected marshal error")
	}
}
