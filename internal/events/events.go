package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"bookvalley/internal/models"

	"github.com/google/uuid"
)

// ReservationEventPayload is the snapshot handed to event consumers after a
// reservation change commits.
type ReservationEventPayload struct {
	CustomerID     string    `json:"customer_id"`
	ReservationIDs []string  `json:"reservation_ids"`
	HotelName      string    `json:"hotel_name,omitempty"`
	RoomType       string    `json:"room_type,omitempty"`
	CheckInDate    string    `json:"check_in_date,omitempty"`
	CheckOutDate   string    `json:"check_out_date,omitempty"`
	Affected       int64     `json:"affected"`
	At             time.Time `json:"at"`
}

// Event is one published domain event.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for the given event types.
func (b *EventBus) Subscribe(handler EventHandler, eventTypes ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range eventTypes {
		b.subscribers[t] = append(b.subscribers[t], handler)
	}
}

// Publish runs the subscribers of the event type synchronously and joins
// their errors.
func (b *EventBus) Publish(event *Event) error {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler(event); err != nil {
			errs = append(errs, fmt.Errorf("%s handler: %w", event.Type, err))
		}
	}
	return errors.Join(errs...)
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	event, err := NewJSONEvent(eventType, payload)
	if err != nil {
		return err
	}
	return b.Publish(&event)
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{ID: uuid.NewString(), Type: eventType, Payload: raw, CreatedAt: time.Now().UTC()}, nil
}

// ReservationTypes lists the event types emitted by the reservation service.
var ReservationTypes = []string{models.EventReservationMade, models.EventReservationCancelled}
