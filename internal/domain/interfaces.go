package domain

import (
	"context"
	"time"

	"bookvalley/internal/models"
	"bookvalley/internal/query"
)

// Row is one result row keyed by column name.
type Row = map[string]any

// Store hands out connections from the process-wide pool.
type Store interface {
	Acquire(ctx context.Context) (Conn, error)
}

// Conn is one pooled connection owned by a single logical operation. It must
// be released on every path.
type Conn interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error
	Query(ctx context.Context, req query.QueryRequest) ([]Row, error)
	Insert(ctx context.Context, req query.InsertRequest) (int64, error)
	Update(ctx context.Context, req query.UpdateRequest) (int64, error)
	Release() error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type ReservationService interface {
	MakeReservation(ctx context.Context, customerID string, req models.MakeReservationRequest) ([]string, error)
	CancelReservation(ctx context.Context, customerID string, req models.CancelReservationRequest) (int64, error)
	QueryReservation(ctx context.Context, customerID string, req models.QueryReservationRequest) ([]models.Reservation, error)
	Query(ctx context.Context, req query.QueryRequest) ([]Row, error)
	ListRooms(ctx context.Context, hotelName, roomType string) ([]models.Room, error)
}
