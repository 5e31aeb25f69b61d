package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"bookvalley/internal/database"
	"bookvalley/internal/domain"
	"bookvalley/internal/events"
	"bookvalley/internal/metrics"
	"bookvalley/internal/models"
	"bookvalley/internal/query"
	"bookvalley/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Clock returns the current time.
type Clock func() time.Time

// IDGenerator returns a new globally unique reservation id.
type IDGenerator func() string

type Option func(*ReservationService)

func WithClock(c Clock) Option { return func(s *ReservationService) { s.now = c } }

func WithIDGenerator(g IDGenerator) Option { return func(s *ReservationService) { s.newID = g } }

// WithQueryTables sets the tables the generic Query may read.
func WithQueryTables(tables ...string) Option {
	return func(s *ReservationService) {
		s.queryTables = make(map[string]bool, len(tables))
		for _, t := range tables {
			s.queryTables[t] = true
		}
	}
}

// WithRetryable overrides which store errors replay the whole transaction.
func WithRetryable(fn func(error) bool) Option {
	return func(s *ReservationService) { s.retryable = fn }
}

type ReservationService struct {
	store       domain.Store
	eventBus    domain.EventPublisher
	retry       worker.RetryPolicy
	retryable   func(error) bool
	timeout     time.Duration
	queryTables map[string]bool
	now         Clock
	newID       IDGenerator
	logger      *zerolog.Logger
}

var _ domain.ReservationService = (*ReservationService)(nil)

func NewReservationService(store domain.Store, eventBus domain.EventPublisher, retry worker.RetryPolicy, timeout time.Duration, logger *zerolog.Logger, opts ...Option) *ReservationService {
	if timeout <= 0 {
		timeout = models.DefaultOperationTimeout * time.Second
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	s := &ReservationService{
		store:       store,
		eventBus:    eventBus,
		retry:       retry,
		retryable:   database.IsRetryable,
		timeout:     timeout,
		queryTables: map[string]bool{models.TableRooms: true},
		now:         time.Now,
		newID:       uuid.NewString,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MakeReservation reserves req.ReserveCount rooms of one hotel and type for
// the stay [CheckInDate, CheckOutDate). Either every room is reserved or none
// is. It returns the new reservation ids.
func (s *ReservationService) MakeReservation(ctx context.Context, customerID string, req models.MakeReservationRequest) ([]string, error) {
	defer metrics.ObserveOperation("make_reservation", time.Now())

	if err := validateMake(customerID, req); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var ids []string
	err := s.run(ctx, "make_reservation", true, func(ctx context.Context, conn domain.Conn) error {
		var err error
		ids, err = s.reserve(ctx, conn, customerID, req)
		return err
	})
	if err != nil {
		if domain.KindOf(err) == domain.KindConflict {
			metrics.IncConflict()
		}
		return nil, err
	}

	metrics.AddReservationsMade(len(ids))
	s.logger.Info().
		Str("customer_id", customerID).
		Str("hotel", req.HotelName).
		Str("room_type", req.RoomType).
		Int("count", len(ids)).
		Msg("reservation made")

	s.publishEvent(models.EventReservationMade, events.ReservationEventPayload{
		CustomerID:     customerID,
		ReservationIDs: ids,
		HotelName:      req.HotelName,
		RoomType:       req.RoomType,
		CheckInDate:    req.CheckInDate.String(),
		CheckOutDate:   req.CheckOutDate.String(),
		Affected:       int64(len(ids)),
		At:             s.now().UTC(),
	})
	return ids, nil
}

func (s *ReservationService) reserve(ctx context.Context, conn domain.Conn, customerID string, req models.MakeReservationRequest) ([]string, error) {
	reservedTime := query.DateTime(s.now())
	var roomRows, reservedRows []domain.Row

	overlap := overlapConditions(req.HotelName, req.RoomType, req.CheckInDate, req.CheckOutDate)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := conn.Query(gctx, query.QueryRequest{
			Tables:     []string{models.TableRooms},
			Columns:    []string{"roomId"},
			Conditions: roomConditions(req.HotelName, req.RoomType),
			OrderBy:    []query.OrderBy{{Field: "roomId", Asc: true}},
			ForUpdate:  true,
		})
		roomRows = rows
		return err
	})
	g.Go(func() error {
		rows, err := conn.Query(gctx, query.QueryRequest{
			Tables:     []string{models.TableRooms, models.TableReservations},
			Columns:    []string{colResRoomID},
			Conditions: &overlap,
		})
		reservedRows = rows
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	reserved := make(map[string]bool, len(reservedRows))
	for _, row := range reservedRows {
		reserved[database.String(row, "roomId")] = true
	}
	available := make([]string, 0, len(roomRows))
	for _, row := range roomRows {
		if id := database.String(row, "roomId"); !reserved[id] {
			available = append(available, id)
		}
	}

	if len(available) < req.ReserveCount {
		return nil, domain.Conflict("requested %d %s rooms at %s, %d available",
			req.ReserveCount, req.RoomType, req.HotelName, len(available))
	}

	ids := make([]string, req.ReserveCount)
	g, gctx = errgroup.WithContext(ctx)
	for i := range ids {
		ids[i] = s.newID()
		values := map[string]any{
			"reservationId": ids[i],
			"customerId":    customerID,
			"roomId":        available[i],
			"checkInDate":   req.CheckInDate.String(),
			"checkOutDate":  req.CheckOutDate.String(),
			"reservedTime":  reservedTime,
			"cancelledTime": nil,
		}
		g.Go(func() error {
			_, err := conn.Insert(gctx, query.InsertRequest{Table: models.TableReservations, Values: values})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ids, nil
}

// CancelReservation marks the caller's listed reservations cancelled in one
// transaction and returns how many rows changed. Ids that are unknown, owned
// by someone else or already cancelled change nothing.
func (s *ReservationService) CancelReservation(ctx context.Context, customerID string, req models.CancelReservationRequest) (int64, error) {
	defer metrics.ObserveOperation("cancel_reservation", time.Now())

	if err := validateCancel(customerID, req); err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var affected int64
	err := s.run(ctx, "cancel_reservation", true, func(ctx context.Context, conn domain.Conn) error {
		var total atomic.Int64
		cancelledTime := query.DateTime(s.now())

		g, gctx := errgroup.WithContext(ctx)
		for _, id := range req.ReservationIDs {
			where := query.All(
				query.Where("customerId", query.Eq, query.Value(customerID)),
				query.Where("reservationId", query.Eq, query.Value(id)),
				query.Where("cancelledTime", query.Is, query.Null()),
			)
			g.Go(func() error {
				n, err := conn.Update(gctx, query.UpdateRequest{
					Table:      models.TableReservations,
					Values:     map[string]any{"cancelledTime": cancelledTime},
					Conditions: &where,
				})
				total.Add(n)
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		affected = total.Load()
		return nil
	})
	if err != nil {
		return 0, err
	}

	metrics.AddReservationsCancelled(affected)
	s.logger.Info().
		Str("customer_id", customerID).
		Int("requested", len(req.ReservationIDs)).
		Int64("affected", affected).
		Msg("reservations cancelled")

	if affected > 0 {
		s.publishEvent(models.EventReservationCancelled, events.ReservationEventPayload{
			CustomerID:     customerID,
			ReservationIDs: req.ReservationIDs,
			Affected:       affected,
			At:             s.now().UTC(),
		})
	}
	return affected, nil
}

// QueryReservation lists the caller's reservations grouped per request. Rows
// are read in reservedTime, roomId, reservationId order so repeated calls
// return the same result.
func (s *ReservationService) QueryReservation(ctx context.Context, customerID string, req models.QueryReservationRequest) ([]models.Reservation, error) {
	defer metrics.ObserveOperation("query_reservation", time.Now())

	if err := validateQuery(customerID, req); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	where := lookupConditions(customerID, req)
	var records []models.ReservationRecord
	err := s.run(ctx, "query_reservation", false, func(ctx context.Context, conn domain.Conn) error {
		rows, err := conn.Query(ctx, query.QueryRequest{
			Tables: []string{models.TableRooms, models.TableReservations},
			Columns: []string{
				colResReservationID, colResCustomerID, colResRoomID, colRoomsHotelName,
				colResCheckIn, colResCheckOut, colResReservedTime, colResCancelledTime,
			},
			Conditions: &where,
			OrderBy: []query.OrderBy{
				{Field: colResReservedTime, Asc: true},
				{Field: colResRoomID, Asc: true},
				{Field: colResReservationID, Asc: true},
			},
		})
		if err != nil {
			return err
		}

		records = make([]models.ReservationRecord, 0, len(rows))
		for _, row := range rows {
			rec, err := database.ReservationFromRow(row)
			if err != nil {
				return err
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := aggregateReservations(records)
	if req.Limit > 0 && len(out) > req.Limit {
		out = out[:req.Limit]
	}
	return out, nil
}

// Query runs a read-only request against the allow-listed tables.
func (s *ReservationService) Query(ctx context.Context, req query.QueryRequest) ([]domain.Row, error) {
	defer metrics.ObserveOperation("query", time.Now())

	if len(req.Tables) == 0 {
		return nil, domain.Validation("tables must not be empty")
	}
	for _, t := range req.Tables {
		if !s.queryTables[t] {
			return nil, domain.Validation("table %q is not queryable", t)
		}
	}
	req.ForUpdate = false
	if _, err := req.Build(); err != nil {
		return nil, domain.Validation("%v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var rows []domain.Row
	err := s.run(ctx, "query", false, func(ctx context.Context, conn domain.Conn) error {
		var err error
		rows, err = conn.Query(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListRooms returns the inventory, optionally narrowed to a hotel and room
// type, in roomId order.
func (s *ReservationService) ListRooms(ctx context.Context, hotelName, roomType string) ([]models.Room, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var rooms []models.Room
	err := s.run(ctx, "list_rooms", false, func(ctx context.Context, conn domain.Conn) error {
		rows, err := conn.Query(ctx, query.QueryRequest{
			Tables:     []string{models.TableRooms},
			Conditions: roomConditions(hotelName, roomType),
			OrderBy:    []query.OrderBy{{Field: "roomId", Asc: true}},
		})
		if err != nil {
			return err
		}
		rooms = make([]models.Room, 0, len(rows))
		for _, row := range rows {
			rooms = append(rooms, database.RoomFromRow(row))
		}
		return nil
	})
	return rooms, err
}

// run executes fn on one pooled connection, inside a transaction when tx is
// set, replaying it on transient lock failures. Errors without a kind are
// reported as store failures.
func (s *ReservationService) run(ctx context.Context, op string, tx bool, fn func(context.Context, domain.Conn) error) error {
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		return s.attempt(ctx, tx, fn)
	}, s.retryable, func(attempt int, err error) {
		metrics.IncTxRetry()
		s.logger.Warn().Err(err).Str("operation", op).Int("attempt", attempt).Msg("retrying transaction")
	})
	if err == nil {
		return nil
	}

	if domain.KindOf(err) == 0 {
		s.logger.Error().Err(err).Str("operation", op).Msg("store failure")
		return domain.StoreFailure(op+" failed", err)
	}
	return err
}

func (s *ReservationService) attempt(ctx context.Context, tx bool, fn func(context.Context, domain.Conn) error) error {
	conn, err := s.store.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if relErr := conn.Release(); relErr != nil {
			s.logger.Warn().Err(relErr).Msg("failed to release connection")
		}
	}()

	if !tx {
		return fn(ctx, conn)
	}

	if err := conn.Begin(ctx); err != nil {
		return err
	}
	if err := fn(ctx, conn); err != nil {
		if rbErr := conn.Rollback(); rbErr != nil {
			return &domain.Error{
				Kind:  domain.KindStore,
				Msg:   "rollback failed",
				Cause: errors.Join(err, rbErr),
			}
		}
		return err
	}
	if err := conn.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *ReservationService) publishEvent(eventType string, payload events.ReservationEventPayload) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("customer_id", payload.CustomerID).Msg("publish event error")
	}
}
