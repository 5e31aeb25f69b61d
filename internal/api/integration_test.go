package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"bookvalley/internal/config"
	"bookvalley/internal/database"
	"bookvalley/internal/models"
	"bookvalley/internal/service"
	"bookvalley/internal/worker"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReservationFlow(t *testing.T) {
	logger := zerolog.New(io.Discard)
	store, err := database.Open(context.Background(), config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   ":memory:",
	}, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.SyncRooms(context.Background(), []models.Room{
		{RoomID: "DLX-1", HotelName: "Valley Inn", RoomType: "deluxe"},
		{RoomID: "DLX-2", HotelName: "Valley Inn", RoomType: "deluxe"},
	}))

	retry := worker.RetryPolicy{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 2}
	svc := service.NewReservationService(store, nil, retry, 5*time.Second, &logger)
	h := newTestServer(svc, nil, config.APIConfig{}).Handler()

	makeBody := `{"hotelName":"Valley Inn","roomType":"deluxe","reserveCount":2,"checkInDate":"2026-05-01","checkOutDate":"2026-05-04"}`

	w := do(t, h, http.MethodPost, "/api/v1/reservations/make", makeBody, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, h, http.MethodPost, "/api/v1/reservations/make", makeBody, alice)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, h, http.MethodPost, "/api/v1/reservations/make", makeBody, map[string]string{"X-Customer-Id": "bob"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, h, http.MethodPost, "/api/v1/reservations/query", `{"hotelName":"Valley Inn"}`, alice)
	require.Equal(t, http.StatusOK, w.Code)
	var got models.QueryReservationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Reservations, 1)
	assert.Equal(t, "DLX", got.Reservations[0].RoomIDPrefix)
	assert.Equal(t, "2026-05-01", got.Reservations[0].CheckInDate.String())
	ids := got.Reservations[0].ReservationIDs
	require.Len(t, ids, 2)

	idsJSON, err := json.Marshal(map[string][]string{"reservationIds": ids})
	require.NoError(t, err)

	w = do(t, h, http.MethodPost, "/api/v1/reservations/cancel", string(idsJSON), map[string]string{"X-Customer-Id": "bob"})
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(t, h, http.MethodPost, "/api/v1/reservations/make", makeBody, map[string]string{"X-Customer-Id": "bob"})
	assert.Equal(t, http.StatusConflict, w.Code, "foreign cancel must not free rooms")

	w = do(t, h, http.MethodPost, "/api/v1/reservations/cancel", string(idsJSON), alice)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodPost, "/api/v1/reservations/query", `{}`, alice)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"reservations":[]}`, w.Body.String())

	w = do(t, h, http.MethodPost, "/api/v1/reservations/make", makeBody, map[string]string{"X-Customer-Id": "bob"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodPost, "/api/v1/query", `{"tables":["ROOMS"],"orderBy":[{"field":"roomId","asc":true}]}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "DLX-1", rows[0]["roomId"])

	w = do(t, h, http.MethodPost, "/api/v1/query", `{"tables":["RESERVATIONS"]}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodGet, "/api/v1/rooms?hotelName=Valley+Inn", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var inventory struct {
		Rooms []models.Room `json:"rooms"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &inventory))
	require.Len(t, inventory.Rooms, 2)
	assert.Equal(t, "DLX-1", inventory.Rooms[0].RoomID)
}
