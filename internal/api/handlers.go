package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"bookvalley/internal/models"
	"bookvalley/internal/query"
)

const maxBodyBytes = 1 << 20

func (s *HTTPServer) handleMakeReservation(w http.ResponseWriter, r *http.Request) {
	var req models.MakeReservationRequest
	if !s.decode(w, r, &req) {
		return
	}

	ids, err := s.svc.MakeReservation(r.Context(), customerID(r), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.logger.Debug().Strs("reservation_ids", ids).Str("request_id", requestIDFrom(r.Context())).Msg("reservation made")
	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *HTTPServer) handleQueryReservation(w http.ResponseWriter, r *http.Request) {
	var req models.QueryReservationRequest
	if !s.decode(w, r, &req) {
		return
	}

	reservations, err := s.svc.QueryReservation(r.Context(), customerID(r), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if reservations == nil {
		reservations = []models.Reservation{}
	}
	writeJSON(w, http.StatusOK, models.QueryReservationResponse{Reservations: reservations})
}

func (s *HTTPServer) handleCancelReservation(w http.ResponseWriter, r *http.Request) {
	var req models.CancelReservationRequest
	if !s.decode(w, r, &req) {
		return
	}

	affected, err := s.svc.CancelReservation(r.Context(), customerID(r), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.logger.Debug().Int64("affected", affected).Str("request_id", requestIDFrom(r.Context())).Msg("reservations cancelled")
	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *HTTPServer) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req query.QueryRequest
	if !s.decode(w, r, &req) {
		return
	}

	rows, err := s.svc.Query(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if rows == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *HTTPServer) handleListRooms(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rooms, err := s.svc.ListRooms(r.Context(), strings.TrimSpace(q.Get("hotelName")), strings.TrimSpace(q.Get("roomType")))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if rooms == nil {
		rooms = []models.Room{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	for _, check := range s.health {
		if err := check.fn(r.Context()); err != nil {
			s.logger.Warn().Err(err).Str("check", check.name).Msg("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "failed": check.name})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decode reads a JSON body into dst. An empty body leaves dst zero.
func (s *HTTPServer) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("request_id", requestIDFrom(r.Context())).Msg("request failed")
	}
	writeError(w, code, msg)
}
