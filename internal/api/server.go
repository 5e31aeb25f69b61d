// Package api exposes the reservation service over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"bookvalley/internal/config"
	"bookvalley/internal/domain"

	"github.com/rs/zerolog"
)

type healthCheck struct {
	name string
	fn   func(context.Context) error
}

// HTTPServer routes reservation requests to a domain.ReservationService.
type HTTPServer struct {
	cfg     config.APIConfig
	svc     domain.ReservationService
	limiter domain.RateLimiter
	logger  *zerolog.Logger
	health  []healthCheck
	handler http.Handler
	server  *http.Server
}

// NewHTTPServer builds the server. limiter may be nil to disable quotas.
func NewHTTPServer(cfg config.APIConfig, svc domain.ReservationService, limiter domain.RateLimiter, logger *zerolog.Logger) *HTTPServer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	s := &HTTPServer{cfg: cfg, svc: svc, limiter: limiter, logger: logger}

	mux := http.NewServeMux()
	mux.Handle("POST /api/v1/reservations/make", s.observe("make_reservation", s.limit(s.handleMakeReservation)))
	mux.Handle("POST /api/v1/reservations/query", s.observe("query_reservation", s.limit(s.handleQueryReservation)))
	mux.Handle("POST /api/v1/reservations/cancel", s.observe("cancel_reservation", s.limit(s.handleCancelReservation)))
	mux.Handle("POST /api/v1/query", s.observe("query", s.limit(s.handleQuery)))
	mux.Handle("GET /api/v1/rooms", s.observe("list_rooms", s.limit(s.handleListRooms)))
	mux.Handle("GET /healthz", s.observe("healthz", s.handleHealth))
	s.handler = mux

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	return s
}

// AddHealthCheck registers a dependency probed by GET /healthz.
func (s *HTTPServer) AddHealthCheck(name string, fn func(context.Context) error) {
	s.health = append(s.health, healthCheck{name: name, fn: fn})
}

func (s *HTTPServer) Handler() http.Handler {
	return s.handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
