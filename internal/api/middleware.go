package api

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"bookvalley/internal/metrics"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-Id"

type ctxKey int

const requestIDKey ctxKey = iota

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// observe assigns a request id, recovers panics, then logs and counts the
// request under endpoint.
func (s *HTTPServer) observe(endpoint string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey, requestID))

		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			if p := recover(); p != nil {
				s.logger.Error().Interface("panic", p).Str("request_id", requestID).Msg("http handler panic")
				writeError(recorder, http.StatusInternalServerError, internalErrorMessage)
			}

			metrics.IncHTTP(endpoint, recorder.status)
			ev := s.logger.Info()
			if recorder.status >= http.StatusInternalServerError {
				ev = s.logger.Error()
			}
			ev.Str("request_id", requestID).
				Str("endpoint", endpoint).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote", clientAddr(r)).
				Int("status", recorder.status).
				Dur("duration", time.Since(start)).
				Msg("http request")
		}()

		next(recorder, r)
	})
}

// limit rejects callers over the configured quota. The key is the customer
// when known, otherwise the remote address. A failing limiter lets the
// request through.
func (s *HTTPServer) limit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rl := s.cfg.RateLimit
		if s.limiter == nil || rl.Requests <= 0 || rl.Window <= 0 {
			next(w, r)
			return
		}

		key := customerID(r)
		if key == "" {
			key = "ip:" + clientAddr(r)
		}

		allowed, err := s.limiter.Allow(r.Context(), key, rl.Requests, rl.Window)
		if err != nil {
			s.logger.Warn().Err(err).Str("request_id", requestIDFrom(r.Context())).Msg("rate limiter failed")
			next(w, r)
			return
		}
		if !allowed {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, r)
	}
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return "unknown"
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.wroteHeader {
		return
	}
	r.wroteHeader = true
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	return r.ResponseWriter.Write(b)
}
