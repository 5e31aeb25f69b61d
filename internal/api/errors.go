package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"bookvalley/internal/domain"
)

const internalErrorMessage = "internal error"

// statusFor maps a service error to an HTTP status and the message shown to
// the client. Store failures never leak their cause.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrAuthentication):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrStore):
		return http.StatusInternalServerError, internalErrorMessage
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, internalErrorMessage
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
