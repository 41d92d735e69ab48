package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"fingle/internal/service"
)

// Error codes returned in ErrorResponse.Code.
const (
	ErrCodeInvalidPayload = "invalid_payload"
	ErrCodeValidation     = "validation_error"
	ErrCodeUnauthorized   = "unauthorized"
	ErrCodeForbidden      = "forbidden"
	ErrCodeNotFound       = "not_found"
	ErrCodeConflict       = "conflict"
	ErrCodeInternal       = "internal_server_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RespondWithJSON writes payload as JSON with the given status.
func RespondWithJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// RespondErrorWithCode writes an ErrorResponse. devErr, when given, is
// logged but never sent to the client.
func RespondErrorWithCode(w http.ResponseWriter, status int, code, message string, devErr ...error) {
	RespondWithJSON(w, status, ErrorResponse{Code: code, Message: message})

	event := log.Debug()
	if status >= http.StatusInternalServerError {
		event = log.Error()
	}
	if len(devErr) > 0 && devErr[0] != nil {
		event = event.Err(devErr[0])
	}
	event.Int("status", status).Str("code", code).Msg(message)
}

// respondServiceError maps the service error kinds to HTTP statuses.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		RespondErrorWithCode(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, service.ErrAuthorization):
		RespondErrorWithCode(w, http.StatusForbidden, ErrCodeForbidden, err.Error())
	case errors.Is(err, service.ErrNotFound):
		RespondErrorWithCode(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, service.ErrConflict):
		RespondErrorWithCode(w, http.StatusConflict, ErrCodeConflict, err.Error())
	default:
		RespondErrorWithCode(w, http.StatusInternalServerError, ErrCodeInternal, "internal server error", err)
	}
}
