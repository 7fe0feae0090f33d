package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	accountservice "medportal/backend/internal/account/service"
	"medportal/backend/internal/governor"
)

// errorBody is the JSON error envelope returned on every non-2xx response.
type errorBody struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	RetryAfter int64  `json:"retryAfter,omitempty"` // seconds, set on 429s
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			log.Printf("server: encode response: %v", err)
		}
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Code: code, Message: message})
}

// writeServiceError maps service-layer sentinel errors to HTTP statuses.
// Anything unrecognized is a storage or internal failure.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, governor.ErrAccountSuspended):
		writeError(w, http.StatusForbidden, "ACCOUNT_SUSPENDED", err.Error())
	case errors.Is(err, governor.ErrTooManyDevices):
		writeError(w, http.StatusForbidden, "TOO_MANY_DEVICES", "all sessions revoked, log in again on one device")
	case errors.Is(err, accountservice.ErrInvalidCredentials), errors.Is(err, governor.ErrAccountNotFound):
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password")
	case errors.Is(err, accountservice.ErrSessionNotFound):
		writeError(w, http.StatusUnauthorized, "SESSION_EXPIRED", "session not found or inactive")
	case errors.Is(err, accountservice.ErrEmailAlreadyRegistered):
		writeError(w, http.StatusConflict, "EMAIL_TAKEN", err.Error())
	default:
		log.Printf("server: internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "STORAGE_ERROR", "internal error")
	}
}
