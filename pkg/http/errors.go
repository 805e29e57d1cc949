package http

import (
	"encoding/json"
	"net/http"
	"time"
)

// ErrorResponse is the standard API error body. The optional fields carry the
// login-security payloads: remaining attempts on a 401, lock expiry on a 429.
type ErrorResponse struct {
	Error             string `json:"error"`
	Message           string `json:"message"`
	RemainingAttempts *int   `json:"remaining_attempts,omitempty"`
	LockedUntil       string `json:"locked_until,omitempty"`
	RemainingTime     int    `json:"remaining_time,omitempty"`
}

// WriteError writes a JSON error response with the given status code
func WriteError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	writeJSON(w, statusCode, ErrorResponse{Error: errorCode, Message: message})
}

// WriteInvalidCredentials writes a 401 carrying the remaining-attempt count.
// The message is identical whether or not the account exists.
func WriteInvalidCredentials(w http.ResponseWriter, remainingAttempts int) {
	writeJSON(w, http.StatusUnauthorized, ErrorResponse{
		Error:             "invalid_credentials",
		Message:           "Invalid identifier or password",
		RemainingAttempts: &remainingAttempts,
	})
}

// WriteLocked writes a 429 with the lock expiry and seconds until retry.
func WriteLocked(w http.ResponseWriter, until time.Time, remainingSeconds int) {
	writeJSON(w, http.StatusTooManyRequests, ErrorResponse{
		Error:         "account_locked",
		Message:       "Too many failed login attempts. Please try again later.",
		LockedUntil:   until.UTC().Format(time.RFC3339),
		RemainingTime: remainingSeconds,
	})
}

func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, "unauthorized", message)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message)
}

func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded", message)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message)
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
