package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"miniapp_profile/internal/telegram"
)

// ErrorCode represents different error types
type ErrorCode string

const (
	ErrCodeInvalidRequest     ErrorCode = "INVALID_REQUEST"
	ErrCodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeNicknameTaken      ErrorCode = "NICKNAME_TAKEN"
	ErrCodeUpstreamError      ErrorCode = "UPSTREAM_ERROR"
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeInternalError      ErrorCode = "INTERNAL_ERROR"
)

// APIError is the structured error body every failed request carries.
type APIError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// ErrorResponse represents the complete error response
type ErrorResponse struct {
	Error   *APIError `json:"error"`
	Success bool      `json:"success"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code ErrorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error: &APIError{
			Code:      code,
			Message:   message,
			Timestamp: time.Now(),
			RequestID: middleware.GetReqID(r.Context()),
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// authFailureReason maps a validation failure to a short metrics label.
// Every kind is client input; callers respond 401 without detail beyond the
// kind, and the computed hash or signing string never leaves the validator.
func authFailureReason(err error) string {
	switch {
	case errors.Is(err, telegram.ErrMalformedPayload):
		return "malformed_payload"
	case errors.Is(err, telegram.ErrMissingHash):
		return "missing_hash"
	case errors.Is(err, telegram.ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, telegram.ErrMissingAuthDate):
		return "missing_auth_date"
	case errors.Is(err, telegram.ErrInvalidAuthDate):
		return "invalid_auth_date"
	case errors.Is(err, telegram.ErrExpired):
		return "expired"
	case errors.Is(err, telegram.ErrMissingUser):
		return "missing_user"
	case errors.Is(err, telegram.ErrMalformedUser):
		return "malformed_user"
	case errors.Is(err, telegram.ErrMissingUserID):
		return "missing_user_id"
	default:
		return "unknown"
	}
}
