package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/comdesk/sessiond/internal/common"
)

// APIError is the structured error envelope returned to clients.
type APIError struct {
	Code    string `json:"error_code"`
	Message string `json:"error_message"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, APIError{Code: code, Message: message})
}

// All renewal failures show the same user-facing message; the code still
// differs so client logs stay diagnosable.
const reauthMessage = "Session is no longer valid, please log in again"

// writeServiceError maps service sentinels to HTTP responses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrUserExists):
		writeError(w, http.StatusConflict, "USER_EXISTS", "User with this username already exists")
	case errors.Is(err, common.ErrUserNotFound), errors.Is(err, common.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password")
	case errors.Is(err, common.ErrTokenExpired):
		writeError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", reauthMessage)
	case errors.Is(err, common.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, "INVALID_TOKEN", reauthMessage)
	case errors.Is(err, common.ErrSessionNotFound):
		writeError(w, http.StatusUnauthorized, "SESSION_NOT_FOUND", reauthMessage)
	case errors.Is(err, common.ErrRefreshTokenMismatch):
		writeError(w, http.StatusUnauthorized, "REFRESH_TOKEN_MISMATCH", reauthMessage)
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}
