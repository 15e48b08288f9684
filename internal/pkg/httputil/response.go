package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/ignite/lead-verifier/internal/pkg/logger"
)

// ErrorResponse is the standard error envelope for all API errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("httputil: JSON encode failed", "error", err)
	}
}

// OK writes a 200 response with the given data.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, ErrorResponse{Error: message, Code: code})
}

// InternalError writes a 500. The real error is logged; the client gets a
// generic message.
func InternalError(w http.ResponseWriter, code string, err error) {
	logger.Error("httputil: internal error", "code", code, "error", err)
	Error(w, http.StatusInternalServerError, code, "internal server error")
}
