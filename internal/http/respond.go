package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fjod/go_foodcart/internal/domain"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError maps the domain error taxonomy onto HTTP status codes.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var httpStatus int
	var code string

	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		httpStatus = http.StatusBadRequest
		code = "invalid_argument"
	case errors.Is(err, domain.ErrNotFound):
		httpStatus = http.StatusNotFound
		code = "not_found"
	case errors.Is(err, domain.ErrForbidden):
		httpStatus = http.StatusForbidden
		code = "permission_denied"
	case errors.Is(err, domain.ErrConflict):
		httpStatus = http.StatusConflict
		code = "conflict"
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
		return
	default:
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	respondError(w, httpStatus, code, err.Error())
}
