package http

import (
	"errors"
	"io"
	"net/http"

	"vehicle-risk-backend/internal/fxrate"
	"vehicle-risk-backend/internal/logger"
	"vehicle-risk-backend/internal/pricing"
	"vehicle-risk-backend/internal/repository"
	"vehicle-risk-backend/internal/service"

	"github.com/goccy/go-json"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps service and repository errors onto status codes.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, pricing.ErrUnknownPaymentMethod):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, fxrate.ErrUpstream):
		logger.WarnContext(r.Context(), "Rate source unavailable", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusBadGateway, "rate source unavailable")
	default:
		logger.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON reads a bounded JSON body into v. It writes the 400 itself and
// reports whether the handler may continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "request body is required")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
