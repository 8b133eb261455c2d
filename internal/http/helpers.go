package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"tesoreria/internal/core"
)

// maxJSONBody caps JSON request bodies; attachment uploads have their own
// larger limits.
const maxJSONBody = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// respondError maps domain errors onto status codes: validation failures are
// 422 with the offending field, missing rows 404, capability failures 403,
// upstream failures 502, everything else 500.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *core.ValidationError
	var extErr *core.ExternalServiceError

	switch {
	case errors.As(err, &vErr):
		respondJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: vErr.Message, Field: vErr.Field})
	case errors.Is(err, core.ErrNotFound):
		respondJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, core.ErrPermissionDenied):
		respondJSON(w, http.StatusForbidden, errorResponse{Error: "permission denied"})
	case errors.As(err, &extErr):
		slog.ErrorContext(r.Context(), "External service failure",
			"service", extErr.Service, "error", err, "path", r.URL.Path)
		respondJSON(w, http.StatusBadGateway, errorResponse{Error: fmt.Sprintf("%s unavailable", extErr.Service)})
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"error", err, "method", r.Method, "path", r.URL.Path)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// decodeJSON reads a JSON body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &core.ValidationError{Field: "body", Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return nil
}

// parseDate parses a YYYY-MM-DD date.
func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, &core.ValidationError{Field: field, Message: "must be a date in YYYY-MM-DD format"}
	}
	return t, nil
}

// parseAmount parses a decimal amount string into Money.
func parseAmount(field, value string) (core.Money, error) {
	cents, err := core.ParseDecimalToCents(value)
	if err != nil {
		return core.Money{}, &core.ValidationError{Field: field, Message: err.Error()}
	}
	return core.Money{Cents: cents}, nil
}
