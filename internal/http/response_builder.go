package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"budget/internal/core"
	applog "budget/internal/log"
)

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// statusFor maps domain errors to HTTP status codes. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func errorTypeFor(err error) string {
	var storageErr *core.StorageError
	switch {
	case errors.Is(err, core.ErrValidation):
		return applog.ErrorTypeValidation
	case errors.Is(err, core.ErrNotFound):
		return applog.ErrorTypeNotFound
	case errors.Is(err, core.ErrInsufficientFunds):
		return applog.ErrorTypeInsufficientFunds
	case errors.As(err, &storageErr):
		return applog.ErrorTypeDatabase
	default:
		return applog.ErrorTypeInternal
	}
}

// writeError renders err as {"error": "..."}. Internal errors are logged with
// their cause and answered with an opaque message.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	msg := err.Error()

	ctx := r.Context()
	logger := applog.FromContext(ctx)
	fields := applog.NewFields().WithErrorType(errorTypeFor(err))
	if status == http.StatusInternalServerError {
		applog.NewStructuredLogger(logger).LogError(ctx, "Request failed", err, op, fields)
		msg = "internal server error"
	} else {
		logger.LogFields(ctx, slog.LevelDebug, "Request rejected", fields.WithOperation(op).WithError(err))
	}
	writeJSON(w, status, errorResponse{Error: msg})
}
