package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/zombor/expense-reports/internal/apperr"
	"github.com/zombor/expense-reports/internal/scanning"
)

// writeJSON writes v with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError maps an error kind to its HTTP status. Unrecognized errors
// are logged and answered with a generic 500.
func writeError(w http.ResponseWriter, err error) {
	var extraction *scanning.ExtractionError
	switch {
	case errors.As(err, &extraction):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error": extraction.Error(),
			"raw":   extraction.Raw,
		})
	case errors.Is(err, apperr.ErrValidation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, apperr.ErrUnsupportedFormat):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, apperr.ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, apperr.ErrNotReady):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error(), "status": "pending"})
	case errors.Is(err, apperr.ErrReportFailed):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error(), "status": "failed"})
	default:
		slog.Error("Unhandled request error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
}
