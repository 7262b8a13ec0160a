package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rentease/rentledger/src/services"
)

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}

// decodeJSON decodes the request body into v.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// parseUUID extracts and validates a UUID path parameter.
func parseUUID(w http.ResponseWriter, r *http.Request, paramName string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, paramName)
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "invalid UUID: "+raw)
		return uuid.Nil, false
	}
	return id, true
}

// writeServiceError maps the ledger's typed failures to HTTP responses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrDuplicateBill):
		writeError(w, http.StatusConflict, "DUPLICATE_BILL", err.Error())
	case errors.Is(err, services.ErrBillNotFound):
		writeError(w, http.StatusNotFound, "BILL_NOT_FOUND", err.Error())
	case errors.Is(err, services.ErrPropertyNotFound):
		writeError(w, http.StatusNotFound, "PROPERTY_NOT_FOUND", err.Error())
	case errors.Is(err, services.ErrTenantMismatch):
		writeError(w, http.StatusForbidden, "TENANT_MISMATCH", err.Error())
	case errors.Is(err, services.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "INVALID_AMOUNT", err.Error())
	case errors.Is(err, services.ErrConcurrencyConflict):
		writeError(w, http.StatusConflict, "CONFLICT_RETRY", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}
