package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/bdmotors/internal/inventory"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("error encoding response", "error", err)
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// serviceError maps an inventory error to a response. Unexpected errors are
// logged and reported as failed without detail.
func serviceError(w http.ResponseWriter, r *http.Request, err error, failure string) {
	switch {
	case errors.Is(err, inventory.ErrInvalidID):
		jsonError(w, http.StatusBadRequest, "invalid product id")
	case errors.Is(err, inventory.ErrNotFound):
		jsonError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, inventory.ErrInvalidInput):
		jsonError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, inventory.ErrQuantityConflict):
		jsonError(w, http.StatusConflict, err.Error())
	default:
		slog.Error(failure, "error", err, "path", r.URL.Path, "request_id", RequestID(r.Context()))
		jsonError(w, http.StatusInternalServerError, failure)
	}
}
