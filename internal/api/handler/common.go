package handler

import (
	"encoding/json"
	"net/http"

	"github.com/humanproof/humanproof/internal/domain"
)

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondError writes a JSON error body in the API's error shape.
func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, &domain.APIError{
		Success: false,
		Code:    code,
		Message: message,
	})
}

// respondInternal returns a generic 500 without leaking detail to clients.
func respondInternal(w http.ResponseWriter) {
	respondError(w, http.StatusInternalServerError, domain.ErrCodeInternal, "internal server error")
}

// decodeJSON decodes JSON from request body.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.ErrInvalidInput
	}
	return nil
}
