package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/akulagin/mlservice/internal/apperr"
)

type APIError struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

func DecodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, code, msg string, details interface{}) {
	WriteJSON(w, status, APIError{
		Error:   msg,
		Code:    code,
		Details: details,
	})
}

// WriteAppError maps the service error taxonomy onto HTTP statuses.
func WriteAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrConflict):
		WriteError(w, http.StatusConflict, "conflict", err.Error(), nil)
	case errors.Is(err, apperr.ErrUnauthorized):
		WriteError(w, http.StatusUnauthorized, "unauthorized", err.Error(), nil)
	case errors.Is(err, apperr.ErrInsufficientCredit):
		WriteError(w, http.StatusPaymentRequired, "insufficient_credit", err.Error(), nil)
	case errors.Is(err, apperr.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, apperr.ErrValidation):
		WriteError(w, http.StatusUnprocessableEntity, "validation_error", err.Error(), nil)
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "internal error", nil)
	}
}
