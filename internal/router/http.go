package router

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/dilbagh/theunfairwheel/internal/apperr"
)

// APIError is the shape every error response takes, per spec §7:
// "each error returns a short human-readable message."
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
}

func (e *APIError) Error() string { return e.Message }

func apiError(status int, message string) *APIError {
	return &APIError{Status: status, Message: message}
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func respondCreated(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusCreated, data)
}

func respondOK(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusOK, data)
}

func respondAccepted(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusAccepted, data)
}

func respondNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// respondError maps err to an HTTP status per spec §7's error taxonomy
// and writes it as an APIError.
func respondError(w http.ResponseWriter, err error) {
	respondJSON(w, toAPIError(err).Status, toAPIError(err))
}

func toAPIError(err error) *APIError {
	var appErr *apperr.Error
	if stderrors.As(err, &appErr) {
		switch appErr.Kind {
		case apperr.ErrNotFound:
			return apiError(http.StatusNotFound, appErr.Message)
		case apperr.ErrValidation, apperr.ErrInvalidInput:
			return apiError(http.StatusBadRequest, appErr.Message)
		case apperr.ErrConflict:
			return apiError(http.StatusConflict, appErr.Message)
		case apperr.ErrAuth:
			return apiError(http.StatusUnauthorized, appErr.Message)
		case apperr.ErrAccess:
			return apiError(http.StatusForbidden, appErr.Message)
		default:
			return apiError(http.StatusInternalServerError, "internal server error")
		}
	}
	return apiError(http.StatusInternalServerError, "internal server error")
}

// decodeJSON decodes JSON from the request body into target.
func decodeJSON(r *http.Request, target interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		if err == io.EOF {
			return apperr.Validation("request body is empty")
		}
		return apperr.Validation("invalid JSON: " + err.Error())
	}
	return nil
}
