package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/adfharrison1/go-docrepo/pkg/response"
	"github.com/adfharrison1/go-docrepo/pkg/storage"
)

// ErrorResponse represents a standard JSON error response
type ErrorResponse struct {
	Error   string        `json:"error"`
	Message string        `json:"message"`
	Code    int           `json:"code"`
	Kind    response.Kind `json:"kind,omitempty"`
}

// WriteJSONError writes a JSON error response with the given status code and message
func WriteJSONError(w http.ResponseWriter, statusCode int, message string) {
	writeError(w, statusCode, message, "")
}

func writeError(w http.ResponseWriter, statusCode int, message string, kind response.Kind) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
		Kind:    kind,
	}

	json.NewEncoder(w).Encode(resp)
}

// statusFor maps a repository error to an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrInvalidSession):
		return http.StatusUnauthorized
	case errors.Is(err, storage.ErrPermissionDenied):
		return http.StatusForbidden
	}
	switch response.KindOf(err) {
	case response.KindNotFound:
		return http.StatusNotFound
	case response.KindNotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// writeRepositoryError writes the envelope of a failed repository operation
func writeRepositoryError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error(), response.KindOf(err))
}

func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}
