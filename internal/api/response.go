package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/birokt/smittevern/internal/identity"
)

// Error codes carried in ErrorResponse.Code
const (
	CodeBadRequest      = "bad_request"
	CodeUnauthenticated = "unauthenticated"
	CodeForbidden       = "forbidden"
	CodeNotFound        = "not_found"
	CodeConflict        = "conflict"
	CodeBodyTooLarge    = "body_too_large"
	CodeInvalidRequest  = "invalid_request"
	CodeValidation      = "validation_error"
	CodeInternal        = "internal_error"
)

// ErrorResponse is the error envelope returned by every endpoint. Error is
// shown to the user as is; Code is what clients branch on.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// RespondJSON writes data as a JSON response with the given status code.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			zap.L().Warn("failed to encode JSON response", zap.Int("status", status), zap.Error(err))
		}
	}
}

// RespondError writes an error response with the default code for status.
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondErrorWithCode(w, status, codeForStatus(status), message)
}

// RespondErrorWithCode writes an error response with an explicit code.
func RespondErrorWithCode(w http.ResponseWriter, status int, code, message string) {
	RespondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// RespondAuthError writes the 401 or 403 for an identity error and reports
// whether it did. The message is the sentinel's text, which the web client
// shows verbatim.
func RespondAuthError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, identity.ErrNotAuthenticated):
		w.Header().Set("WWW-Authenticate", `Bearer realm="smittevern"`)
		RespondErrorWithCode(w, http.StatusUnauthorized, CodeUnauthenticated, identity.ErrNotAuthenticated.Error())
	case errors.Is(err, identity.ErrForbidden):
		RespondErrorWithCode(w, http.StatusForbidden, CodeForbidden, identity.ErrForbidden.Error())
	default:
		return false
	}
	return true
}

// RespondDecodeError writes the response for a DecodeJSON failure
func RespondDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrBodyTooLarge) {
		RespondError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	RespondError(w, http.StatusBadRequest, err.Error())
}

// RespondValidationError writes field-level validation errors as a 422 response.
func RespondValidationError(w http.ResponseWriter, fieldErrors map[string]string) {
	RespondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
		Error:   "Validation failed",
		Code:    CodeValidation,
		Details: fieldErrors,
	})
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeBadRequest
	case http.StatusUnauthorized:
		return CodeUnauthenticated
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	case http.StatusRequestEntityTooLarge:
		return CodeBodyTooLarge
	case http.StatusUnprocessableEntity:
		return CodeInvalidRequest
	case http.StatusInternalServerError:
		return CodeInternal
	}
	return ""
}
