package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rhcare/clinic-api/internal/domain"
	"github.com/rhcare/clinic-api/pkg/logger"
)

// ErrorResponse represents a structured JSON error response
type ErrorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code,omitempty"`
	Fields map[string]string `json:"errors,omitempty"`
}

// Common error codes
const (
	CodeInvalidInput  = "INVALID_INPUT"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeForbidden     = "FORBIDDEN"
	CodeNotFound      = "NOT_FOUND"
	CodeConflict      = "CONFLICT"
	CodeInternalError = "INTERNAL_ERROR"
	CodeInvalidToken  = "INVALID_TOKEN"
)

func JSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// WriteError writes a structured JSON error response
func WriteError(w http.ResponseWriter, statusCode int, message string, code string) {
	JSON(w, statusCode, ErrorResponse{Error: message, Code: code})
}

// ValidationFailed writes a 422 with field-level messages.
func ValidationFailed(w http.ResponseWriter, v *domain.ValidationError) {
	JSON(w, http.StatusUnprocessableEntity, ErrorResponse{
		Error:  "validation failed",
		Code:   CodeInvalidInput,
		Fields: v.Fields,
	})
}

// Error maps domain errors to their HTTP representation. Unexpected errors
// are logged and surfaced as a generic 500.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	var v *domain.ValidationError
	if errors.As(err, &v) {
		ValidationFailed(w, v)
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrInvalidCode),
		errors.Is(err, domain.ErrInvalidSession):
		WriteError(w, http.StatusUnauthorized, err.Error(), CodeUnauthorized)
	case errors.Is(err, domain.ErrAccountInactive),
		errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrAdminExists):
		WriteError(w, http.StatusForbidden, err.Error(), CodeForbidden)
	case errors.Is(err, domain.ErrNotFound):
		WriteError(w, http.StatusNotFound, err.Error(), CodeNotFound)
	case errors.Is(err, domain.ErrDuplicateInvitation),
		errors.Is(err, domain.ErrEmailTaken),
		errors.Is(err, domain.ErrLastAdmin):
		WriteError(w, http.StatusConflict, err.Error(), CodeConflict)
	case errors.Is(err, domain.ErrInvalidOrExpiredToken):
		WriteError(w, http.StatusBadRequest, err.Error(), CodeInvalidToken)
	case errors.Is(err, domain.ErrPhoneMissing):
		WriteError(w, http.StatusBadRequest, err.Error(), CodeInvalidInput)
	default:
		logger.ErrorContext(r.Context(), "Unhandled error", "error", err, "path", r.URL.Path)
		WriteError(w, http.StatusInternalServerError, "internal error", CodeInternalError)
	}
}

// Convenience functions for common errors
func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message, CodeInvalidInput)
}

func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message, CodeUnauthorized)
}

func Forbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, message, CodeForbidden)
}

func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message, CodeNotFound)
}

func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message, CodeInternalError)
}
