package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/velmart/catalog-search/pkg/errors"
	"github.com/velmart/catalog-search/pkg/logger"
	"github.com/velmart/catalog-search/pkg/validator"
)

// Response is the JSON envelope used by every endpoint: a success flag plus
// either a data payload or an error description. Degraded-but-answered
// responses (fallback search) still set Success to true; only a terminal
// failure clears it.
type Response struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// OK builds a successful envelope around data.
func OK(data any) Response {
	return Response{Success: true, Data: data}
}

// Fail builds an error envelope. Data may still carry a degraded payload.
func Fail(code, message string, data any) Response {
	return Response{Success: false, Error: message, ErrorCode: code, Data: data}
}

// WriteJSON writes v as JSON with the given status code. Encoding failures
// cannot be reported to the client since headers are already out.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err onto the envelope and status code. It prefers the
// request-scoped logger from context over the fallback logger.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() {
		l = fallback
	}

	requestID := logger.CorrelationIDFromContext(r.Context())

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		resp := Fail(appErr.Code, appErr.Message, nil)
		resp.RequestID = requestID
		WriteJSON(w, appErr.Status, resp)
		return
	}

	status := apperrors.HTTPStatus(err)
	code := "INTERNAL_ERROR"
	message := "an internal error occurred"

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		code, message = "NOT_FOUND", "resource not found"
	case errors.Is(err, apperrors.ErrInvalidInput):
		code, message = "INVALID_INPUT", err.Error()
	case errors.Is(err, apperrors.ErrServiceUnavail), errors.Is(err, apperrors.ErrEngineDown):
		code, message = "SERVICE_UNAVAILABLE", "search is temporarily unavailable"
	}

	if status == http.StatusInternalServerError {
		l.ErrorContext(r.Context(), "internal error",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	resp := Fail(code, message, nil)
	resp.RequestID = requestID
	WriteJSON(w, status, resp)
}

// WriteValidationError writes a 400 response for request body validation
// failures, with field-level details when available.
func WriteValidationError(w http.ResponseWriter, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, Response{
			Success:   false,
			Error:     valErr.Error(),
			ErrorCode: "VALIDATION_ERROR",
			Data:      map[string]any{"fields": valErr.Fields()},
		})
		return
	}
	WriteJSON(w, http.StatusBadRequest, Fail("INVALID_INPUT", err.Error(), nil))
}
