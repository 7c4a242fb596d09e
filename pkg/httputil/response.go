package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	apperrors "github.com/Arifulit/job-portal-server/pkg/errors"
	"github.com/Arifulit/job-portal-server/pkg/logger"
	"github.com/Arifulit/job-portal-server/pkg/validator"
)

// Response is the JSON envelope returned by every endpoint.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

const internalErrorMessage = "An unexpected error occurred"

// WriteJSON writes v as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteSuccess writes a success envelope.
func WriteSuccess(w http.ResponseWriter, status int, message string, data any) {
	WriteJSON(w, status, Response{Success: true, Message: message, Data: data})
}

// WriteFailure writes a failure envelope with an explicit status and message.
func WriteFailure(w http.ResponseWriter, status int, message string, errs any) {
	WriteJSON(w, status, Response{Success: false, Message: message, Errors: errs})
}

// ErrorWriter maps errors to failure envelopes. Classified application errors
// keep their message; anything else is reported as an internal error whose
// text is only exposed when development is true.
type ErrorWriter struct {
	logger      *slog.Logger
	development bool
}

// NewErrorWriter creates an ErrorWriter. development controls whether the raw
// text of unclassified errors is returned to the client.
func NewErrorWriter(logger *slog.Logger, development bool) *ErrorWriter {
	return &ErrorWriter{logger: logger, development: development}
}

// Write writes err as a failure envelope. It prefers the request-scoped
// logger stored by the RequestLogger middleware over the fallback.
func (ew *ErrorWriter) Write(w http.ResponseWriter, r *http.Request, err error) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && ew.logger != nil {
		l = ew.logger
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Status < http.StatusInternalServerError {
		if appErr.Status == http.StatusUnauthorized && appErr.Err != nil {
			l.WarnContext(r.Context(), "request not authenticated",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("cause", appErr.Err.Error()),
			)
		}
		WriteFailure(w, appErr.Status, appErr.Message, appErr.Details)
		return
	}

	status := apperrors.HTTPStatus(err)
	if status < http.StatusInternalServerError {
		// Bare sentinel wrapped by fmt.Errorf.
		WriteFailure(w, status, http.StatusText(status), nil)
		return
	}

	l.ErrorContext(r.Context(), "internal error",
		slog.String("error", err.Error()),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("correlation_id", logger.CorrelationIDFromContext(r.Context())),
	)

	message := internalErrorMessage
	if ew.development {
		message = err.Error()
	}
	WriteFailure(w, http.StatusInternalServerError, message, nil)
}

// WriteError writes err using production error hiding.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	NewErrorWriter(fallback, false).Write(w, r, err)
}

// WriteValidationError writes a 400 envelope for a request validation failure,
// listing field-level errors when available.
func WriteValidationError(w http.ResponseWriter, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteFailure(w, http.StatusBadRequest, "Validation failed", valErr.Fields())
		return
	}

	WriteFailure(w, http.StatusBadRequest, err.Error(), nil)
}

// ParseUUID validates that param is a UUID. On failure it writes a 400
// envelope and returns false, signaling the caller to return early.
func ParseUUID(w http.ResponseWriter, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(param)
	if err != nil {
		WriteFailure(w, http.StatusBadRequest, "Invalid id: "+param, nil)
		return uuid.Nil, false
	}
	return id, true
}
