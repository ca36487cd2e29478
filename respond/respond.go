// Package respond centralizes how handlers write JSON responses, so every endpoint
// produces the same content type, encoding and error body shape.
package respond

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/user/postboard-go/apperror"
)

// JSON serializes data and writes it with the given status.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Avoid writing nil, which would produce a "null" response body.
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already sent; all that is left is to record the failure.
		slog.Error("failed to encode response", "error", err)
	}
}

// Message writes a `{"message": ...}` confirmation body with status 200.
func Message(w http.ResponseWriter, message string) {
	JSON(w, http.StatusOK, apperror.MessageResponse{Message: message})
}

// Error converts err into the standard `{"error": ...}` body. Errors that are not
// already *apperror.AppError are reported as internal errors without leaking their text.
// Server-side failures are logged together with the request id.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperror.FromError(err)
	if !ok {
		appErr = apperror.NewInternalError("an unexpected error occurred", err)
	}

	status := appErr.StatusCode()
	attrs := []any{
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"kind", appErr.Type.String(),
		"request_id", middleware.GetReqID(r.Context()),
		"error", appErr.Error(),
	}
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", attrs...)
	} else {
		slog.DebugContext(r.Context(), "request rejected", attrs...)
	}

	JSON(w, status, appErr.ToResponse())
}

// DecodeJSON reads the request body into dst, rejecting bodies that are not a single
// JSON value and a bare null. The failure is a BadRequestError ready to pass to Error.
func DecodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return apperror.NewBadRequestError("invalid request body: "+err.Error(), err)
	}
	if dec.More() {
		return apperror.NewBadRequestError("invalid request body: unexpected data after JSON value", nil)
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return apperror.NewBadRequestError("invalid request body: expected a JSON object", nil)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return apperror.NewBadRequestError("invalid request body: "+err.Error(), err)
	}
	return nil
}

// IDParam reads the `{id}` URL parameter as a UUID. Identifiers that are not UUIDs
// cannot match any row, so they are reported as NotFound with notFoundMessage.
func IDParam(r *http.Request, notFoundMessage string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, apperror.NewNotFoundError(notFoundMessage, err)
	}
	return id, nil
}
