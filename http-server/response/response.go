package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"mes-staging/internal/storage"
)

type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// Status maps a service error to an HTTP status and a stable code.
func Status(err error) (int, string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, storage.ErrInvalidInput):
		return http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, storage.ErrNoTargetWarehouse):
		return http.StatusUnprocessableEntity, "NO_TARGET_WAREHOUSE"
	case errors.Is(err, storage.ErrLedger):
		return http.StatusBadGateway, "LEDGER_ERROR"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

// Error logs err under op and writes it as JSON. Server-side failures are
// logged at error level and hide the message from the client.
func Error(w http.ResponseWriter, r *http.Request, log *slog.Logger, op string, err error) {
	status, code := Status(err)
	reqID := middleware.GetReqID(r.Context())

	l := log.With(
		slog.String("op", op),
		slog.String("request_id", reqID),
		slog.String("error", err.Error()),
	)

	msg := err.Error()
	if status >= http.StatusInternalServerError {
		l.Error("request failed", slog.Int("status", status))
		msg = "internal server error"
		if status == http.StatusBadGateway {
			msg = "stock ledger unavailable"
		}
	} else {
		l.Warn("request rejected", slog.Int("status", status))
	}

	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: msg, Code: code, RequestID: reqID})
}

// BadRequest is for malformed requests that never reached a service.
func BadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ErrorResponse{Error: msg, Code: "BAD_REQUEST", RequestID: middleware.GetReqID(r.Context())})
}
