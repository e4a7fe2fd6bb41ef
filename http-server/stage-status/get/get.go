package get

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"mes-staging/http-server/response"
	"mes-staging/internal/service/requirement"
)

type StageStatusProvider interface {
	StatusByID(ctx context.Context, orderID string) (requirement.StageStatus, error)
	Queue(ctx context.Context, line string) ([]requirement.QueueEntry, error)
}

type StatusResponse struct {
	OrderID string                  `json:"order_id"`
	Status  requirement.StageStatus `json:"status"`
}

type QueueResponse struct {
	Line   string                   `json:"line"`
	Orders []requirement.QueueEntry `json:"orders"`
}

func GetOrderStatus(log *slog.Logger, status StageStatusProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.stage-status.GetOrderStatus"

		id := chi.URLParam(r, "id")
		if id == "" {
			response.BadRequest(w, r, "missing order id")
			return
		}

		st, err := status.StatusByID(r.Context(), id)
		if err != nil {
			response.Error(w, r, log, op, err)
			return
		}

		render.JSON(w, r, StatusResponse{OrderID: id, Status: st})
	}
}

func GetLineQueue(log *slog.Logger, status StageStatusProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.stage-status.GetLineQueue"

		line := chi.URLParam(r, "line")
		if line == "" {
			response.BadRequest(w, r, "missing line")
			return
		}

		entries, err := status.Queue(r.Context(), line)
		if err != nil {
			response.Error(w, r, log, op, err)
			return
		}
		if entries == nil {
			entries = []requirement.QueueEntry{}
		}

		log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		).Debug("line queue", slog.String("line", line), slog.Int("orders", len(entries)))

		render.JSON(w, r, QueueResponse{Line: line, Orders: entries})
	}
}
