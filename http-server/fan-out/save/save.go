package save

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"mes-staging/http-server/response"
	"mes-staging/internal/service/allocate"
)

type FanOutProvider interface {
	FanOut(ctx context.Context, req allocate.Request) (allocate.Result, error)
}

// SaveFanOut allocates the picked pool across the orders and commits the
// movements in one ledger transaction.
func SaveFanOut(log *slog.Logger, fanOut FanOutProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.fan-out.SaveFanOut"

		var req allocate.Request
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			response.BadRequest(w, r, "invalid JSON body")
			return
		}

		res, err := fanOut.FanOut(r.Context(), req)
		if err != nil {
			response.Error(w, r, log, op, err)
			return
		}

		log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		).Info("fan-out committed",
			slog.Int("orders", len(res.Plan.Sequence)),
			slog.Int("movements", len(res.Movements)),
		)

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, res)
	}
}
