package save

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"mes-staging/http-server/response"
	"mes-staging/internal/service/closure"
)

type ClosureProvider interface {
	Close(ctx context.Context, req closure.Request) (closure.Result, error)
}

// SaveClosure books the aggregate good, reject and packaging quantities of a
// shared production run against its orders.
func SaveClosure(log *slog.Logger, closer ClosureProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.closure.SaveClosure"

		var req closure.Request
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			response.BadRequest(w, r, "invalid JSON body")
			return
		}

		res, err := closer.Close(r.Context(), req)
		if err != nil {
			response.Error(w, r, log, op, err)
			return
		}

		log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		).Info("orders closed", slog.Int("orders", len(res.Shares)), slog.String("batch", res.Batch))

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, res)
	}
}
