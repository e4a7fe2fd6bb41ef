package get

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"mes-staging/http-server/response"
	"mes-staging/internal/storage"
)

type OrderProvider interface {
	GetOrder(ctx context.Context, id string) (*storage.Order, error)
}

type ProgressProvider interface {
	Progress(ctx context.Context, order storage.Order) (storage.Progress, error)
}

func GetProgress(log *slog.Logger, orders OrderProvider, progress ProgressProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.progress.GetProgress"

		id := chi.URLParam(r, "id")

		order, err := orders.GetOrder(r.Context(), id)
		if err != nil {
			response.Error(w, r, log, op, err)
			return
		}

		p, err := progress.Progress(r.Context(), *order)
		if err != nil {
			response.Error(w, r, log, op, err)
			return
		}

		render.JSON(w, r, p)
	}
}
