package get

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"mes-staging/http-server/response"
	"mes-staging/internal/service/requirement"
	"mes-staging/internal/storage"
)

type OrderProvider interface {
	GetOrder(ctx context.Context, id string) (*storage.Order, error)
}

type RemainingProvider interface {
	Remaining(ctx context.Context, order storage.Order, opts requirement.Options) (requirement.Remaining, error)
}

// GetRemaining returns what still has to reach the order's staging warehouse.
// ?leaf_only=false also lists sub-assemblies instead of exploding them.
func GetRemaining(log *slog.Logger, orders OrderProvider, calc RemainingProvider, defaults requirement.Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.remaining.GetRemaining"

		id := chi.URLParam(r, "id")
		if id == "" {
			response.BadRequest(w, r, "missing order id")
			return
		}

		opts := defaults
		if v := r.URL.Query().Get("leaf_only"); v != "" {
			leaf, err := strconv.ParseBool(v)
			if err != nil {
				response.BadRequest(w, r, "invalid leaf_only")
				return
			}
			opts = requirement.Options{LeafOnly: leaf, Exploded: leaf}
		}

		order, err := orders.GetOrder(r.Context(), id)
		if err != nil {
			response.Error(w, r, log, op, err)
			return
		}

		rem, err := calc.Remaining(r.Context(), *order, opts)
		if err != nil {
			response.Error(w, r, log, op, err)
			return
		}

		render.JSON(w, r, rem)
	}
}
