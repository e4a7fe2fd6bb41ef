package preview

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"mes-staging/http-server/response"
	"mes-staging/internal/service/allocate"
)

type FanOutPreviewer interface {
	Preview(ctx context.Context, req allocate.Request) (allocate.Result, error)
}

// PreviewFanOut returns the allocation plan for a picked pool without
// touching the ledger.
func PreviewFanOut(log *slog.Logger, fanOut FanOutPreviewer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.fan-out.PreviewFanOut"

		var req allocate.Request
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			response.BadRequest(w, r, "invalid JSON body")
			return
		}

		res, err := fanOut.Preview(r.Context(), req)
		if err != nil {
			response.Error(w, r, log, op, err)
			return
		}

		render.JSON(w, r, res)
	}
}
