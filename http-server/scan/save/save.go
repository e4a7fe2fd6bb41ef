package save

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"mes-staging/http-server/response"
	"mes-staging/internal/service/intake"
)

type ScanProvider interface {
	Scan(ctx context.Context, req intake.Request) (intake.Result, error)
}

// SaveScan books one scanned label. A repeated scan inside the duplicate
// window answers 200 with duplicate set and books nothing.
func SaveScan(log *slog.Logger, scanner ScanProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.scan.SaveScan"

		var req intake.Request
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			response.BadRequest(w, r, "invalid JSON body")
			return
		}

		res, err := scanner.Scan(r.Context(), req)
		if err != nil {
			response.Error(w, r, log, op, err)
			return
		}

		if res.Accepted {
			render.Status(r, http.StatusCreated)
		}
		render.JSON(w, r, res)
	}
}
