package get

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"mes-staging/http-server/response"
	"mes-staging/internal/storage"
)

type RecentTransfersProvider interface {
	Recent(ctx context.Context, line string, window time.Duration) ([]storage.MovementRecord, error)
}

type TransfersResponse struct {
	Line      string                   `json:"line"`
	Hours     float64                  `json:"hours"`
	Transfers []storage.MovementRecord `json:"transfers"`
}

// GetRecentTransfers serves GET /lines/{line}/transfers?hours=N, default 24.
func GetRecentTransfers(log *slog.Logger, transfers RecentTransfersProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.transfers.GetRecentTransfers"

		line := chi.URLParam(r, "line")
		if line == "" {
			response.BadRequest(w, r, "missing line")
			return
		}

		hours := 24.0
		if raw := r.URL.Query().Get("hours"); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
				response.BadRequest(w, r, "hours must be a positive number")
				return
			}
			hours = v
		}

		records, err := transfers.Recent(r.Context(), line, time.Duration(hours*float64(time.Hour)))
		if err != nil {
			response.Error(w, r, log, op, err)
			return
		}
		if records == nil {
			records = []storage.MovementRecord{}
		}

		render.JSON(w, r, TransfersResponse{Line: line, Hours: hours, Transfers: records})
	}
}
