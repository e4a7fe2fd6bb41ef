package pick_sheet

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"mes-staging/http-server/response"
	"mes-staging/internal/service/allocate"
)

type PickSheetGenerator interface {
	GeneratePickSheet(ctx context.Context, req allocate.Request) ([]byte, error)
}

func GeneratePickSheet(log *slog.Logger, gen PickSheetGenerator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.fan-out.GeneratePickSheet"

		var req allocate.Request
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			response.BadRequest(w, r, "invalid JSON body")
			return
		}

		excelBytes, err := gen.GeneratePickSheet(r.Context(), req)
		if err != nil {
			response.Error(w, r, log, op, err)
			return
		}

		fileName := fmt.Sprintf("pick_sheet_%s.xlsx", time.Now().Format("2006-01-02_150405"))

		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", "attachment; filename="+fileName)
		if _, err := w.Write(excelBytes); err != nil {
			log.Error("failed to write pick sheet", slog.String("op", op), slog.String("error", err.Error()))
		}
	}
}
