package main

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	savecl "mes-staging/http-server/closure/save"
	pick_sheet "mes-staging/http-server/fan-out/pick-sheet"
	"mes-staging/http-server/fan-out/preview"
	savefo "mes-staging/http-server/fan-out/save"
	getprogress "mes-staging/http-server/progress/get"
	getremaining "mes-staging/http-server/remaining/get"
	savescan "mes-staging/http-server/scan/save"
	getstatus "mes-staging/http-server/stage-status/get"
	gettransfers "mes-staging/http-server/transfers/get"
	"mes-staging/internal/config"
	"mes-staging/internal/middleware/auth"
	"mes-staging/internal/service/requirement"
	"mes-staging/internal/storage/mysql"
)

const frontendDir = "./frontend-dist"

func routes(cfg config.Config, log *slog.Logger, storage *mysql.Storage, svc services) *chi.Mux {
	router := chi.NewRouter()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	router.Use(corsHandler.Handler)
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	reqOpts := requirement.Options{LeafOnly: cfg.Allocation.LeafOnly, Exploded: true}

	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.HTTPServer.RequestTimeout))

		// stage status
		r.Get("/lines/{line}/queue", getstatus.GetLineQueue(log, svc.classifier))
		r.Get("/orders/{id}/status", getstatus.GetOrderStatus(log, svc.classifier))
		r.Get("/lines/{line}/transfers", gettransfers.GetRecentTransfers(log, svc.transfers))

		r.Get("/orders/{id}/remaining", getremaining.GetRemaining(log, storage, svc.calculator, reqOpts))
		r.Get("/orders/{id}/progress", getprogress.GetProgress(log, storage, svc.calculator))

		// fan-out
		r.Post("/fan-out/preview", preview.PreviewFanOut(log, svc.fanOut))
		r.Post("/fan-out", savefo.SaveFanOut(log, svc.fanOut))
		r.Post("/fan-out/pick-sheet", pick_sheet.GeneratePickSheet(log, svc.pickSheet))

		r.Post("/closure", savecl.SaveClosure(log, svc.closure))
		r.Post("/scan", savescan.SaveScan(log, svc.intake))
	})

	if cfg.Metrics.Enabled {
		router.With(auth.BasicAuth("metrics", cfg.Metrics.Login, cfg.Metrics.Password)).
			Handle("/metrics", promhttp.Handler())
	}

	// storekeeper UI, served only when a build is present
	if _, err := os.Stat(frontendDir); err != nil {
		log.Warn("frontend build not found, serving API only", slog.String("path", frontendDir))
		return router
	}

	fileServer := http.FileServer(http.Dir(frontendDir))
	router.Handle("/assets/*", fileServer)

	router.HandleFunc("/*", func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(frontendDir, filepath.Clean("/"+r.URL.Path))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			http.ServeFile(w, r, path)
			return
		}
		http.ServeFile(w, r, filepath.Join(frontendDir, "index.html"))
	})

	return router
}
