package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mes-staging/internal/config"
	"mes-staging/internal/metrics"
	"mes-staging/internal/service/allocate"
	"mes-staging/internal/service/closure"
	generate_excel "mes-staging/internal/service/generate-excel"
	"mes-staging/internal/service/intake"
	"mes-staging/internal/service/requirement"
	"mes-staging/internal/service/transfers"
	"mes-staging/internal/storage/mysql"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

type services struct {
	calculator *requirement.Calculator
	classifier *requirement.Classifier
	fanOut     *allocate.Service
	pickSheet  *generate_excel.GenerateExcelService
	closure    *closure.Service
	intake     *intake.Service
	transfers  *transfers.Service
}

func main() {
	cfg := config.MustConfig()

	log := setupLogger(cfg.Env, cfg.ErrorLogPath)

	storage, err := mysql.New(*cfg)
	if err != nil {
		log.Error("failed to open db", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer storage.Close()

	if cfg.Metrics.Enabled {
		metrics.Init(storage.DB(), cfg.DBName)
	}

	svc := newServices(*cfg, log, storage)
	defer svc.intake.Close()

	srv := &http.Server{
		Addr:         cfg.Address,
		Handler:      routes(*cfg, log, storage, svc),
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("server started", slog.String("address", cfg.Address), slog.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop server", slog.String("error", err.Error()))
	}

	log.Info("server stopped")
}

func newServices(cfg config.Config, log *slog.Logger, storage *mysql.Storage) services {
	precision := cfg.QuantityPrecision()
	kinds := cfg.TransferKinds()
	lines := cfg.Lines

	reqOpts := requirement.Options{LeafOnly: cfg.Allocation.LeafOnly, Exploded: true}

	resolver := requirement.NewResolver(storage)
	calculator := requirement.NewCalculator(resolver, storage, lines, kinds, precision)
	classifier := requirement.NewClassifier(log, resolver, storage, storage, lines, kinds, precision)

	fanOut := allocate.NewService(log, storage, calculator, storage, storage, allocate.Options{
		Kind:          cfg.FanOutKind(),
		DefaultSource: cfg.Warehouses.Default,
		BatchSplit:    cfg.Allocation.BatchSplit,
		Requirement:   reqOpts,
		Precision:     precision,
	})

	closer := closure.NewService(log, storage, storage, storage, lines, closure.Options{
		DefaultScrap: cfg.Warehouses.Scrap,
		Precision:    precision,
	})

	scanOpts := intake.OptionsFromConfig(cfg.Scan)
	scanOpts.Precision = precision
	scans := intake.NewService(log, storage, resolver, storage, lines, scanOpts)

	return services{
		calculator: calculator,
		classifier: classifier,
		fanOut:     fanOut,
		pickSheet:  generate_excel.NewGenerateService(fanOut),
		closure:    closer,
		intake:     scans,
		transfers:  transfers.NewService(log, storage, lines, kinds),
	}
}

type dualHandler struct {
	coreHandler  slog.Handler
	errorHandler slog.Handler
}

func (h *dualHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return h.coreHandler.Enabled(ctx, lvl) || h.errorHandler.Enabled(ctx, lvl)
}

func (h *dualHandler) Handle(ctx context.Context, r slog.Record) error {
	var err error

	if h.coreHandler.Enabled(ctx, r.Level) {
		err = h.coreHandler.Handle(ctx, r)
		if err != nil {
			return err
		}
	}

	// errors are copied to the error log file as well
	if r.Level >= slog.LevelError && h.errorHandler.Enabled(ctx, r.Level) {
		_ = h.errorHandler.Handle(ctx, r.Clone())
	}

	return err
}

func (h *dualHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &dualHandler{
		coreHandler:  h.coreHandler.WithAttrs(attrs),
		errorHandler: h.errorHandler.WithAttrs(attrs),
	}
}

func (h *dualHandler) WithGroup(name string) slog.Handler {
	return &dualHandler{
		coreHandler:  h.coreHandler.WithGroup(name),
		errorHandler: h.errorHandler.WithGroup(name),
	}
}

func setupLogger(env, errorLogPath string) *slog.Logger {
	level := slog.LevelDebug
	if env == envProd {
		level = slog.LevelInfo
	}

	var coreHandler slog.Handler
	switch env {
	case envDev:
		coreHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	case envLocal, envProd:
		coreHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	default:
		coreHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}

	if errorLogPath == "" {
		return slog.New(coreHandler)
	}

	errorFile, err := os.OpenFile(errorLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		slog.Warn("cannot open error log file", slog.String("path", errorLogPath), slog.String("error", err.Error()))
		return slog.New(coreHandler)
	}

	errorHandler := slog.NewTextHandler(errorFile, &slog.HandlerOptions{Level: slog.LevelError})

	return slog.New(&dualHandler{
		coreHandler:  coreHandler,
		errorHandler: errorHandler,
	})
}
