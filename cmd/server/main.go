package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/secplus-trainer/backend/internal/api"
	"github.com/secplus-trainer/backend/internal/catalog"
	"github.com/secplus-trainer/backend/internal/domain/progress"
	"github.com/secplus-trainer/backend/internal/infrastructure/config"
	"github.com/secplus-trainer/backend/internal/logging"
	"github.com/secplus-trainer/backend/internal/selector"
	"github.com/secplus-trainer/backend/internal/service"
	"github.com/secplus-trainer/backend/internal/shuffle"
	"github.com/secplus-trainer/backend/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// no logger yet
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	logger, level, err := logging.New(cfg.Logging)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	cfg.Watch(logger, func(next *config.Config) {
		if lvl, err := zapcore.ParseLevel(next.Logging.Level); err == nil && lvl != level.Level() {
			level.SetLevel(lvl)
			logger.Info("log level changed", zap.Stringer("level", lvl))
		}
	})

	// ── Dependencies ────────────────────────────────────────────────
	backend, err := openBackend(cfg.Storage)
	if err != nil {
		logger.Fatal("failed to open storage", zap.String("backend", cfg.Storage.Backend), zap.Error(err))
	}
	defer backend.Close()

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		logger.Fatal("failed to load question catalog", zap.String("path", cfg.Catalog.Path), zap.Error(err))
	}
	loc, _ := cfg.Study.TimeLocation() // validated by config.Load

	st := store.Open(context.Background(), backend, progress.NewAggregator(cat, loc), logger.Named("store"), store.Options{
		Key: cfg.Storage.Key,
	})
	sel := selector.New(shuffle.New())
	studySvc := service.NewStudyService(cat, st, sel, logger.Named("study"), service.Options{})
	defer studySvc.Close()
	studySvc.ResumeTimers()

	handler := api.NewHandler(studySvc, logger.Named("api"))

	// ── Routes ──────────────────────────────────────────────────────
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "ok"}`))
	})

	api.RegisterRoutes(mux, handler)

	// ── Middleware chain: Logging → CORS → mux ──────────────────────
	logged := api.Logging(logger.Named("http"))(api.CORS(cfg.Server.AllowedOrigins)(mux))

	// ── Server ──────────────────────────────────────────────────────
	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           logged,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		logger.Info("shutting down server")
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("server forced to shutdown", zap.Error(err))
		}
	}()

	logger.Info("starting server",
		zap.String("address", cfg.Server.Address),
		zap.String("storage", cfg.Storage.Backend),
		zap.Int("questions", cat.Len()),
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed to start", zap.Error(err))
		os.Exit(1)
	}
}

func openBackend(cfg config.StorageConfig) (store.Backend, error) {
	switch cfg.Backend {
	case config.BackendFile:
		return store.NewFile(cfg.Directory)
	case config.BackendRedis:
		return store.NewRedis(cfg.RedisURL)
	case config.BackendMemory:
		return store.NewMemory(), nil
	default:
		return store.NewSQLite(cfg.Path)
	}
}
