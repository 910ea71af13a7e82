package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	intakeflowroot "github.com/fieldline/intakeflow"
	"github.com/fieldline/intakeflow/internal/api"
	"github.com/fieldline/intakeflow/internal/config"
	"github.com/fieldline/intakeflow/internal/enrich"
	"github.com/fieldline/intakeflow/internal/nlp"
	"github.com/fieldline/intakeflow/internal/repository"
	"github.com/fieldline/intakeflow/internal/service"
	"github.com/fieldline/intakeflow/internal/storage"
)

func main() {
	// Setup structured logging
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Persistence
	var store repository.Store
	switch cfg.StoreDriver {
	case "memory":
		store = repository.NewMemoryStore()
		slog.Warn("using in-memory store, state is lost on restart")
	default:
		pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		migrationsFS, err := fs.Sub(intakeflowroot.MigrationsFS, "migrations")
		if err != nil {
			slog.Error("failed to load embedded migrations", "error", err)
			os.Exit(1)
		}
		if err := repository.RunMigrations(cfg.DatabaseURL, migrationsFS); err != nil {
			slog.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		store = repository.NewPostgresStore(pool)
	}

	// Attachment storage
	blobs, err := storage.NewLocalStore(cfg.BlobDir)
	if err != nil {
		slog.Error("failed to init blob store", "error", err)
		os.Exit(1)
	}

	// NLP backend: live model when a key is configured, deterministic slot
	// filler otherwise.
	var backend nlp.Backend
	if cfg.OpenRouterKey != "" {
		backend = nlp.NewOpenRouter(cfg.OpenRouterKey, cfg.OpenRouterModel)
		slog.Info("using OpenRouter backend", "model", cfg.OpenRouterModel)
	} else {
		backend = nlp.NewSlotFiller()
		slog.Info("using deterministic slot-filling backend")
	}

	intake := service.NewIntakeService(store, blobs, backend, enrich.NewTextExtractor(blobs), cfg.BackendConcurrency)
	server := api.NewServer(intake, cfg.Port)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	slog.Info("intakeflow started", "port", cfg.Port, "store", cfg.StoreDriver)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		slog.Info("shutting down")
	}
}
