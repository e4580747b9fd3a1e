// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/corkboard/internal/api"
	"github.com/starford/corkboard/internal/boardservice"
	"github.com/starford/corkboard/internal/inbox"
	"github.com/starford/corkboard/internal/mcpserver"
	"github.com/starford/corkboard/internal/models"
	"github.com/starford/corkboard/internal/reconcile"
	"github.com/starford/corkboard/internal/sse"
	"github.com/starford/corkboard/internal/storage"
)

// Run starts the board server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_backend", cfg.Storage.Backend),
		slog.String("storage_path", cfg.Storage.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer store.Close()

	// SSE broker.
	broker := sse.NewBroker(cfg.Board.EventThrottle())
	defer broker.Close()

	// Document store and render-set reconciler, connected to the broker.
	svc := boardservice.NewService(store, logger, cfg.Board.SaveDebounce())
	defer svc.Close()
	rec := wireRenderPipeline(svc, broker, cfg.Board.RemovalDelay())
	defer rec.Close()
	svc.Initialize(ctx)

	// Build API router.
	apiRouter := api.NewRouter(svc, rec, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, cfg.Attachments.Dir)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	// Serve uploaded card images.
	r.Get("/attachments/{filename}", api.NewAttachmentHandler(cfg.Attachments.Dir).ServeFile)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start snapshot inbox watcher.
	if cfg.Inbox.Enabled {
		g.Go(func() error {
			return inbox.Watch(gCtx, svc, cfg.Inbox.Path, logger, nil)
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP starts the MCP server on stdio instead of the HTTP server.
// Logs go to stderr because stdout carries the MCP transport.
func RunMCP(_ context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}
	slog.SetDefault(logger)

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer store.Close()

	svc := boardservice.NewService(store, logger, cfg.Board.SaveDebounce())
	defer svc.Close()
	svc.Initialize(context.Background())

	logger.Info("MCP server starting on stdio")
	return mcpserver.New(svc, cfg.Attachments.Dir).ServeStdio()
}

// wireRenderPipeline connects the document store to the render reconciler and
// the SSE broker. Committed mutations update the render set and publish their
// event; every render-set settle, including a timer-driven removal batch that
// admits held-back cards, publishes board.settled so renderers refetch.
func wireRenderPipeline(svc *boardservice.Service, broker *sse.Broker, removalDelay time.Duration) *reconcile.Reconciler {
	rec := reconcile.New(removalDelay, func() {
		broker.PublishBoardEvent("board.settled", "")
	})
	svc.AddListener(func(kind, id string, active *models.Case) {
		if active == nil {
			rec.Apply(nil)
			rec.ReplaceEdges(nil)
		} else {
			rec.Apply(active.Cards)
			rec.ReplaceEdges(active.Links)
		}
		broker.PublishBoardEvent(kind, id)
	})
	return rec
}

// openStore builds the configured storage provider.
func openStore(cfg *Config) (storage.Provider, error) {
	switch cfg.Storage.Backend {
	case StorageBackendFile:
		return storage.NewFile(cfg.Storage.Path)
	default:
		return storage.OpenSQLite(cfg.Storage.Path)
	}
}
