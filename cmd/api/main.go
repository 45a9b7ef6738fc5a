// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/chatvault/chatvault/internal/config"
	"github.com/chatvault/chatvault/internal/extract"
	"github.com/chatvault/chatvault/internal/handler"
	"github.com/chatvault/chatvault/internal/middleware"
	"github.com/chatvault/chatvault/internal/store"
	"github.com/chatvault/chatvault/pkg/logger"
	"github.com/chatvault/chatvault/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "chatvault", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Open the storage backend
	var kv store.KV
	if cfg.StoragePath == ":memory:" {
		kv = store.NewMemory()
		log.Warn("using in-memory storage, conversations will not survive restarts")
	} else {
		bolt, err := store.OpenBolt(cfg.StoragePath)
		if err != nil {
			log.Error("failed to open storage", zap.Error(err), zap.String("path", cfg.StoragePath))
			os.Exit(1)
		}
		defer bolt.Close()
		kv = bolt
	}

	// Initialize core components
	conversationStore := store.New(kv, cfg.CapacityBytes, log)
	extractor := extract.NewExtractor(log)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(kv)
	extractHandler := handler.NewExtractHandler(extractor, conversationStore, log)
	conversationHandler := handler.NewConversationHandler(conversationStore, log)
	dataHandler := handler.NewDataHandler(conversationStore, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestSize(cfg.MaxRequestBytes))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.AuthSecret != "" {
			r.Use(middleware.Auth(cfg.AuthSecret))
		}
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		// Extraction
		r.Post("/extract", extractHandler.Extract)
		r.Post("/extract/save", extractHandler.ExtractAndSave)

		// Conversations
		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", conversationHandler.List)
			r.Post("/", conversationHandler.Create)
			r.Post("/batch-delete", conversationHandler.BatchDelete)
			r.Post("/clear", conversationHandler.Clear)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", conversationHandler.Get)
				r.Put("/", conversationHandler.Update)
				r.Delete("/", conversationHandler.Delete)
			})
		})

		// Archive-wide data
		r.Get("/data/export", dataHandler.Export)
		r.Post("/data/import", dataHandler.Import)
		r.Get("/stats", dataHandler.Stats)
		r.Get("/tags", dataHandler.Tags)
		r.Get("/settings", dataHandler.GetSettings)
		r.Put("/settings", dataHandler.UpdateSettings)
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
