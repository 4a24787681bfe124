// Quizmon - creature-collection quiz game server
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

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/quizmon/quizmon/internal/api"
	"github.com/quizmon/quizmon/internal/config"
	"github.com/quizmon/quizmon/internal/encounter"
	"github.com/quizmon/quizmon/internal/events"
	"github.com/quizmon/quizmon/internal/evolution"
	"github.com/quizmon/quizmon/internal/identity"
	"github.com/quizmon/quizmon/internal/middleware"
	"github.com/quizmon/quizmon/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	if err := repo.SeedCatalog(context.Background()); err != nil {
		slog.Error("Failed to seed creature catalog", "error", err)
		os.Exit(1)
	}

	// Initialize services.
	sessions := encounter.NewSessionStore()
	history := encounter.NewHistory(cfg.SessionTTL)
	hub := events.NewHub()
	factory := encounter.NewFactory(repo, sessions, history, cfg.SessionTTL)
	evaluator := encounter.NewEvaluator(repo, sessions, hub)
	resolver := evolution.NewResolver(repo)
	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	// Initialize handlers.
	baseHandler := api.NewHandler(repo, factory, evaluator, resolver)
	encounterHandler := api.NewEncounterHandler(baseHandler)
	evolutionHandler := api.NewEvolutionHandler(baseHandler)
	healthHandler := api.NewHealthHandler(repo)
	eventsHandler := events.NewHandler(hub, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	corsOrigins := []string{cfg.FrontendURL}
	if cfg.IsDevelopment() {
		corsOrigins = append(corsOrigins, "*")
	}
	r.Use(middleware.CORS(corsOrigins))
	r.Use(identity.Middleware(repo, cfg.IsDevelopment()))
	r.Use(limiter.Middleware(func(req *http.Request) string {
		return identity.UserIDFromContext(req.Context())
	}))

	// Public routes.
	healthHandler.RegisterHealth(r)
	encounterHandler.RegisterRoutes(r)
	evolutionHandler.RegisterRoutes(r)

	// WebSocket event feed.
	r.Get("/ws/events", eventsHandler.ServeHTTP)

	// Create server.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start sweep worker.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	encounter.StartSweeper(ctx, cfg.SweepInterval, sessions, history, func() {
		limiter.Prune(10 * time.Minute)
	})
	slog.Info("Sweep worker started", "session_ttl", cfg.SessionTTL)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
