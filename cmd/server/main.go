// Edem - living agent server
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
	"golang.org/x/sync/errgroup"

	"github.com/ashureev/edem-agent/internal/agent"
	"github.com/ashureev/edem-agent/internal/api"
	"github.com/ashureev/edem-agent/internal/config"
	"github.com/ashureev/edem-agent/internal/generator"
	"github.com/ashureev/edem-agent/internal/identity"
	"github.com/ashureev/edem-agent/internal/living"
	"github.com/ashureev/edem-agent/internal/middleware"
	"github.com/ashureev/edem-agent/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	level, _ := config.ParseLevel(cfg.LogLevel)
	logger, closeLog := config.SetupLogger(cfg.LogFile, level)
	slog.SetDefault(logger)
	defer func() {
		if err := closeLog(); err != nil {
			slog.Error("Failed to close log file", "error", err)
		}
	}()

	if err := run(cfg, logger); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped successfully")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting server", "port", cfg.Port)

	myth, err := config.LoadMyth(cfg.Agent.MythFile)
	if err != nil {
		return err
	}

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()
	if err := repo.Ping(ctx); err != nil {
		return err
	}
	slog.Info("Database connected", "path", cfg.DBPath)

	backend, err := generator.NewFromConfig(ctx, cfg.Generator, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := backend.Close(); closeErr != nil {
			slog.Error("Failed to close generator", "error", closeErr)
		}
	}()
	slog.Info("Generator ready", "provider", backend.Provider)

	conversationLogger, err := agent.NewConversationLogger(cfg.ConversationLog, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := conversationLogger.Close(); closeErr != nil {
			slog.Error("Failed to close conversation logger", "error", closeErr)
		}
	}()

	var rnd living.Rand
	if cfg.Agent.RandomSeed != 0 {
		rnd = living.NewSeededRand(uint64(cfg.Agent.RandomSeed))
		slog.Info("Using seeded randomness", "seed", cfg.Agent.RandomSeed)
	}

	// Initialize services.
	service := agent.NewService(repo, backend, agent.ServiceOptions{
		Wound:             cfg.Agent.Wound,
		Myth:              myth,
		GenerationTimeout: cfg.Generator.Timeout,
		Rand:              rnd,
		ConversationLog:   conversationLogger,
		Logger:            logger,
	})

	// Initialize handlers.
	agentHandler := agent.NewHandler(service, agent.HandlerConfig{
		RateLimit:          cfg.RateLimit.RequestsPerWindow,
		RateWindow:         cfg.RateLimit.WindowDuration,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		AllowedOrigins:     cfg.CORSOrigins,
	})
	defer agentHandler.Close()
	healthHandler := api.NewHealthHandler(repo, cfg.Timeout.HealthCheck, backend.Provider)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORSOrigins, identity.SessionHeaderName))
	r.Use(identity.Middleware)

	healthHandler.RegisterHealth(r)
	agentHandler.RegisterRoutes(r)

	// WebSocket turns are long-lived, so there is no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return agent.RunJanitor(gctx, repo, cfg.Retention.AgentTTL, cfg.Retention.Interval, logger)
	})

	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeout.Shutdown)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
