package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/postwire/internal/adapter/httpserver"
	"github.com/pscheid92/postwire/internal/adapter/metrics"
	"github.com/pscheid92/postwire/internal/adapter/postgres"
	"github.com/pscheid92/postwire/internal/adapter/sqlite"
	"github.com/pscheid92/postwire/internal/adapter/websocket"
	"github.com/pscheid92/postwire/internal/app"
	"github.com/pscheid92/postwire/internal/domain"
	"github.com/pscheid92/postwire/internal/platform/config"
	"github.com/pscheid92/postwire/internal/platform/logging"
	"github.com/pscheid92/postwire/internal/platform/version"
)

const (
	storeSetupTimeout   = 30 * time.Second
	shutdownBroadcast   = "Server shutting down."
	shutdownCloseReason = "Server shutting down"
)

func runGracefulShutdown(cfg *config.Config, srv *httpserver.Server, registry *websocket.Registry, store domain.PostRepository) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		// Hijacked WebSocket connections outlive the HTTP server shutdown.
		if err := registry.Broadcast(shutdownBroadcast); err != nil {
			slog.Warn("Shutdown notice not delivered to every connection", "error", err)
		}
		registry.CloseAll(shutdownCloseReason)

		if err := store.Close(); err != nil {
			slog.Error("Failed to close post store", "error", err)
		}

		close(done)
	}()

	return done
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupStore(cfg *config.Config, dbMetrics *metrics.DatabaseMetrics) domain.PostRepository {
	ctx, cancel := context.WithTimeout(context.Background(), storeSetupTimeout)
	defer cancel()

	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL, dbMetrics.Tracer())
		if err != nil {
			slog.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			slog.Error("Failed to create schema", "error", err)
			os.Exit(1)
		}
		return postgres.NewPostRepo(pool)

	default:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			slog.Error("Failed to open SQLite database", "path", cfg.SQLitePath, "error", err)
			os.Exit(1)
		}
		return sqlite.NewPostRepo(db, dbMetrics)
	}
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "store", cfg.StoreDriver, "version", version.Get().String())

	reg := metrics.NewRegistry()
	dbMetrics := metrics.NewDatabaseMetrics(reg)
	wsMetrics := metrics.NewWebSocketMetrics(reg)

	store := setupStore(cfg, dbMetrics)

	appSvc := app.NewService(store)
	registry := websocket.NewRegistry(wsMetrics)
	sessions := websocket.NewSessions(registry, appSvc, clock, wsMetrics)

	healthChecks := []httpserver.HealthCheck{
		{Name: "post_store", Check: appSvc.Ready},
	}
	srv := httpserver.NewServer(cfg, appSvc, sessions, reg, healthChecks, clock)

	done := runGracefulShutdown(cfg, srv, registry, store)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
