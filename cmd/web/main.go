package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"omnishelf-dashboard/internal/backend"
	"omnishelf-dashboard/internal/config"
	"omnishelf-dashboard/internal/events"
	"omnishelf-dashboard/internal/middleware"
	"omnishelf-dashboard/internal/observability"
	"omnishelf-dashboard/internal/server"
	"omnishelf-dashboard/internal/services"
	"omnishelf-dashboard/internal/ui/templates"
)

const (
	renderTimeout   = 10 * time.Second
	healthTimeout   = 5 * time.Second
	janitorInterval = time.Minute
	cacheMaxAge     = "public, max-age=300"
)

func handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", cacheMaxAge)
	if err := templates.Dashboard().Render(ctx, w); err != nil {
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

func handleSmartCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", cacheMaxAge)
	if err := templates.SmartCart().Render(ctx, w); err != nil {
		http.Error(w, "render error", http.StatusInternalServerError)
	}
}

// openFlagStore picks the pending-refresh store named by EVENTS_STORE.
func openFlagStore(cfg *config.Config) (events.FlagStore, error) {
	switch cfg.Events.Store {
	case "sqlite":
		return events.NewSQLiteStore(cfg.Events.SQLitePath)
	case "redis":
		return events.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	case "memory":
		return events.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown events store %q", cfg.Events.Store)
	}
}

func newHandler(dashboard *services.Dashboard, logger *slog.Logger, cfg *config.Config, limiter *middleware.RateLimiter) http.Handler {
	templateHandlers := &server.TemplateHandlers{
		Dashboard: handleDashboard,
		SmartCart: handleSmartCart,
	}

	srv := server.NewServer(dashboard, logger, templateHandlers, cfg.Backend.MaxUploadSize)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(limiter, logger),
	)

	return middlewareChain(srv)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"backend", cfg.Backend.BaseURL,
		"events_store", cfg.Events.Store,
		"addr", cfg.Address(),
	)

	store, err := openFlagStore(cfg)
	if err != nil {
		logger.Error("failed to open events store", "store", cfg.Events.Store, "error", err)
		os.Exit(1)
	}
	bus := events.NewBus(store, cfg.Events.RefreshKey, logger)

	client := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, logger)

	healthCtx, cancelHealth := context.WithTimeout(context.Background(), healthTimeout)
	if health, err := client.Health(healthCtx); err != nil {
		logger.Warn("backend not reachable at startup, panels will show inline errors", "error", err)
	} else {
		logger.Info("backend reachable", "status", health.Status, "model_loaded", health.ModelLoaded)
	}
	cancelHealth()

	dashboard := services.NewDashboard(client, bus, logger, services.Options{
		TopCategories: cfg.Dashboard.TopCategories,
		MaxTableRows:  cfg.Dashboard.MaxTableRows,
	})

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	rateLimiter := middleware.NewRateLimiter(cfg.Security)
	rateLimiter.StartJanitor(baseCtx, janitorInterval)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      newHandler(dashboard, logger, cfg, rateLimiter),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return baseCtx },
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	// Open SSE streams never go idle; cancelling the base context ends them.
	gracefulServer.RegisterShutdownHook("sse-streams", func(ctx context.Context) error {
		cancelBase()
		return nil
	})
	gracefulServer.RegisterShutdownHook("events", func(ctx context.Context) error {
		logger.Info("closing events store", "store", cfg.Events.Store)
		return bus.Close()
	})

	logger.Info("starting graceful server")
	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
