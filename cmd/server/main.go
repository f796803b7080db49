package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/HammerMeetNail/blockshield/internal/app"
	"github.com/HammerMeetNail/blockshield/internal/config"
	"github.com/HammerMeetNail/blockshield/internal/handlers"
	"github.com/HammerMeetNail/blockshield/internal/logging"
	"github.com/HammerMeetNail/blockshield/internal/middleware"
)

func main() {
	if err := run(); err != nil {
		logging.Error("Application error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	logger := logging.New()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Server.Debug {
		logger.SetLevel(logging.LevelDebug)
		logging.SetDefaultLevel(logging.LevelDebug)
	}

	logger.Info("Starting blockshield server...", map[string]interface{}{"env": cfg.Server.Environment})

	a, err := app.New(cfg, logger, app.Options{Migrate: true})
	if err != nil {
		return err
	}
	defer a.Close()

	handler := newRouter(a)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// A sync of a large block list with fan-out can run for minutes.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan struct{})
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Could not gracefully shutdown the server", map[string]interface{}{
				"error": err.Error(),
			})
		}
		close(done)
	}()

	logger.Info("Server listening", map[string]interface{}{"addr": addr})
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	_ = logger.Sync()
	logger.Info("Server stopped")
	return nil
}

func newRouter(a *app.App) http.Handler {
	cfg := a.Config

	healthHandler := handlers.NewHealthHandler(a.DB, a.Redis)
	authHandler := handlers.NewAuthHandler(a.Accounts, a.Sessions, a.Blocks, a.Bluesky, cfg.Server.Secure)
	blockHandler := handlers.NewBlockHandler(a.Blocks, a.Exports)
	syncHandler := handlers.NewSyncHandler(a.Syncs)

	authMiddleware := middleware.NewAuthMiddleware(a.Sessions)
	csrfMiddleware := middleware.NewCSRFMiddleware(cfg.Server.Secure)
	securityHeaders := middleware.NewSecurityHeaders(cfg.Server.Secure)
	requestLogger := middleware.NewRequestLogger(a.Logger)
	authLimiter := middleware.NewAuthRateLimiter(a.Redis.Client)
	apiLimiter := middleware.NewAPIRateLimiter(a.Redis.Client)
	syncLimiter := middleware.NewSyncRateLimiter(a.Redis.Client, cfg.Sync.RateLimit)

	requireAuth := authMiddleware.RequireAuth

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /ready", healthHandler.Ready)
	mux.HandleFunc("GET /live", healthHandler.Live)
	mux.Handle("GET /metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))

	mux.Handle("POST /api/auth", authLimiter.Middleware(http.HandlerFunc(authHandler.Connect)))
	mux.Handle("POST /api/auth/logout", requireAuth(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("GET /api/me", requireAuth(http.HandlerFunc(authHandler.Me)))

	mux.Handle("GET /api/blocks", requireAuth(http.HandlerFunc(blockHandler.List)))
	mux.Handle("POST /api/blocks", requireAuth(http.HandlerFunc(blockHandler.Add)))
	mux.Handle("DELETE /api/blocks/{id}", requireAuth(http.HandlerFunc(blockHandler.Remove)))
	mux.Handle("GET /api/blocks/community", requireAuth(http.HandlerFunc(blockHandler.Community)))
	mux.Handle("GET /api/blocks/community/export", http.HandlerFunc(blockHandler.Export))
	mux.Handle("POST /api/blocks/sync", requireAuth(syncLimiter.Middleware(http.HandlerFunc(syncHandler.Sync))))
	mux.Handle("GET /api/blocks/sync/last", requireAuth(http.HandlerFunc(syncHandler.Last)))

	// Outermost first.
	var handler http.Handler = mux
	handler = apiLimiter.Middleware(handler)
	handler = authMiddleware.Authenticate(handler)
	handler = csrfMiddleware.Protect(handler)
	handler = securityHeaders.Apply(handler)
	handler = requestLogger.Apply(handler)
	return handler
}
