package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/chatwire/chatwire/internal/handler"
	"github.com/chatwire/chatwire/internal/messenger"
	"github.com/chatwire/chatwire/internal/server/middleware"
	"github.com/chatwire/chatwire/internal/service"
	"github.com/chatwire/chatwire/internal/webhook"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	APIKeyHeader    string
	RateLimitPerMin int // per client IP, whole API
	SendLimitPerMin int // per credential, message surface only
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     []string{"*"},
		APIKeyHeader:    "X-API-Key",
		RateLimitPerMin: 300,
		SendLimitPerMin: 60,
	}
}

// Server is the top-level HTTP server for chatwire. It owns the chi router
// and wires the auth gate, key lifecycle, webhook registry, and messaging
// driver behind the REST surface.
type Server struct {
	cfg        Config
	router     chi.Router
	keys       *service.KeyService
	auth       *service.AuthService
	bulk       *service.BulkService
	registry   *webhook.Registry
	driver     messenger.Driver
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server with all routes and middleware wired. Call
// ListenAndServe to start accepting connections.
func New(cfg Config, keys *service.KeyService, auth *service.AuthService, bulk *service.BulkService, registry *webhook.Registry, driver messenger.Driver, logger *slog.Logger) *Server {
	if cfg.APIKeyHeader == "" {
		cfg.APIKeyHeader = "X-API-Key"
	}
	s := &Server{
		cfg:      cfg,
		keys:     keys,
		auth:     auth,
		bulk:     bulk,
		registry: registry,
		driver:   driver,
		logger:   logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", s.cfg.APIKeyHeader, "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if s.cfg.RateLimitPerMin > 0 {
		r.Use(middleware.RateLimit(s.cfg.RateLimitPerMin))
	}

	// --- Health checks (no auth required) ---
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	// --- API routes ---
	r.Route("/api/v1", func(r chi.Router) {
		msgHandler := handler.NewMessageHandler(s.driver, s.bulk)
		keyHandler := handler.NewKeyHandler(s.keys)
		whHandler := handler.NewWebhookHandler(s.registry)

		// Message surface: credential-gated, scoped, per-key throttled.
		r.Route("/messages", func(r chi.Router) {
			r.Use(middleware.Authenticate(s.auth, s.cfg.APIKeyHeader))
			r.Use(middleware.RequirePermission(s.auth, "messages:send"))
			if s.cfg.SendLimitPerMin > 0 {
				r.Use(middleware.RateLimitByHeader(s.cfg.APIKeyHeader, s.cfg.SendLimitPerMin))
			}

			r.Post("/text", msgHandler.SendText)
			r.Post("/media", msgHandler.SendMedia)
			r.Post("/bulk", msgHandler.SendBulk)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(s.auth, s.cfg.APIKeyHeader))
			r.With(middleware.RequirePermission(s.auth, "contacts:read")).
				Get("/contacts/{recipient}/registered", msgHandler.IsRegistered)
			r.With(middleware.RequirePermission(s.auth, "session:read")).
				Get("/session/status", msgHandler.SessionStatus)
		})

		// Key management: the master credential only. API keys cannot
		// manage other credentials.
		r.Route("/system/keys", func(r chi.Router) {
			r.Use(middleware.AuthenticateMaster(s.auth, s.cfg.APIKeyHeader))

			r.Post("/", keyHandler.Create)
			r.Get("/", keyHandler.List)
			r.Get("/{keyId}", keyHandler.Get)
			r.Put("/{keyId}", keyHandler.Update)
			r.Delete("/{keyId}", keyHandler.Delete)
			r.Post("/{keyId}/revoke", keyHandler.Revoke)
			r.Post("/{keyId}/activate", keyHandler.Activate)
			r.Post("/{keyId}/regenerate", keyHandler.Regenerate)
		})

		// Webhook management: any credential with the scope.
		r.Route("/webhooks", func(r chi.Router) {
			r.Use(middleware.Authenticate(s.auth, s.cfg.APIKeyHeader))
			r.Use(middleware.RequirePermission(s.auth, "webhooks:manage"))

			r.Post("/", whHandler.Register)
			r.Get("/", whHandler.List)
			r.Delete("/{webhookId}", whHandler.Unregister)
			r.Post("/{webhookId}/toggle", whHandler.Toggle)
		})
	})

	s.router = r
}

// handleHealthz is a liveness probe. Returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz is a readiness probe. Returns 200 once the messaging session
// is authenticated or ready, 503 otherwise.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	state := s.driver.SessionState()
	status := http.StatusOK
	if state != messenger.StateReady && state != messenger.StateAuthenticated {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"state":"` + string(state) + `"}`))
}

// ListenAndServe starts the HTTP server and blocks until SIGINT or SIGTERM,
// then drains in-flight requests before returning.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
