// Package server wires the router, middleware chain, and handlers into the
// imgvault HTTP server.
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

	"github.com/imgvault/imgvault/internal/auth"
	"github.com/imgvault/imgvault/internal/handler"
	"github.com/imgvault/imgvault/internal/openapi"
	"github.com/imgvault/imgvault/internal/server/middleware"
	"github.com/imgvault/imgvault/internal/service"
	"github.com/imgvault/imgvault/internal/storage"
	"github.com/imgvault/imgvault/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	APIKeyHeader    string
	RateLimit       int // requests per minute per client IP, 0 disables
	KeyRateLimit    int // requests per minute per API key, 0 disables
	MaxBodySize     int64
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     []string{"*"},
		APIKeyHeader:    "X-API-Key",
		RateLimit:       300,
		KeyRateLimit:    120,
		MaxBodySize:     32 * 1024 * 1024,
	}
}

// Server is the top-level HTTP server. It owns the Chi router, the metadata
// store, the blob store, and the auth service.
type Server struct {
	cfg        Config
	router     chi.Router
	store      *store.Store
	blobs      *storage.BlobStore
	authSvc    *service.AuthService
	authorizer *auth.Authorizer
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. Call ListenAndServe to start accepting connections.
func New(cfg Config, st *store.Store, blobs *storage.BlobStore, authSvc *service.AuthService, authorizer *auth.Authorizer, logger *slog.Logger) *Server {
	s := &Server{
		cfg:        cfg,
		store:      st,
		blobs:      blobs,
		authSvc:    authSvc,
		authorizer: authorizer,
		logger:     logger,
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
	if s.cfg.RateLimit > 0 {
		r.Use(middleware.RateLimit(s.cfg.RateLimit))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", s.cfg.APIKeyHeader, "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimw.Compress(5))

	// --- Health checks (no auth required) ---
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	// --- API description (no auth required) ---
	r.Get("/openapi.json", openapi.NewHandler().ServeSpec)

	// --- Signed image content (token-authenticated, no API key) ---
	contentHandler := handler.NewContentHandler(s.store, s.blobs, s.authSvc)
	r.Get("/content/{imageID}", contentHandler.Serve)

	// --- Resource API ---
	// Everything below runs through the full pipeline: authenticate the key,
	// classify the path, check the permission rules and ownership, and record
	// an audit entry on the way out.
	r.Group(func(r chi.Router) {
		if s.cfg.KeyRateLimit > 0 {
			r.Use(middleware.RateLimitByHeader(s.cfg.APIKeyHeader, s.cfg.KeyRateLimit))
		}
		// Audit sits between the two so denials are recorded too.
		r.Use(middleware.Authenticate(s.authSvc, s.cfg.APIKeyHeader))
		r.Use(middleware.Audit(s.store, s.logger))
		r.Use(middleware.Authorize(s.authorizer))

		teamHandler := handler.NewTeamHandler(s.store, s.blobs)
		userHandler := handler.NewUserHandler(s.store)
		keyHandler := handler.NewAPIKeyHandler(s.store, s.authSvc)
		imageHandler := handler.NewImageHandler(s.store, s.blobs, s.authSvc)
		auditHandler := handler.NewAuditLogHandler(s.store)

		r.Route("/teams", func(r chi.Router) {
			r.Post("/", teamHandler.Create)
			r.Get("/", teamHandler.List)

			r.Route("/{teamID}", func(r chi.Router) {
				r.Get("/", teamHandler.Get)
				r.Put("/", teamHandler.Update)
				r.Delete("/", teamHandler.Delete)

				r.Route("/api-keys", func(r chi.Router) {
					r.Post("/", keyHandler.Create)
					r.Get("/", keyHandler.List)
					r.Get("/{keyID}", keyHandler.Get)
					r.Put("/{keyID}", keyHandler.Update)
					r.Delete("/{keyID}", keyHandler.Delete)
				})

				r.Route("/users", func(r chi.Router) {
					r.Post("/", userHandler.Create)
					r.Get("/", userHandler.List)

					r.Route("/{userID}", func(r chi.Router) {
						r.Get("/", userHandler.Get)
						r.Put("/", userHandler.Update)
						r.Delete("/", userHandler.Delete)

						r.Get("/api-keys", keyHandler.ListByUser)
						r.Get("/api-keys/{keyID}", keyHandler.Get)
						r.Delete("/api-keys/{keyID}", keyHandler.Delete)

						r.Get("/images", imageHandler.ListByUser)
						r.Get("/images/{imageID}", imageHandler.Get)
						r.Put("/images/{imageID}", imageHandler.Update)
						r.Delete("/images/{imageID}", imageHandler.Delete)
					})
				})

				r.Route("/images", func(r chi.Router) {
					r.Post("/", imageHandler.Upload)
					r.Get("/", imageHandler.List)
					r.Get("/{imageID}", imageHandler.Get)
					r.Put("/{imageID}", imageHandler.Update)
					r.Delete("/{imageID}", imageHandler.Delete)
				})
			})
		})

		r.Get("/audit-logs", auditHandler.List)
	})

	s.router = r
}

// handleHealthz is a liveness probe. Returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz is a readiness probe. Returns 200 when the metadata store is
// reachable, or 503 when it is not.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.store.Ping(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"degraded","checks":{"store":"error"}}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok","checks":{"store":"ok"}}`))
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then performs a graceful shutdown, draining in-flight
// requests before closing the store.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Listen for shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start server in background goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	if err := s.store.Close(); err != nil {
		s.logger.Error("store close failed", "error", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
