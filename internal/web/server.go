// Package web provides the HTTP trigger server for the listing pipeline.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/listingclean/internal/config"
	"github.com/JonMunkholm/listingclean/internal/core"
	"github.com/JonMunkholm/listingclean/internal/metrics"
	mw "github.com/JonMunkholm/listingclean/internal/web/middleware"
)

// Server is the HTTP server that accepts storage events and sweep requests.
type Server struct {
	service *core.Service
	limiter *core.RunLimiter
	metrics *metrics.Collector
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a new Server. A nil collector leaves /metrics unmounted.
func NewServer(service *core.Service, collector *metrics.Collector, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		limiter: core.NewRunLimiter(cfg.Runs.MaxConcurrent, cfg.Runs.MaxWaitTime),
		metrics: collector,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Server.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(securityHeaders)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler())
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(s.cfg.Server.APIKeys))

		// Storage notification for a single object
		r.Post("/events", s.handleEvent)

		// Process every unprocessed object in a bucket
		r.Post("/sweep", s.handleSweep)
	})
}

// Start listens on the configured address. It returns nil after Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:        s.cfg.Server.Addr(),
		Handler:     s.router,
		ReadTimeout: s.cfg.Server.ReadTimeout,
		// Runs are bounded by RUN_TIMEOUT, not by the write deadline.
		WriteTimeout: 0,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("server listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight runs to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return err
		}
	}

	if status := s.limiter.Status(); status.Active > 0 {
		slog.Info("waiting for runs to complete", "active", status.Active)
	}
	return s.limiter.WaitForDrain(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")

		next.ServeHTTP(w, r)
	})
}
