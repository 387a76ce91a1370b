// Package server owns the HTTP surface: routing, the middleware pipeline,
// health probes, and graceful shutdown. The per-request pipeline is fixed:
// source-address limiting, authentication, per-key limiting, handler; every
// failure along it is reported as a problem document.
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

	"github.com/gptstore/gptstore/internal/auth"
	"github.com/gptstore/gptstore/internal/handler"
	"github.com/gptstore/gptstore/internal/openapi"
	"github.com/gptstore/gptstore/internal/pagination"
	"github.com/gptstore/gptstore/internal/ratelimit"
	"github.com/gptstore/gptstore/internal/server/middleware"
	"github.com/gptstore/gptstore/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	MaxBodySize     int64
	PageLimits      pagination.Limits
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     []string{"*"},
		MaxBodySize:     1 << 20, // 1MB of JSON is plenty for a document
		PageLimits:      pagination.Limits{Default: 50, Max: 200},
	}
}

// Server is the top-level HTTP server. It owns the chi router and wires the
// store, principal resolver, and rate limiter into the request pipeline.
type Server struct {
	cfg        Config
	router     chi.Router
	store      *store.Store
	resolver   *auth.Resolver
	limiter    ratelimit.Admitter
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a Server with all routes and middleware wired, ready to listen.
func New(cfg Config, st *store.Store, resolver *auth.Resolver, limiter ratelimit.Admitter, logger *slog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		store:    st,
		resolver: resolver,
		limiter:  limiter,
		logger:   logger,
	}
	s.setupRouter()
	return s
}

// ServeHTTP makes Server usable directly as an http.Handler, which the
// integration tests rely on.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
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
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-ID", "Link", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimw.Compress(5))
	r.Use(maxBody(s.cfg.MaxBodySize))

	// --- Health checks and docs (no auth, no rate limiting) ---
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Get("/openapi.json", openapi.Serve)

	// --- Document API ---
	colH := handler.NewCollectionHandler(s.store, s.cfg.PageLimits, s.logger)
	objH := handler.NewObjectHandler(s.store, s.cfg.PageLimits, s.logger)

	r.Route("/v1/gpts/{gptID}", func(r chi.Router) {
		// Address bucket first: it bounds key-less abuse and is checked
		// whether or not tenant resolution would succeed. Key buckets come
		// after authentication so unauthenticated traffic can never drain
		// tenant quota.
		r.Use(middleware.RateLimitIP(s.limiter))
		r.Use(middleware.Authenticate(s.resolver))
		r.Use(middleware.RateLimitKey(s.limiter))

		r.Post("/collections", colH.Upsert)
		r.Get("/collections", colH.List)
		r.Get("/collections/{collection}", colH.Get)
		r.Patch("/collections/{collection}", colH.UpdateSchema)
		r.Delete("/collections/{collection}", colH.Delete)

		r.Route("/collections/{collection}/objects", func(r chi.Router) {
			r.Post("/", objH.Create)
			r.Get("/", objH.List)
			r.Get("/{objectID}", objH.Get)
			r.Put("/{objectID}", objH.Update)
			r.Delete("/{objectID}", objH.Delete)
		})
	})

	s.router = r
}

// maxBody caps request body reads; oversized bodies surface as JSON decode
// errors in handlers.
func maxBody(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// handleHealthz is a liveness probe. Returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz is a readiness probe. Returns 200 when the store is reachable.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.store.Ping(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"degraded"}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// ListenAndServe starts the HTTP server and blocks until SIGINT or SIGTERM,
// then drains in-flight requests within the shutdown timeout.
func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.httpServer.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down", "timeout", s.cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
