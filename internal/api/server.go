package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/davisjt/quantcloud/internal/engine"
	"github.com/davisjt/quantcloud/internal/store"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
	writeTimeout      = 30 * time.Second
)

// Server wraps the chi router and application dependencies.
type Server struct {
	router *chi.Mux
	store  store.Store
	engine *engine.Engine
	logger *slog.Logger
	addr   string
	tokens map[string]bool
}

// NewServer creates and configures a new HTTP server. tokens are the bearer
// credentials accepted on the authenticated API surface.
func NewServer(addr string, s store.Store, eng *engine.Engine, tokens []string, logger *slog.Logger) *Server {
	srv := &Server{
		router: chi.NewRouter(),
		store:  s,
		engine: eng,
		logger: logger,
		addr:   addr,
		tokens: make(map[string]bool, len(tokens)),
	}
	for _, t := range tokens {
		srv.tokens[t] = true
	}

	srv.router.Use(middleware.RequestID)
	srv.router.Use(middleware.Recoverer)
	srv.router.Use(srv.loggingMiddleware)
	srv.router.Use(metricsMiddleware)
	srv.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	srv.routes()

	return srv
}

// routes registers all HTTP routes on the router. Everything under /api/v2
// except the authenticate probe requires a bearer token.
func (s *Server) routes() {
	s.router.Get("/", s.handleRoot)
	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", metricsHandler())

	s.router.Route("/api/v2", func(r chi.Router) {
		r.Get("/authenticate", s.handleAuthenticate)

		r.Group(func(r chi.Router) {
			r.Use(s.requireToken)

			r.Post("/projects/create", s.handleCreateProject)
			r.Post("/projects/read", s.handleReadProjects)
			r.Post("/files/create", s.handleCreateFile)
			r.Post("/files/read", s.handleReadFiles)
			r.Post("/compile/create", s.handleCreateCompile)
			r.Post("/compile/read", s.handleReadCompile)
			r.Post("/backtests/create", s.handleCreateBacktest)
			r.Post("/backtests/read", s.handleReadBacktests)
			r.Post("/backtests/read/report", s.handleReadBacktestReport)
			r.Post("/live/create", s.handleCreateLive)
			r.Post("/live/read", s.handleReadLive)
			r.Post("/live/update/stop", s.handleStopLive)
			r.Post("/live/update/liquidate", s.handleLiquidateLive)
			r.Post("/live/read/log", s.handleReadLiveLogs)
			r.Post("/data/read", s.handleReadData)
			r.Get("/jobs/{id}/events", s.handleJobEvents)
		})
	})
}

// Router returns the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Run starts the HTTP server and blocks until a shutdown signal is received.
func (s *Server) Run() error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// loggingMiddleware logs each request using the structured logger.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
