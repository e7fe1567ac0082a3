// Package api provides the HTTP and WebSocket API for estimation runs.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/branched-services/go-montecarlo/internal/catalog"
	"github.com/branched-services/go-montecarlo/internal/observability"
	"github.com/branched-services/go-montecarlo/internal/runs"
	"github.com/branched-services/go-montecarlo/pkg/estimator"
)

// RunService is the subset of *runs.Service the API depends on.
type RunService interface {
	Run(ctx context.Context, req runs.Request, progress estimator.ProgressFunc) (*runs.Record, error)
	Get(id string) (*runs.Record, error)
	Recent(limit int) []*runs.Record
	Latest(ctx context.Context) (*runs.Record, error)
	Targets() []catalog.Definition
	Stats() runs.Stats
}

// Server provides the estimation API.
type Server struct {
	addr    string
	service RunService
	logger  *slog.Logger
	router  *mux.Router
	server  *http.Server
}

// defaultWriteTimeout bounds responses when no run timeout is known.
const defaultWriteTimeout = 2 * time.Minute

// Option configures a Server.
type Option func(*http.Server)

// WithWriteTimeout sets the response write deadline. It must exceed the
// longest run, since POST /v1/runs writes only after the run completes.
// Zero disables the deadline.
func WithWriteTimeout(d time.Duration) Option {
	return func(srv *http.Server) {
		srv.WriteTimeout = d
	}
}

// NewServer creates a new API server.
func NewServer(addr string, service RunService, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		addr:    addr,
		service: service,
		logger:  logger.With("component", "api"),
		router:  mux.NewRouter(),
	}

	s.routes()

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	for _, opt := range opts {
		opt(s.server)
	}

	return s
}

func (s *Server) routes() {
	s.router.Use(s.requestMiddleware)

	v1 := s.router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/targets", s.handleTargets).Methods(http.MethodGet)
	v1.HandleFunc("/runs", s.handleCreateRun).Methods(http.MethodPost)
	v1.HandleFunc("/runs", s.handleListRuns).Methods(http.MethodGet)

	// Fixed paths before {id}.
	v1.HandleFunc("/runs/latest", s.handleLatestRun).Methods(http.MethodGet)
	v1.HandleFunc("/runs/stream", s.handleStream).Methods(http.MethodGet)

	v1.HandleFunc("/runs/{id}", s.handleGetRun).Methods(http.MethodGet)
	v1.HandleFunc("/runs/{id}/scatter.png", s.handleScatter).Methods(http.MethodGet)
	v1.HandleFunc("/runs/{id}/convergence.png", s.handleConvergence).Methods(http.MethodGet)

	s.router.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts the server. Blocks until context is canceled.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server starting", "addr", s.addr)
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("API server shutting down")
	return s.server.Shutdown(ctx)
}

// requestMiddleware tags each request with an ID, sets CORS headers and
// logs completion.
func (s *Server) requestMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)
		ctx := context.WithValue(r.Context(), observability.RequestIDKey, reqID)

		// CORS for development
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")

		next.ServeHTTP(w, r.WithContext(ctx))

		observability.WithContext(ctx, s.logger).Debug("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_us", time.Since(start).Microseconds(),
		)
	})
}
