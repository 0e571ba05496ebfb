package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MarsStirner/ezekiel/internal/auth"
	"github.com/MarsStirner/ezekiel/internal/config"
	"github.com/MarsStirner/ezekiel/internal/locks"
	"github.com/MarsStirner/ezekiel/internal/metrics"
)

// Server wires the lock manager, the auth adapter, and the process's
// metrics into the REST, WebSocket, and SSE listeners, and owns the
// one http.Server that serves all three.
type Server struct {
	manager *locks.Manager
	auth    auth.Authenticator
	metrics *metrics.Metrics
	cfg     *config.Config
	logger  *slog.Logger

	httpServer   *http.Server
	httpListener net.Listener
	startTime    time.Time
	reporter     *reporter
}

// New builds a Server. cfg, manager, and authenticator must be
// non-nil; m may be nil to disable metrics recording.
func New(cfg *config.Config, manager *locks.Manager, authenticator auth.Authenticator, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		manager: manager,
		auth:    authenticator,
		metrics: m,
		cfg:     cfg,
		logger:  logger,
	}
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", s.handleHealthz)
	r.Post("/ezekiel/rpc/{command}/{object_id}", s.handleRPC)
	r.Get("/ezekiel/ws", s.handleWebSocket)
	r.Get("/ezekiel/es/{object_id}", s.handleSSE)

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

// Start begins serving on cfg.Server.HTTPAddr. It returns once the
// listener is bound; the accept loop runs in the background.
func (s *Server) Start() error {
	s.startTime = time.Now()
	addr := s.cfg.Server.HTTPAddr
	if addr == "" {
		addr = ":8080"
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("gateway: listen %s: %w", addr, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.router(),
		ReadHeaderTimeout: s.cfg.Server.ReadHeaderTimeout.Std(),
	}
	s.httpListener = listener

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()

	s.reporter = newReporter(s)
	if err := s.reporter.Start(); err != nil {
		return fmt.Errorf("gateway: start reporter: %w", err)
	}

	s.logger.Info("gateway started", "addr", addr)
	return nil
}

// Stop gracefully shuts the HTTP server down, waiting for in-flight
// requests, including SSE streams, to finish until ctx is done.
// Upgraded WebSocket connections are hijacked and are not waited for.
func (s *Server) Stop(ctx context.Context) error {
	if s.reporter != nil {
		s.reporter.Stop()
	}
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("gateway stopping")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","held_locks":%d,"uptime_seconds":%d}`,
		s.manager.Len(), int(time.Since(s.startTime).Seconds()))
}
