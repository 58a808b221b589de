package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/landsat-historic/internal/api"
	"github.com/ethpandaops/landsat-historic/internal/handlers"
	"github.com/ethpandaops/landsat-historic/internal/middleware"
)

// Config holds HTTP server settings.
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// Layout parses trigger dates posted to /api/v1/runs.
	Layout string
}

// Server represents the HTTP server.
type Server struct {
	httpServer *http.Server
	logger     logrus.FieldLogger
}

// New creates a new HTTP server with all routes and middleware. leader may
// be nil when scheduling is disabled.
func New(
	logger logrus.FieldLogger,
	cfg Config,
	runner api.Runner,
	leader handlers.LeaderStatus,
) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:           Handler(logger, cfg, runner, leader),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// Handler builds the routed handler with the middleware chain applied.
func Handler(
	logger logrus.FieldLogger,
	cfg Config,
	runner api.Runner,
	leader handlers.LeaderStatus,
) http.Handler {
	mux := http.NewServeMux()

	routes := []struct {
		pattern string
		handler http.Handler
	}{
		{"GET /health", handlers.Health(leader)},
		{"GET /metrics", promhttp.Handler()},
		{"GET /api/v1/checkpoint", api.NewCheckpointHandler(runner, logger)},
		{"POST /api/v1/runs", api.NewRunsHandler(runner, cfg.Layout, logger)},
	}

	for _, r := range routes {
		mux.Handle(r.pattern, r.handler)
		logger.WithField("route", r.pattern).Info("Registered route")
	}

	// Applied inside out: Recovery → Metrics → Logging → mux.
	handler := middleware.Logging(logger)(mux)
	handler = middleware.Metrics()(handler)
	handler = middleware.Recovery(logger)(handler)

	return handler
}

// Start starts the HTTP server (blocking call).
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting HTTP server")

	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")

	return s.httpServer.Shutdown(ctx)
}
