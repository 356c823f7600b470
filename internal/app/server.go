package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// OpsServer exposes the operational endpoints of a worker: liveness and
// Prometheus metrics. It is not the product API.
type OpsServer struct {
	httpServer *http.Server
	logger     zerolog.Logger
}

func NewOpsServer(addr string, gatherer prometheus.Gatherer, logger zerolog.Logger) *OpsServer {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return &OpsServer{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger.With().Str("component", "ops_server").Logger(),
	}
}

// Start runs the listener in the background. Serve errors other than a clean
// shutdown are logged, not fatal; the worker keeps processing without ops
// endpoints.
func (s *OpsServer) Start() {
	go func() {
		s.logger.Info().Str("addr", s.httpServer.Addr).Msg("ops server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("ops server stopped")
		}
	}()
}

func (s *OpsServer) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
