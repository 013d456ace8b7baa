// Package diag serves health and metrics endpoints for a running client.
package diag

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/wavespace/wavespace/internal/data"
)

// HealthChecker reports data layer health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) data.Health
}

// Router builds the diagnostics routes.
func Router(hc HealthChecker, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		h := hc.HealthCheck(ctx)
		status := http.StatusOK
		if h.Error != "" {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(h) //nolint:errcheck // client went away
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// requestLogger logs each request to zap; chi's own logger writes to
// stderr, which the terminal UI owns.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("diag request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

// Server is the diagnostics HTTP server.
type Server struct {
	srv *http.Server
	log *zap.Logger
}

// NewServer returns a server for addr. It does not listen until Start.
func NewServer(addr string, hc HealthChecker, logger *zap.Logger) *Server {
	logger = logger.Named("diag")
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           Router(hc, logger),
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: logger,
	}
}

// Start serves in the background.
func (s *Server) Start() {
	go func() {
		s.log.Info("diagnostics listening", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("diagnostics server stopped", zap.Error(err))
		}
	}()
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
