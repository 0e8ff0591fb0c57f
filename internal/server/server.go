// Package server exposes the published scan snapshot over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/HerbHall/lanscan/internal/version"
	"github.com/HerbHall/lanscan/pkg/models"
)

// SnapshotSource returns the snapshot to serve. Current must never block
// and never return nil.
type SnapshotSource interface {
	Current() *models.Snapshot
}

// Server is the read-only lanscan HTTP server. Every handler reads one
// snapshot reference per request and renders only from it.
type Server struct {
	httpServer *http.Server
	source     SnapshotSource
	gatherer   prometheus.Gatherer
	base       string
	logger     *zap.Logger
	mux        *http.ServeMux
}

// New creates a Server listening on addr that serves source under base
// (e.g. "/lanscan"). A nil gatherer disables /metrics.
func New(addr, base string, source SnapshotSource, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      noCache(mux),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		source:   source,
		gatherer: gatherer,
		base:     strings.TrimRight(base, "/"),
		logger:   logger,
		mux:      mux,
	}

	s.registerRoutes()

	return s
}

// registerRoutes sets up every route. Anything unmatched is a 404 problem.
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET "+s.base+"/json", s.handleJSON)
	s.mux.HandleFunc("GET "+s.base+"/status", s.handleStatus)
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.gatherer != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	s.mux.HandleFunc("/", s.handleNotFound)
	s.logger.Debug("mounted routes", zap.String("base", s.base))
}

// Handler returns the server's root handler, including response headers
// applied to every route.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr), zap.String("base", s.base))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// noCache marks every response as uncacheable; content changes each pass.
func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
		h.Set("Pragma", "no-cache")
		h.Set("Expires", "0")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Lanscan-Version", version.Short())
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("write response", zap.Error(err))
	}
}

// handleJSON returns the current snapshot, or {} before the first pass.
func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.source.Current())
}

// handleStatus returns the timing and count of the last pass.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.source.Current().Status())
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]any{
		"status":  "ok",
		"service": version.Service,
		"version": version.Map(),
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	NotFound(w, fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path), r.URL.Path)
}
