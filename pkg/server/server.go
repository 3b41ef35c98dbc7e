// Copyright 2025 Philipp Hossner
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package server renders templates over HTTP.
//
// Endpoints:
//   - GET  /render/{id}      render id with the query parameters as data
//   - POST /render/{id}      render id with a JSON or YAML body as data
//   - POST /compile          compile the body and return the generated code
//   - GET  /templates        list cached template ids
//   - GET  /diagnostics      recent diagnostics, when a history is given
//   - GET  /health, /healthz health check
//   - GET  /metrics          Prometheus metrics, when a registry is given
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"arttemplate/pkg/metrics"
	"arttemplate/pkg/templating"
)

// Server serves an engine over HTTP.
type Server struct {
	addr            string
	engine          *templating.Engine
	registry        prometheus.Gatherer
	history         *templating.History
	shutdownTimeout time.Duration
	server          *http.Server
	logger          *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	ready    chan struct{}
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics serves registry on /metrics.
func WithMetrics(registry prometheus.Gatherer) Option {
	return func(s *Server) {
		s.registry = registry
	}
}

// WithHistory serves the entries of history on /diagnostics. The history
// must be the engine's reporter, or part of its reporter chain.
func WithHistory(history *templating.History) Option {
	return func(s *Server) {
		s.history = history
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithShutdownTimeout bounds graceful shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.shutdownTimeout = d
	}
}

// New creates a server for engine listening on addr.
func New(addr string, engine *templating.Engine, opts ...Option) *Server {
	s := &Server{
		addr:            addr,
		engine:          engine,
		shutdownTimeout: 10 * time.Second,
		logger:          slog.Default().With("component", "render-server"),
		ready:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Handler returns the server's routes wrapped in the request id middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.setupRoutes(mux)
	return withRequestID(mux, s.logger)
}

func (s *Server) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /render/{id...}", s.handleRender)
	mux.HandleFunc("POST /render/{id...}", s.handleRender)
	mux.HandleFunc("POST /compile", s.handleCompile)
	mux.HandleFunc("GET /templates", s.handleTemplates)
	if s.history != nil {
		mux.HandleFunc("GET /diagnostics", s.handleDiagnostics)
	}

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	if s.registry != nil {
		mux.Handle("GET /metrics", metrics.Handler(s.registry))
	}

	mux.HandleFunc("/", s.handleNotFound)
}

// Start listens and serves until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	close(s.ready)

	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info("Starting render server", "addr", ln.Addr().String())

		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Render server error", "error", err)
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Render server shutting down", "reason", ctx.Err())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		s.logger.Info("Render server stopped")
		return nil

	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}
}

// Ready is closed once the server is listening.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the listening address once the server is ready, otherwise the
// configured address.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}
