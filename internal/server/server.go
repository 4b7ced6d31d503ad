// Package server exposes the cost-aware client over HTTP: an execute
// endpoint plus budget, breaker, health, version, and metrics surfaces.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	apperrors "github.com/costlens/costlens/internal/errors"
	"github.com/costlens/costlens/internal/graphql"
	"github.com/costlens/costlens/internal/observability"
	"github.com/costlens/costlens/internal/ops"
	"github.com/costlens/costlens/internal/server/handlers"
	servermw "github.com/costlens/costlens/internal/server/middleware"
)

// Server represents the HTTP server
type Server struct {
	router  *chi.Mux
	server  *http.Server
	host    string
	port    int
	client  *graphql.Client
	library *ops.Library
}

// Options configures the HTTP server.
type Options struct {
	Host    string
	Port    int
	Client  *graphql.Client
	Library *ops.Library
}

// New creates a new HTTP server instance
func New(opts Options) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)

	// Custom middleware in order: RequestID -> Metrics -> Recovery
	r.Use(servermw.RequestID)
	r.Use(servermw.RequestMetrics)
	r.Use(servermw.Recovery)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		err := apperrors.NewNotFoundError("The requested resource was not found")
		HandleError(w, req, err)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		err := apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource")
		HandleError(w, req, err)
	})

	s := &Server{
		router:  r,
		host:    opts.Host,
		port:    opts.Port,
		client:  opts.Client,
		library: opts.Library,
	}

	// Ensure handlers use the centralized error responder
	handlers.SetHTTPErrorResponder(HandleError)

	s.registerRoutes()

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	observability.ServerLogger.Info("Starting HTTP server",
		zap.String("host", s.host),
		zap.Int("port", s.port),
		zap.String("addr", addr))

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	observability.ServerLogger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Handler exposes the underlying router for testing and instrumentation
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the server port for testing
func (s *Server) Port() int {
	return s.port
}
