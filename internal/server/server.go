// Package server exposes the operation queue, the batch optimizers and
// the audit trail over a REST API.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/me/docbatch/internal/config"
	"github.com/me/docbatch/internal/queue"
	"github.com/me/docbatch/internal/store"
)

// Server is the docbatch REST API server.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	config    config.ServerConfig
	startTime time.Time
	queue     *queue.Queue
	audit     *store.AuditStore // optional; nil disables the /audit endpoints
	targets   map[string]any    // optional; named documents for optimize-and-execute
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithAuditStore enables the audit endpoints backed by the given store.
func WithAuditStore(st *store.AuditStore) Option {
	return func(s *Server) {
		s.audit = st
	}
}

// WithTarget registers a named document the optimize endpoints can
// execute batches against. The document must implement the capability
// contracts for the batches it receives.
func WithTarget(name string, doc any) Option {
	return func(s *Server) {
		s.targets[name] = doc
	}
}

// New creates a new Server with all routes registered.
func New(cfg config.ServerConfig, q *queue.Queue, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger.With("component", "server"),
		config:    cfg,
		startTime: time.Now(),
		queue:     q,
		targets:   make(map[string]any),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", s.handleInfo)
		r.Get("/info", s.handleInfo)
		r.Get("/health", s.handleHealth)

		r.Route("/operations", func(r chi.Router) {
			r.Post("/", s.handleSubmitOperation)
			r.Post("/batch", s.handleSubmitBatch)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetOperation)
				r.Get("/wait", s.handleWaitOperation)
				r.Delete("/", s.handleCancelOperation)
			})
		})

		r.Route("/queue", func(r chi.Router) {
			r.Get("/stats", s.handleQueueStats)
			r.Post("/clear", s.handleClearCompleted)
		})

		r.Route("/optimize", func(r chi.Router) {
			r.Post("/sheet", s.handleOptimizeSheet)
			r.Post("/slides", s.handleOptimizeSlides)
		})

		r.Route("/audit", func(r chi.Router) {
			r.Get("/", s.handleListAudit)
			r.Get("/{id}", s.handleGetAudit)
		})
	})
}
