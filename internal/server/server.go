// Package server provides the HTTP API for semsearch.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/semsearch/internal/config"
	"github.com/hyperjump/semsearch/internal/indexer"
	"github.com/hyperjump/semsearch/internal/search"
	semerr "github.com/hyperjump/semsearch/pkg/errors"
)

// Server is the HTTP server for the search API.
type Server struct {
	engine       *search.Engine
	indexer      *indexer.Indexer
	config       *config.ServerConfig
	logger       *zap.Logger
	server       *http.Server
	router       chi.Router
	defaultLimit int
	maxLimit     int
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithSearchLimits sets the result count used when a request omits limit, and the
// largest count a request may ask for.
func WithSearchLimits(defaultLimit, maxLimit int) ServerOption {
	return func(s *Server) {
		s.defaultLimit = defaultLimit
		s.maxLimit = maxLimit
	}
}

// NewServer creates a server with the given dependencies.
func NewServer(
	engine *search.Engine,
	idx *indexer.Indexer,
	cfg *config.ServerConfig,
	logger *zap.Logger,
	opts ...ServerOption,
) *Server {
	s := &Server{
		engine:       engine,
		indexer:      idx,
		config:       cfg,
		logger:       logger,
		defaultLimit: config.DefaultSearchLimit,
		maxLimit:     config.DefaultMaxSearchLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.router = s.routes()
	s.server = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/search", s.handleSearch)
	r.Post("/api/v1/ingest", s.handleIngest)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until it stops. A graceful Stop is not an error.
func (s *Server) Start() error {
	addr := s.server.Addr
	s.logger.Info("Starting server", zap.String("addr", addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return semerr.Wrap(err, semerr.CodeServerStartFailure, "failed to start server", semerr.Field("addr", addr))
	}
	return nil
}

// Stop gracefully shuts down the server. Once stopped, Start returns nil immediately.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
