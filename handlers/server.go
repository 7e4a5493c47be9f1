package handlers

import (
	"context"
	"net/http"

	"github.com/nijaru/yt-transcript/config"
	"github.com/nijaru/yt-transcript/middleware"
	"github.com/sirupsen/logrus"
)

type Server struct {
	handler *Handler
	config  *config.Config
	logger  *logrus.Logger
	server  *http.Server
}

type ServerOption func(*Server)

// NewServer builds the HTTP server. WithHandler must be supplied.
func NewServer(cfg *config.Config, opts ...ServerOption) *Server {
	s := &Server{
		config: cfg,
		logger: logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.server = &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      s.routes(),
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
		IdleTimeout:  cfg.Server.IdleTimeout.Duration,
	}

	return s
}

func WithHandler(h *Handler) ServerOption {
	return func(s *Server) {
		s.handler = h
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// Handler returns the routed and wrapped root handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start blocks serving requests until Shutdown is called, at which point it
// returns http.ErrServerClosed.
func (s *Server) Start() error {
	s.logger.WithFields(logrus.Fields{
		"port":    s.config.Server.Port,
		"version": s.config.Server.Version,
	}).Info("Starting server")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/transcript", s.handler.HandleTranscript)
	mux.HandleFunc("GET /api/languages", s.handler.HandleLanguages)
	mux.HandleFunc("GET /health", s.handler.HandleHealth)

	return s.middleware(mux)
}

func (s *Server) middleware(handler http.Handler) http.Handler {
	middlewares := []func(http.Handler) http.Handler{
		middleware.Recovery(s.logger),
		middleware.RequestID(),
		middleware.Logging(s.logger),
		middleware.CORS(s.config.CORS),
	}

	if s.config.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(
			s.config.RateLimit.RequestsPerMinute,
			s.config.RateLimit.BurstSize,
		)
		middlewares = append(middlewares, limiter.Middleware)
	}

	return middleware.Chain(handler, middlewares...)
}
