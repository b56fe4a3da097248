package webui

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"time"

	"go.uber.org/zap"

	"caricature_studio/logging"
	"caricature_studio/messages"
)

// AuthProvider is implemented by auth.AuthMiddleware. The interface keeps
// this package free of an import on webui/auth.
type AuthProvider interface {
	// Middleware rejects requests without a valid session and stores the
	// session in the request context for the rest.
	Middleware(next http.Handler) http.Handler
	RegisterHandler() http.HandlerFunc
	LoginHandler() http.HandlerFunc
	LogoutHandler() http.HandlerFunc
}

// MetricsProvider exposes request recording and the scrape endpoint.
// metrics.Collector implements it.
type MetricsProvider interface {
	RequestRecorder
	Handler() http.Handler
}

// Server is the HTTP front of the studio.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	config     ServerConfig
	logger     *logging.Logger
	auth       AuthProvider
	api        *API
	metrics    MetricsProvider
	loggingMw  *LoggingMiddleware
}

// ServerConfig configures the Server.
type ServerConfig struct {
	Host string
	Port int

	ReadTimeout time.Duration

	// WriteTimeout must outlast a generation including its fallback.
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// MaxBodyBytes bounds JSON request bodies. Photos arrive base64 encoded,
	// so this is larger than the decoded image limit.
	MaxBodyBytes int64

	// HistoryLimit is the default and maximum page of GET /api/history.
	HistoryLimit int

	// DevMode adds the underlying error text to error responses.
	DevMode bool

	LogSkipPaths []string

	// TrustedProxies may set the client address through X-Forwarded-For
	// or X-Real-IP. Empty means the headers are ignored.
	TrustedProxies []netip.Prefix
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:            3000,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    3 * time.Minute,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		MaxBodyBytes:    16 << 20,
		HistoryLimit:    50,
		LogSkipPaths:    []string{"/health", "/metrics"},
	}
}

// Dependencies are the collaborators the Server routes to. Studio, Accounts
// and Auth are required.
type Dependencies struct {
	Studio   Studio
	Accounts Accounts
	Auth     AuthProvider
	Catalog  *messages.Catalog
	Health   HealthChecker
	Status   StatusSource
	Metrics  MetricsProvider
	Limiter  *GenerateLimiter
	Logger   *logging.Logger
}

// NewServer wires the routes and middleware.
func NewServer(config ServerConfig, deps Dependencies) (*Server, error) {
	if deps.Studio == nil || deps.Accounts == nil || deps.Auth == nil {
		return nil, errors.New("webui: studio, accounts and auth are required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	defaults := DefaultServerConfig()
	if config.HistoryLimit < 1 {
		config.HistoryLimit = defaults.HistoryLimit
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = defaults.MaxBodyBytes
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = defaults.ShutdownTimeout
	}
	logger := deps.Logger.Named("http")

	var recorder RequestRecorder
	if deps.Metrics != nil {
		recorder = deps.Metrics
	}

	server := &Server{
		mux:     http.NewServeMux(),
		config:  config,
		logger:  logger,
		auth:    deps.Auth,
		metrics: deps.Metrics,
		api: &API{
			studio:       deps.Studio,
			accounts:     deps.Accounts,
			health:       deps.Health,
			status:       deps.Status,
			limiter:      deps.Limiter,
			respond:      NewResponder(deps.Catalog, config.DevMode, logger),
			logger:       logger,
			historyLimit: config.HistoryLimit,
		},
		loggingMw: NewLoggingMiddleware(LoggingMiddlewareConfig{
			Logger:    logger,
			Recorder:  recorder,
			SkipPaths: config.LogSkipPaths,
		}),
	}
	server.setupRoutes()

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server.httpServer = &http.Server{
		Addr:         addr,
		Handler:      server.Handler(),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	logger.Info("server created", zap.String("addr", addr))
	return server, nil
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /health", s.api.handleHealth)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}

	s.mux.HandleFunc("POST /api/auth/register", s.limitBody(s.auth.RegisterHandler()))
	s.mux.HandleFunc("POST /api/auth/login", s.limitBody(s.auth.LoginHandler()))
	s.mux.HandleFunc("POST /api/auth/logout", s.auth.LogoutHandler())

	s.mux.Handle("GET /api/me", s.protect(s.api.handleMe))
	s.mux.Handle("POST /api/generate", s.protect(s.limitBody(s.api.handleGenerate)))
	s.mux.Handle("POST /api/refine", s.protect(s.limitBody(s.api.handleRefine)))
	s.mux.Handle("GET /api/history", s.protect(s.api.handleListHistory))
	s.mux.Handle("DELETE /api/history/{id}", s.protect(s.api.handleDeleteHistory))
}

func (s *Server) protect(h http.HandlerFunc) http.Handler {
	return s.auth.Middleware(h)
}

func (s *Server) limitBody(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
		h(w, r)
	}
}

// Handler returns the routed handler wrapped in request logging.
func (s *Server) Handler() http.Handler {
	return RealIP(s.config.TrustedProxies, s.loggingMw.Handler(s.mux))
}

// Start listens until Shutdown is called. It returns nil after a graceful
// shutdown.
func (s *Server) Start() error {
	s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))

	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// StartTLS is Start over HTTPS.
func (s *Server) StartTLS(certFile, keyFile string) error {
	s.logger.Info("server starting with TLS", zap.String("addr", s.httpServer.Addr))

	err := s.httpServer.ListenAndServeTLS(certFile, keyFile)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("https server error: %w", err)
	}
	return nil
}

// Shutdown waits for in-flight requests, bounded by ShutdownTimeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown error: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
