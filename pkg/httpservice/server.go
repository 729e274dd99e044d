// Package httpservice assembles the gin engine, its middleware chain and the
// HTTP server lifecycle, and provides form binding and error rendering for handlers.
package httpservice

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourorg/pdf-service/pkg/logging"
	"github.com/yourorg/pdf-service/pkg/middleware"
)

// Server wraps a Gin server with configuration and middleware.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	logger     logging.Logger
	port       int
	stop       context.CancelFunc
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	ServiceName  string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	Logger       logging.Logger

	RateLimitRPS   float64 // 0 disables rate limiting
	RateLimitBurst int
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxBodySize    int64 // bytes; 0 disables the limit

	// SlowRequestMs enables slow request and server error alerts when either client is set.
	SlowRequestMs int64
	Telemetry     middleware.TelemetryClient
	Slack         middleware.SlackClient

	// Middleware runs after the built-in chain, before handlers.
	Middleware []gin.HandlerFunc

	// Ready backs GET /ready. Nil reports ready.
	Ready func(ctx context.Context) error
}

// Handler defines an interface for registering HTTP handlers.
type Handler interface {
	Register(router *gin.Engine)
}

// NewServer creates a new HTTP server with the provided configuration and handlers.
func NewServer(cfg ServerConfig, handlers ...Handler) (*Server, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "pdf-service"
	}

	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := context.WithCancel(context.Background())
	router := NewRouter(ctx, cfg)

	for _, handler := range handlers {
		handler.Register(router)
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &Server{
		router:     router,
		httpServer: httpServer,
		logger:     cfg.Logger,
		port:       cfg.Port,
		stop:       stop,
	}, nil
}

// NewRouter builds the engine with the full middleware chain and the health
// routes. Background work started for the chain stops when ctx is done.
func NewRouter(ctx context.Context, cfg ServerConfig) *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true

	router.Use(RecoveryMiddleware(cfg.Logger))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.TracingMiddleware(cfg.Logger, cfg.ServiceName))
	router.Use(middleware.ContextLoggerMiddleware(cfg.Logger, cfg.ServiceName))
	router.Use(AccessLogMiddleware(cfg.Logger))
	router.Use(SecurityHeadersMiddleware())

	allowedMethods := []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodOptions}
	router.Use(HTTPMethodWhitelistMiddleware(allowedMethods, cfg.Logger))

	router.Use(CORSMiddleware(CORSConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: cfg.AllowedMethods,
		AllowedHeaders: cfg.AllowedHeaders,
	}))

	if cfg.RateLimitRPS > 0 {
		router.Use(RateLimitMiddleware(ctx, RateLimitConfig{
			RPS:   cfg.RateLimitRPS,
			Burst: cfg.RateLimitBurst,
		}))
	}

	if cfg.MaxBodySize > 0 {
		router.Use(RequestSizeLimitMiddleware(cfg.MaxBodySize, cfg.Logger))
	}

	if cfg.Telemetry != nil || cfg.Slack != nil {
		router.Use(middleware.SlowRequestMiddleware(ctx, cfg.SlowRequestMs, cfg.Telemetry, cfg.Slack, cfg.Logger))
	}
	router.Use(middleware.ErrorHandlerMiddleware(cfg.Logger))
	router.Use(cfg.Middleware...)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": cfg.ServiceName})
	})
	router.GET("/ready", func(c *gin.Context) {
		if cfg.Ready != nil {
			if err := cfg.Ready(c.Request.Context()); err != nil {
				GetLogger(c).Warn("Readiness check failed", logging.NewField("error", err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	return router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", logging.NewField("port", s.port))

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	defer s.stop()
	return s.httpServer.Shutdown(ctx)
}

// Router returns the underlying Gin router.
func (s *Server) Router() *gin.Engine {
	return s.router
}
