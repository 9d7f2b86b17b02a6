// Package http provides the workflow simulation API.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/otelsim/internal/config"
	"github.com/fyrsmithlabs/otelsim/internal/logging"
	"github.com/fyrsmithlabs/otelsim/internal/simulator"
	"github.com/fyrsmithlabs/otelsim/internal/telemetry"
)

// Server exposes the simulator over HTTP.
type Server struct {
	echo      *echo.Echo
	simulator *simulator.Service
	telemetry *telemetry.Telemetry
	logger    *logging.Logger
	config    *config.ServerConfig
	startedAt time.Time
}

// NewServer creates the HTTP server with routes and middleware wired.
func NewServer(sim *simulator.Service, tel *telemetry.Telemetry, logger *logging.Logger, cfg *config.ServerConfig) (*Server, error) {
	if sim == nil {
		return nil, fmt.Errorf("simulator service cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		def := config.NewDefaultConfig().Server
		cfg = &def
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:      e,
		simulator: sim,
		telemetry: tel,
		logger:    logger,
		config:    cfg,
		startedAt: time.Now(),
	}

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.requestContextMiddleware())
	if cfg.RateLimit > 0 {
		e.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
				Rate:  rate.Limit(cfg.RateLimit),
				Burst: cfg.RateBurst,
			}),
		}))
	}
	e.Use(s.tracingMiddleware())
	e.Use(NewHTTPMetrics(tel.Meter(httpInstrumentationName), logger.Underlying()).Middleware())
	e.Use(s.loggingMiddleware())

	s.registerRoutes()

	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/health/ping", s.handlePing)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/simulate/workflow/simple", s.handleSimulate(simulator.VariantSimple))
	v1.POST("/simulate/workflow/medium", s.handleSimulate(simulator.VariantMedium))
	v1.POST("/simulate/workflow/complex", s.handleSimulate(simulator.VariantComplex))
	v1.POST("/simulate/workflow/error", s.handleSimulateError)
}

// requestContextMiddleware copies the echo request ID into the request
// context so log lines inside the simulator carry it.
func (s *Server) requestContextMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			if requestID != "" {
				req := c.Request()
				c.SetRequest(req.WithContext(logging.WithRequestID(req.Context(), requestID)))
			}
			return next(c)
		}
	}
}

func (s *Server) loggingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			s.logger.Info(c.Request().Context(), "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	}
}

// Handler returns the underlying handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
