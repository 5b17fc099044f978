// Package api hosts the GearGuard HTTP server: middleware, the /api/v2 routes and /metrics.
package api

import (
	"context"
	"net/http"
	"time"

	apiv2 "github.com/amshithnair/gearguard-odoo/internal/api/v2"
	"github.com/amshithnair/gearguard-odoo/internal/conf"
	"github.com/amshithnair/gearguard-odoo/internal/errors"
	"github.com/amshithnair/gearguard-odoo/internal/logger"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	defaultShutdownTimeout = 10 * time.Second
	bodyLimit              = "1M"
)

// Server owns the echo instance and the v2 controller.
type Server struct {
	echo       *echo.Echo
	controller *apiv2.Controller
	settings   *conf.WebServerSettings
	log        logger.Logger
}

// Option customizes a Server.
type Option func(*Server)

// WithMetricsHandler serves h at path outside the /api/v2 group.
func WithMetricsHandler(path string, h http.Handler) Option {
	return func(s *Server) {
		if path == "" {
			path = "/metrics"
		}
		s.echo.GET(path, echo.WrapHandler(h))
	}
}

// New builds the server and registers every route. ctx bounds long-lived work
// started over HTTP such as websocket sessions.
func New(ctx context.Context, settings *conf.WebServerSettings, deps apiv2.Deps, log logger.Logger, opts ...Option) *Server {
	if log == nil {
		log = logger.Global()
	}
	log = log.Module("http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Debug = settings.Debug

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestContext)
	e.Use(middleware.BodyLimit(bodyLimit))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			fields := []logger.Field{
				logger.String("method", v.Method),
				logger.String("uri", v.URI),
				logger.Int("status", v.Status),
				logger.Duration("latency", v.Latency),
				logger.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				log.Warn("request failed", append(fields, logger.Error(v.Error))...)
				return nil
			}
			log.Debug("request", fields...)
			return nil
		},
	}))

	s := &Server{
		echo:     e,
		settings: settings,
		log:      log,
	}
	s.controller = apiv2.New(ctx, e, deps, log)

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// requestContext copies the request id into the request context so loggers pick it up.
func requestContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
			req := c.Request()
			c.SetRequest(req.WithContext(logger.ContextWithRequestID(req.Context(), id)))
		}
		return next(c)
	}
}

// Echo exposes the router, mainly for tests.
func (s *Server) Echo() *echo.Echo { return s.echo }

// Start listens until Shutdown is called. A clean shutdown returns nil.
func (s *Server) Start() error {
	s.log.Info("http server listening", logger.String("address", s.settings.Listen))
	if err := s.echo.Start(s.settings.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.New(err).
			Component("http").
			Category(errors.CategoryNetwork).
			Context("listen", s.settings.Listen).
			Build()
	}
	return nil
}

// Shutdown disconnects live feed clients and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.controller.Close()

	timeout := s.settings.ShutdownTimeout.Std()
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}
