// Package api serves the charge point websocket endpoint and the HTTP
// management routes.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/cortex-x/go-ocpp-csms/internal/config"
	"github.com/cortex-x/go-ocpp-csms/internal/infra/websocket"
	"github.com/cortex-x/go-ocpp-csms/internal/log"
)

type Server struct {
	echo    *echo.Echo
	config  *config.Config
	hub     *websocket.Hub
	handler *Handler
	logger  zerolog.Logger
}

func NewServer(cfg *config.Config, hub *websocket.Hub) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	logger := log.WithComponent("api")

	// Middleware
	e.Use(requestLogger(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	handler := NewHandler(hub, cfg.Server.Path)

	// Routes
	e.GET("/health", handler.HealthCheck)
	e.GET("/sessions", handler.ListSessions)
	e.GET("/sessions/:id", handler.GetSession)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	base := strings.TrimSuffix(cfg.Server.Path, "/")
	if base != "" {
		e.GET(base, handler.WebSocketHandler)
	}
	e.GET(base+"/*", handler.WebSocketHandler)

	return &Server{
		echo:    e,
		config:  cfg,
		hub:     hub,
		handler: handler,
		logger:  logger,
	}
}

func requestLogger(logger zerolog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := logger.Info()
			if v.Error != nil {
				event = logger.Warn().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str(log.FieldRemoteAddr, v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}

// Handler exposes the router for in-process use.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start runs the hub's event loop and blocks serving HTTP until Shutdown.
// The event loop outlives the HTTP listener; only Shutdown stops it.
func (s *Server) Start() error {
	go s.hub.Run(context.Background())

	addr := s.config.Addr()
	s.logger.Info().Str("addr", addr).Str("path", s.config.Server.Path).Msg("starting OCPP server")

	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then closes every charge point
// connection and flushes pending events.
func (s *Server) Shutdown(ctx context.Context) error {
	httpErr := s.echo.Shutdown(ctx)
	hubErr := s.hub.Shutdown(ctx)
	return errors.Join(httpErr, hubErr)
}
