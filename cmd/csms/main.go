package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/cortex-x/go-ocpp-csms/internal/action"
	"github.com/cortex-x/go-ocpp-csms/internal/api"
	"github.com/cortex-x/go-ocpp-csms/internal/config"
	"github.com/cortex-x/go-ocpp-csms/internal/infra/events"
	"github.com/cortex-x/go-ocpp-csms/internal/infra/websocket"
	"github.com/cortex-x/go-ocpp-csms/internal/log"
	"github.com/cortex-x/go-ocpp-csms/internal/router"
	"github.com/cortex-x/go-ocpp-csms/internal/session"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Configure(log.Config{})
		logger := log.Base()
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	log.Configure(log.Config{Level: cfg.Log.Level, Service: "csms"})
	logger := log.WithComponent("main")

	publisher, err := newPublisher(cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("url", cfg.Events.NATSURL).Msg("failed to connect event publisher")
	}
	dispatcher := events.NewDispatcher(publisher, events.DefaultQueueSize)

	handlers := action.New(action.Config{
		HeartbeatInterval: cfg.OCPP.HeartbeatInterval,
		Notifier:          dispatcher,
	})
	rt, err := router.New(handlers.Routes()...)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build router")
	}

	hub := websocket.NewHub(websocketConfig(cfg), session.NewRegistry(), rt, dispatcher)
	server := api.NewServer(cfg, hub)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	logger.Info().Strs("actions", rt.Actions()).Msg("central system ready")

	<-ctx.Done()
	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	logger.Info().Msg("server exited")
}

func newPublisher(cfg *config.Config) (events.Publisher, error) {
	if cfg.Events.NATSURL == "" {
		return events.NoOpPublisher{}, nil
	}
	pub, err := events.Connect(cfg.Events.NATSURL, "csms", cfg.Events.SubjectPrefix)
	if err != nil {
		return nil, err
	}
	return pub, nil
}

func websocketConfig(cfg *config.Config) websocket.Config {
	return websocket.Config{
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		PingInterval:    cfg.Server.PingInterval,
		MaxMessageBytes: cfg.Server.MaxMessageBytes,
		RateLimit: websocket.RateLimitConfig{
			MessagesPerSecond: rate.Limit(cfg.RateLimit.MessagesPerSecond),
			Burst:             cfg.RateLimit.Burst,
			Enabled:           cfg.RateLimit.Enabled,
		},
	}
}
