// Package websocket binds the OCPP core to gorilla/websocket connections.
// Each connection gets one read goroutine, which routes its frames strictly
// in order, and one write goroutine that owns all data writes.
package websocket

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/cortex-x/go-ocpp-csms/internal/domain"
	"github.com/cortex-x/go-ocpp-csms/internal/infra/events"
	"github.com/cortex-x/go-ocpp-csms/internal/log"
	"github.com/cortex-x/go-ocpp-csms/internal/metrics"
	"github.com/cortex-x/go-ocpp-csms/internal/router"
	"github.com/cortex-x/go-ocpp-csms/internal/session"
)

// Hub tracks live connections and keeps the session registry in step with them.
type Hub struct {
	cfg        Config
	registry   *session.Registry
	router     *router.Router
	dispatcher *events.Dispatcher
	logger     zerolog.Logger

	mu      sync.RWMutex
	clients map[*session.Session]*Client
}

// NewHub creates a hub. A nil dispatcher discards lifecycle events.
func NewHub(cfg Config, registry *session.Registry, rt *router.Router, dispatcher *events.Dispatcher) *Hub {
	if dispatcher == nil {
		dispatcher = events.NewDispatcher(nil, 0)
	}
	return &Hub{
		cfg:        cfg.withDefaults(),
		registry:   registry,
		router:     rt,
		dispatcher: dispatcher,
		logger:     log.WithComponent("hub"),
		clients:    make(map[*session.Session]*Client),
	}
}

// Registry returns the session registry maintained by the hub.
func (h *Hub) Registry() *session.Registry {
	return h.registry
}

// Run drives the lifecycle event loop until ctx is cancelled or Shutdown is called.
func (h *Hub) Run(ctx context.Context) {
	h.dispatcher.Run(ctx)
}

// RegisterClient creates the session for a freshly upgraded connection and
// registers it under chargePointID. A previous connection holding the same
// identity is closed. The caller starts the client's pumps.
func (h *Hub) RegisterClient(conn *websocket.Conn, chargePointID, remoteAddr string) *Client {
	client := newClient(h, conn, remoteAddr)
	sess := session.New(chargePointID, client.enqueue)
	client.session = sess
	client.logger = client.logger.With().Str(log.FieldChargePointID, sess.ID()).Logger()

	h.mu.Lock()
	replaced := h.registry.Put(sess)
	h.clients[sess] = client
	var stale *Client
	if replaced != nil {
		stale = h.clients[replaced]
	}
	h.mu.Unlock()

	metrics.SetActiveSessions(h.registry.Count())
	metrics.RecordConnection("opened")

	client.logger.Info().Msg("charge point connected")

	if stale != nil {
		metrics.RecordConnection("replaced")
		client.logger.Warn().Str("stale_conn_id", stale.ID()).Msg("replacing existing connection")
		stale.CloseWithCode(websocket.ClosePolicyViolation, domain.CloseMsgReplaced)
	}

	h.dispatcher.Notify(domain.Event{
		Type:          domain.EventConnected,
		ChargePointID: sess.ID(),
		State:         sess.State(),
		Attributes:    map[string]string{"remoteAddr": remoteAddr, "connId": client.ID()},
	})
	return client
}

// unregisterClient tears down a connection's session. The registry entry is
// only removed while it still belongs to this connection.
func (h *Hub) unregisterClient(c *Client) {
	sess := c.session
	sess.SetState(domain.StateDisconnected)

	h.mu.Lock()
	delete(h.clients, sess)
	removed := h.registry.Delete(sess)
	h.mu.Unlock()

	metrics.SetActiveSessions(h.registry.Count())
	metrics.RecordConnection("closed")

	c.logger.Info().Bool("registry_removed", removed).Msg("charge point disconnected")

	h.dispatcher.Notify(domain.Event{
		Type:          domain.EventDisconnected,
		ChargePointID: sess.ID(),
		State:         domain.StateDisconnected,
		Attributes:    map[string]string{"connId": c.ID()},
	})
}

// Count returns the number of open connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown closes every connection with Going Away, waits for their read
// loops to unregister them, then flushes and stops the event loop.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.CloseWithCode(websocket.CloseGoingAway, domain.CloseMsgShuttingDown)
	}
	for _, c := range clients {
		select {
		case <-c.finished:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return h.dispatcher.Shutdown(ctx)
}
