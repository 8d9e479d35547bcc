package websocket

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/cortex-x/go-ocpp-csms/internal/domain"
	"github.com/cortex-x/go-ocpp-csms/internal/log"
	"github.com/cortex-x/go-ocpp-csms/internal/metrics"
	"github.com/cortex-x/go-ocpp-csms/internal/session"
)

var (
	// ErrConnectionClosed is returned when writing to a closed connection.
	ErrConnectionClosed = errors.New("connection closed")
	// ErrSendBufferFull is returned when the peer does not drain its frames.
	ErrSendBufferFull = errors.New("send buffer full")
)

// Client is one charge point connection.
type Client struct {
	id         string
	conn       *websocket.Conn
	hub        *Hub
	session    *session.Session
	remoteAddr string
	limiter    *rate.Limiter
	logger     zerolog.Logger

	send       chan []byte
	done       chan struct{}
	finished   chan struct{}
	mu         sync.RWMutex
	closed     bool
	unregister sync.Once
}

func newClient(h *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	id := uuid.New().String()
	return &Client{
		id:         id,
		conn:       conn,
		hub:        h,
		remoteAddr: remoteAddr,
		limiter:    h.cfg.RateLimit.limiter(),
		logger: log.WithComponent("websocket").With().
			Str(log.FieldConnID, id).
			Str(log.FieldRemoteAddr, remoteAddr).
			Logger(),
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
}

// ID returns the connection id. Reconnects of one charge point get distinct ids.
func (c *Client) ID() string {
	return c.id
}

// Session returns the session bound to this connection.
func (c *Client) Session() *session.Session {
	return c.session
}

func (c *Client) enqueue(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnectionClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// CloseWithCode sends a close frame and shuts the connection down. Only the
// first call has any effect.
func (c *Client) CloseWithCode(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)

	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	_ = c.conn.Close()
}

func (c *Client) allow() bool {
	if c.limiter == nil {
		return true
	}
	return c.limiter.Allow()
}

// WritePump drains queued frames onto the connection and keeps it alive
// with pings. It is the only goroutine writing data frames.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.hub.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Warn().Err(err).Msg("write failed")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug().Err(err).Msg("ping failed")
				return
			}
		case <-c.done:
			return
		}
	}
}

// ReadPump reads frames one at a time and routes each before reading the
// next, so a charge point's requests are handled in arrival order.
func (c *Client) ReadPump() {
	defer c.finish()

	cfg := c.hub.cfg
	c.conn.SetReadLimit(cfg.MaxMessageBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("unexpected close")
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))

		if !c.allow() {
			metrics.RecordConnection("rate_limited")
			c.logger.Warn().Msg("rate limit exceeded")
			c.CloseWithCode(websocket.ClosePolicyViolation, domain.CloseMsgRateLimited)
			return
		}

		if messageType != websocket.TextMessage {
			c.logger.Warn().Int("frame_type", messageType).Msg("binary frame rejected")
			c.CloseWithCode(websocket.CloseUnsupportedData, "text frames only")
			return
		}

		resp := c.hub.router.Route(c.session, data)
		if resp == nil {
			continue
		}
		if err := c.session.Send(resp); err != nil {
			c.logger.Warn().
				Err(err).
				Str(log.FieldCorrelationID, resp.CorrelationID()).
				Msg("failed to send response")
			if errors.Is(err, ErrConnectionClosed) || errors.Is(err, ErrSendBufferFull) {
				return
			}
		}
	}
}

func (c *Client) finish() {
	c.unregister.Do(func() {
		c.CloseWithCode(websocket.CloseNormalClosure, "")
		c.hub.unregisterClient(c)
		close(c.finished)
	})
}
