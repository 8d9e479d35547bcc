package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/cortex-x/go-ocpp-csms/internal/domain"
	"github.com/cortex-x/go-ocpp-csms/internal/log"
)

// DefaultSubjectPrefix is used when no prefix is configured.
const DefaultSubjectPrefix = "csms.chargepoint"

// NATSPublisher publishes events as JSON to <prefix>.<chargePointId>.<type>.
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
	logger zerolog.Logger
}

// NewNATSPublisher wraps an established connection.
func NewNATSPublisher(nc *nats.Conn, prefix string) *NATSPublisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSPublisher{
		nc:     nc,
		prefix: strings.TrimSuffix(prefix, "."),
		logger: log.WithComponent("events"),
	}
}

// Connect dials url and returns a publisher that owns the connection.
func Connect(url, name, prefix string) (*NATSPublisher, error) {
	logger := log.WithComponent("events")

	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(60),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}

	logger.Info().Str("url", nc.ConnectedUrl()).Msg("connected to nats")
	return NewNATSPublisher(nc, prefix), nil
}

// Subject returns the subject an event is published on.
func (p *NATSPublisher) Subject(event domain.Event) string {
	return p.prefix + "." + subjectToken(event.ChargePointID) + "." + string(event.Type)
}

func (p *NATSPublisher) Publish(_ context.Context, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}
	subject := p.Subject(event)
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	p.logger.Debug().Str(log.FieldSubject, subject).Msg("published event")
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.nc.Drain()
}

// subjectToken makes id safe for use as a single NATS subject token.
func subjectToken(id string) string {
	if id == "" {
		return domain.DefaultChargePointID
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, id)
}
