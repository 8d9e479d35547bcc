// Package session holds per-connection charge point state and the
// process-wide registry of live sessions.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cortex-x/go-ocpp-csms/internal/domain"
	"github.com/cortex-x/go-ocpp-csms/internal/log"
	"github.com/cortex-x/go-ocpp-csms/internal/ocpp"
)

// ErrNoTransport is returned by Send when the session has no send capability.
var ErrNoTransport = errors.New("session has no transport")

// SendFunc writes one encoded text frame to the underlying connection.
type SendFunc func(data []byte) error

// Session is the server-side state of one connected charge point.
//
// Frames of a single connection are routed sequentially, so handler
// mutations never race each other. The mutex only guards against readers
// outside the connection's worker, such as the registry listing.
type Session struct {
	id          string
	send        SendFunc
	connectedAt time.Time
	logger      zerolog.Logger

	mu        sync.RWMutex
	state     domain.ChargePointState
	vendor    string
	model     string
	pendingID string
}

// New creates a session in the Connected state.
func New(id string, send SendFunc) *Session {
	if id == "" {
		id = domain.DefaultChargePointID
	}
	return &Session{
		id:          id,
		send:        send,
		connectedAt: time.Now().UTC(),
		logger:      log.WithComponent("session").With().Str(log.FieldChargePointID, id).Logger(),
		state:       domain.StateConnected,
	}
}

// ID returns the charge point identity.
func (s *Session) ID() string {
	return s.id
}

// ConnectedAt returns when the session was created.
func (s *Session) ConnectedAt() time.Time {
	return s.connectedAt
}

// Logger returns a logger annotated with the charge point identity.
func (s *Session) Logger() *zerolog.Logger {
	return &s.logger
}

func (s *Session) State() domain.ChargePointState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// SetState overwrites the state unconditionally and returns the previous one.
func (s *Session) SetState(state domain.ChargePointState) domain.ChargePointState {
	s.mu.Lock()
	old := s.state
	s.state = state
	s.mu.Unlock()

	if old != state {
		s.logger.Info().
			Str(log.FieldOldState, old.String()).
			Str(log.FieldNewState, state.String()).
			Msg("state changed")
	}
	return old
}

func (s *Session) Vendor() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vendor
}

func (s *Session) Model() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

// SetIdentity records the vendor and model reported at boot.
func (s *Session) SetIdentity(vendor, model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vendor = vendor
	s.model = model
}

// PendingCorrelationID is the unique id of the request currently being answered.
func (s *Session) PendingCorrelationID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pendingID
}

func (s *Session) SetPendingCorrelationID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingID = id
}

// Send encodes msg and writes it to the connection.
func (s *Session) Send(msg ocpp.Message) error {
	if s.send == nil {
		return ErrNoTransport
	}
	data, err := ocpp.Encode(msg)
	if err != nil {
		return err
	}
	if err := s.send(data); err != nil {
		return fmt.Errorf("send to %s: %w", s.id, err)
	}
	return nil
}

// Info is a point-in-time copy of a session's observable fields.
type Info struct {
	ID          string                  `json:"id"`
	State       domain.ChargePointState `json:"state"`
	Vendor      string                  `json:"vendor,omitempty"`
	Model       string                  `json:"model,omitempty"`
	ConnectedAt time.Time               `json:"connectedAt"`
}

// Snapshot returns the session's fields under a single lock.
func (s *Session) Snapshot() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Info{
		ID:          s.id,
		State:       s.state,
		Vendor:      s.vendor,
		Model:       s.model,
		ConnectedAt: s.connectedAt,
	}
}
