// Package action implements the OCPP 1.6 actions a charge point may call on
// the central system.
package action

import (
	"time"

	"github.com/cortex-x/go-ocpp-csms/internal/domain"
	"github.com/cortex-x/go-ocpp-csms/internal/ocpp"
	"github.com/cortex-x/go-ocpp-csms/internal/router"
	"github.com/cortex-x/go-ocpp-csms/internal/session"
)

// Action names.
const (
	BootNotification   = "BootNotification"
	Heartbeat          = "Heartbeat"
	Authorize          = "Authorize"
	StartTransaction   = "StartTransaction"
	StopTransaction    = "StopTransaction"
	StatusNotification = "StatusNotification"
	MeterValues        = "MeterValues"
)

// DefaultHeartbeatInterval is the interval, in seconds, returned on boot.
const DefaultHeartbeatInterval = 300

// Notifier receives lifecycle events raised by handlers.
type Notifier interface {
	Notify(event domain.Event)
}

// Config configures the handlers.
type Config struct {
	// HeartbeatInterval is returned in BootNotification responses. Zero means DefaultHeartbeatInterval.
	HeartbeatInterval int
	// Notifier is optional.
	Notifier Notifier
	// Now defaults to time.Now.
	Now func() time.Time
}

// Handlers holds the shared dependencies of every action handler.
type Handlers struct {
	interval     int
	notifier     Notifier
	now          func() time.Time
	transactions *TransactionIDs
}

func New(cfg Config) *Handlers {
	h := &Handlers{
		interval:     cfg.HeartbeatInterval,
		notifier:     cfg.Notifier,
		now:          cfg.Now,
		transactions: &TransactionIDs{},
	}
	if h.interval <= 0 {
		h.interval = DefaultHeartbeatInterval
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

// Routes returns the router table for every supported action.
func (h *Handlers) Routes() []router.Route {
	return []router.Route{
		{Action: BootNotification, Handler: h.BootNotification},
		{Action: Heartbeat, Handler: h.Heartbeat},
		{Action: Authorize, Handler: h.Authorize},
		{Action: StartTransaction, Handler: h.StartTransaction},
		{Action: StopTransaction, Handler: h.StopTransaction},
		{Action: StatusNotification, Handler: h.StatusNotification},
		{Action: MeterValues, Handler: h.MeterValues},
	}
}

func (h *Handlers) currentTime() string {
	return h.now().UTC().Format(time.RFC3339)
}

func (h *Handlers) notify(s *session.Session, typ domain.EventType, attrs map[string]string) {
	if h.notifier == nil {
		return
	}
	h.notifier.Notify(domain.Event{
		Type:          typ,
		ChargePointID: s.ID(),
		State:         s.State(),
		Timestamp:     h.now().UTC(),
		Attributes:    attrs,
	})
}

// result wraps v in a CallResult addressed to the request being answered.
func result(s *session.Session, v any) (ocpp.Message, error) {
	res, err := ocpp.NewCallResult(s.PendingCorrelationID(), v)
	if err != nil {
		return nil, err
	}
	return res, nil
}
