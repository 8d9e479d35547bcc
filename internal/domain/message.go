package domain

import "time"

// EventType names a charge point lifecycle event.
type EventType string

const (
	EventConnected          EventType = "connected"
	EventDisconnected       EventType = "disconnected"
	EventBooted             EventType = "booted"
	EventStatusChanged      EventType = "status_changed"
	EventTransactionStarted EventType = "transaction_started"
	EventTransactionStopped EventType = "transaction_stopped"
)

// Event is published whenever a connection opens or closes or a handler
// changes something observable about a charge point.
type Event struct {
	Type          EventType         `json:"type"`
	ChargePointID string            `json:"chargePointId"`
	State         ChargePointState  `json:"state"`
	Timestamp     time.Time         `json:"timestamp"`
	Attributes    map[string]string `json:"attributes,omitempty"`
}

// Websocket close reasons sent to charge points.
const (
	CloseMsgRateLimited  = "Rate limit exceeded"
	CloseMsgShuttingDown = "Server shutting down"
	CloseMsgReplaced     = "Replaced by a newer connection"
)

// DefaultChargePointID is used when the connection path carries no identity.
const DefaultChargePointID = "unknown"
