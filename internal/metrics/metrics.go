// Package metrics provides Prometheus metrics for the central system.
// Labels never carry charge point identities or correlation ids.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesTotal counts routed inbound frames by action and outcome.
	FramesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "csms_frames_total",
		Help: "Total number of inbound OCPP frames, by action and outcome.",
	}, []string{"action", "outcome"})

	// HandlerDuration observes how long action handlers take.
	HandlerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "csms_handler_duration_seconds",
		Help:    "Action handler execution time, by action.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	}, []string{"action"})

	// ActiveSessions tracks registered charge point sessions.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "csms_active_sessions",
		Help: "Current number of connected charge points.",
	})

	// ConnectionsTotal counts websocket connection events.
	ConnectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "csms_connections_total",
		Help: "Total number of charge point connection events, by event (opened/closed/replaced/rate_limited).",
	}, []string{"event"})

	// EventsPublishedTotal counts lifecycle event publications by result.
	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "csms_events_published_total",
		Help: "Total number of lifecycle events handed to the publisher, by type and result.",
	}, []string{"type", "result"})
)

// Action labels used when the frame names no registered action.
const (
	ActionNone    = "none"
	ActionUnknown = "unknown"
)

// RecordFrame increments the frame counter. An empty action is recorded as
// ActionNone. Callers pass only registered action names; anything the charge
// point invented goes in as ActionUnknown.
func RecordFrame(action, outcome string) {
	if action == "" {
		action = ActionNone
	}
	FramesTotal.WithLabelValues(action, outcome).Inc()
}

// ObserveHandlerDuration records one handler execution.
func ObserveHandlerDuration(action string, d time.Duration) {
	HandlerDuration.WithLabelValues(action).Observe(d.Seconds())
}

// SetActiveSessions sets the session gauge.
func SetActiveSessions(n int) {
	ActiveSessions.Set(float64(n))
}

// RecordConnection increments the connection event counter.
func RecordConnection(event string) {
	ConnectionsTotal.WithLabelValues(event).Inc()
}

// RecordEventPublished increments the publish counter.
func RecordEventPublished(eventType string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	EventsPublishedTotal.WithLabelValues(eventType, result).Inc()
}
