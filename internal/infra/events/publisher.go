// Package events publishes charge point lifecycle events.
package events

import (
	"context"

	"github.com/cortex-x/go-ocpp-csms/internal/domain"
)

// Publisher delivers lifecycle events to an external system.
type Publisher interface {
	Publish(ctx context.Context, event domain.Event) error
	Close() error
}

// NoOpPublisher discards every event.
type NoOpPublisher struct{}

func (NoOpPublisher) Publish(context.Context, domain.Event) error { return nil }

func (NoOpPublisher) Close() error { return nil }

// CallbackPublisher hands each event to a function.
type CallbackPublisher struct {
	callback func(ctx context.Context, event domain.Event) error
}

func NewCallbackPublisher(cb func(ctx context.Context, event domain.Event) error) *CallbackPublisher {
	return &CallbackPublisher{callback: cb}
}

func (p *CallbackPublisher) Publish(ctx context.Context, event domain.Event) error {
	return p.callback(ctx, event)
}

func (p *CallbackPublisher) Close() error { return nil }
