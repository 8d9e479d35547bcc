package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/cortex-x/go-ocpp-csms/internal/domain"
	"github.com/cortex-x/go-ocpp-csms/internal/log"
	"github.com/cortex-x/go-ocpp-csms/internal/metrics"
)

// DefaultQueueSize is the number of events buffered ahead of the publisher.
const DefaultQueueSize = 1024

var errEventDropped = errors.New("event queue full")

// Dispatcher queues events raised on connection goroutines and publishes
// them from a single loop, so a slow broker never stalls frame handling.
type Dispatcher struct {
	publisher Publisher
	queue     chan domain.Event
	logger    zerolog.Logger

	quit     chan struct{}
	quitOnce sync.Once
	running  atomic.Bool
	done     chan struct{}
}

// NewDispatcher creates a dispatcher. A nil publisher discards events.
func NewDispatcher(publisher Publisher, queueSize int) *Dispatcher {
	if publisher == nil {
		publisher = NoOpPublisher{}
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Dispatcher{
		publisher: publisher,
		queue:     make(chan domain.Event, queueSize),
		logger:    log.WithComponent("events"),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Notify queues an event. It never blocks; when the queue is full the
// event is dropped and counted.
func (d *Dispatcher) Notify(e domain.Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	select {
	case d.queue <- e:
	default:
		metrics.RecordEventPublished(string(e.Type), errEventDropped)
		d.logger.Warn().
			Str(log.FieldChargePointID, e.ChargePointID).
			Str("event", string(e.Type)).
			Msg("event queue full, dropping event")
	}
}

// Run publishes queued events until ctx is cancelled or Shutdown is called.
// Only the first call runs; later calls, and calls after Shutdown, return immediately.
func (d *Dispatcher) Run(ctx context.Context) {
	if !d.running.CompareAndSwap(false, true) {
		return
	}
	defer close(d.done)

	for {
		select {
		case e := <-d.queue:
			d.publish(ctx, e)
		case <-d.quit:
			d.drain(ctx)
			return
		case <-ctx.Done():
			d.drain(context.WithoutCancel(ctx))
			return
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	for {
		select {
		case e := <-d.queue:
			d.publish(ctx, e)
		default:
			return
		}
	}
}

func (d *Dispatcher) publish(ctx context.Context, e domain.Event) {
	err := d.publisher.Publish(ctx, e)
	metrics.RecordEventPublished(string(e.Type), err)
	if err != nil {
		d.logger.Error().
			Err(err).
			Str(log.FieldChargePointID, e.ChargePointID).
			Str("event", string(e.Type)).
			Msg("failed to publish event")
	}
}

// Shutdown stops the loop, publishes everything still queued (including
// events raised after the loop stopped) and closes the publisher.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.quitOnce.Do(func() { close(d.quit) })
	if d.running.CompareAndSwap(false, true) {
		close(d.done)
	}
	select {
	case <-d.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	d.drain(ctx)
	return d.publisher.Close()
}
