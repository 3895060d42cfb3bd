// Package outbox drains undispatched OutboxEvents to the notification
// service on a fixed interval, following the ticker-based polling pattern
// the teacher's lesson material and the pack's outbox examples both use.
// Each event is claimed with FOR UPDATE SKIP LOCKED and marked dispatched
// in the same database transaction as the claim, so the lock genuinely
// covers the whole claim-dispatch-mark sequence and two dispatcher
// instances can never deliver the same event. Delivery goes through a
// watermill message.Publisher, the same abstraction the teacher's
// pubsub.NewRedisPublisher wraps in tracing.PublisherDecorator, so trace
// and correlation context ride the message metadata rather than being
// threaded by hand.
package outbox

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel"

	"ordersaga/correlation"
	"ordersaga/entity"
	"ordersaga/metrics"
)

// orderEventsTopic is the single topic every outbox-derived message is
// published to; NotificationClient.Publish ignores the topic name itself
// and routes purely on the message's event_type metadata.
const orderEventsTopic = "order-events"

// Store is the persistence contract the Dispatcher needs. dispatch runs
// while the claimed row's lock is still held, and the implementation must
// only mark the row dispatched when dispatch returns nil.
type Store interface {
	ClaimAndDispatchOutboxEvent(ctx context.Context, dispatch func(context.Context, entity.OutboxEvent) error) (claimed bool, dispatchErr error, err error)
}

// Dispatcher polls Store for undispatched events every Interval and claims
// up to BatchSize of them per tick, fanned out across up to Concurrency
// workers that each claim-dispatch-mark one event at a time.
type Dispatcher struct {
	Store       Store
	Publisher   message.Publisher
	Interval    time.Duration
	BatchSize   int
	Concurrency int
}

func (d *Dispatcher) interval() time.Duration {
	if d.Interval > 0 {
		return d.Interval
	}
	return 60 * time.Second
}

func (d *Dispatcher) batchSize() int {
	if d.BatchSize > 0 {
		return d.BatchSize
	}
	return 100
}

func (d *Dispatcher) concurrency() int {
	if d.Concurrency > 0 {
		return d.Concurrency
	}
	return 16
}

// Run ticks immediately on start and then every Interval until ctx is
// cancelled. Ticks run one at a time on Run's own goroutine, so a tick that
// comes due while the previous one is still running is dropped by the
// ticker rather than overlapping; the TryLock below also skips a tick if
// one is already in progress.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval())
	defer ticker.Stop()

	var tickMu sync.Mutex

	tick := func() {
		if !tickMu.TryLock() {
			return
		}
		defer tickMu.Unlock()
		d.dispatchOnce(ctx)
	}

	tick()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			tick()
		}
	}
}

// dispatchOnce runs up to Concurrency workers, each repeatedly claiming and
// dispatching one event at a time until either no undispatched events are
// left or the tick's BatchSize budget is exhausted.
func (d *Dispatcher) dispatchOnce(ctx context.Context) {
	limit := d.batchSize()
	var (
		mu       sync.Mutex
		reserved int
	)
	reserveSlot := func() bool {
		mu.Lock()
		defer mu.Unlock()
		if reserved >= limit {
			return false
		}
		reserved++
		return true
	}

	var wg sync.WaitGroup
	for i := 0; i < d.concurrency(); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for reserveSlot() {
				claimed, dispatchErr, err := d.Store.ClaimAndDispatchOutboxEvent(ctx, d.dispatchEvent)
				if err != nil {
					correlation.Logger(ctx).WithError(err).Error("outbox: failed to claim outbox event")
					return
				}
				if !claimed {
					return
				}
				if dispatchErr != nil {
					// Already logged by dispatchEvent. Stop this worker for
					// the tick instead of immediately reclaiming the same
					// row — it is still the oldest undispatched row and
					// would otherwise get hot-looped by every worker until
					// BatchSize is exhausted.
					return
				}
			}
		}()
	}
	wg.Wait()
}

// dispatchEvent is handed to Store.ClaimAndDispatchOutboxEvent as the
// dispatch callback: it runs while the event's row lock is still held, so
// a returned error leaves the row undispatched for the next claim to retry
// instead of marking it delivered.
func (d *Dispatcher) dispatchEvent(ctx context.Context, evt entity.OutboxEvent) error {
	ctx, span := otel.Tracer("ordersaga/outbox").Start(ctx, "outbox.dispatch")
	defer span.End()

	start := time.Now()
	defer func() { metrics.OutboxDispatchDuration.Observe(time.Since(start).Seconds()) }()

	log := correlation.Logger(ctx).WithFields(map[string]interface{}{
		"outbox_event_id": evt.ID,
		"event_type":      evt.EventType,
	})

	// Decoded only to fail fast on a corrupt row; the raw bytes still go
	// out as the message payload.
	var payload map[string]interface{}
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		log.WithError(err).Error("outbox: undecodable payload, will retry next tick")
		metrics.OutboxDispatchFailedTotal.Inc()
		return err
	}

	ctx = correlation.WithID(ctx, evt.CorrelationID)

	msg := message.NewMessage(evt.ID, evt.Payload)
	msg.Metadata.Set("event_type", string(evt.EventType))
	msg.Metadata.Set("aggregate_id", evt.AggregateID)
	msg.Metadata.Set(correlation.HeaderName, evt.CorrelationID)
	msg.SetContext(ctx)

	if err := d.Publisher.Publish(orderEventsTopic, msg); err != nil {
		log.WithError(err).Warn("outbox: dispatch failed, will retry next tick")
		metrics.OutboxDispatchFailedTotal.Inc()
		return err
	}

	return nil
}
