package outbox

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"ordersaga/entity"
)

// fakeOutboxStore mimics the real Store's claim-dispatch-mark atomicity:
// the lock (here, a plain mutex held for the whole call) covers the
// candidate pick, the dispatch callback, and the dispatched-flag write, so
// a failed dispatch genuinely leaves the row available for the next claim
// instead of it having already been handed out to a concurrent caller.
type fakeOutboxStore struct {
	mu         sync.Mutex
	events     []entity.OutboxEvent
	dispatched map[string]bool
}

func newFakeOutboxStore(events ...entity.OutboxEvent) *fakeOutboxStore {
	return &fakeOutboxStore{events: events, dispatched: make(map[string]bool)}
}

func (s *fakeOutboxStore) ClaimAndDispatchOutboxEvent(ctx context.Context, dispatch func(context.Context, entity.OutboxEvent) error) (bool, error, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var evt entity.OutboxEvent
	found := false
	for _, e := range s.events {
		if !s.dispatched[e.ID] {
			evt = e
			found = true
			break
		}
	}
	if !found {
		return false, nil, nil
	}

	if err := dispatch(ctx, evt); err != nil {
		return true, err, nil
	}

	s.dispatched[evt.ID] = true
	return true, nil, nil
}

func (s *fakeOutboxStore) remainingUndispatched() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if !s.dispatched[e.ID] {
			n++
		}
	}
	return n
}

// fakePublisher is an in-memory stand-in for message.Publisher, covering
// exactly what the Dispatcher needs: record what it was handed, and
// optionally fail a specific message by UUID.
type fakePublisher struct {
	mu   sync.Mutex
	sent []*message.Message
	fail map[string]bool
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{fail: make(map[string]bool)}
}

func (p *fakePublisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, msg := range messages {
		p.sent = append(p.sent, msg)
		if p.fail[msg.UUID] {
			return entity.NewError(entity.KindUpstreamUnavailable, "notification service unreachable")
		}
	}
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func confirmedEvent(id string) entity.OutboxEvent {
	payload, _ := json.Marshal(entity.OrderConfirmedPayload{OrderID: 1})
	return entity.OutboxEvent{
		ID:            id,
		AggregateType: "Order",
		EventType:     entity.OutboxEventOrderConfirmed,
		Payload:       payload,
		CorrelationID: "corr-1",
	}
}

func TestDispatchOnce_MarksDispatchedOnSuccess(t *testing.T) {
	store := newFakeOutboxStore(confirmedEvent("evt-1"), confirmedEvent("evt-2"))
	publisher := newFakePublisher()
	d := &Dispatcher{Store: store, Publisher: publisher, Concurrency: 4}

	d.dispatchOnce(context.Background())

	assert.Len(t, publisher.sent, 2)
	assert.True(t, store.dispatched["evt-1"])
	assert.True(t, store.dispatched["evt-2"])
}

func TestDispatchOnce_LeavesFailedEventUndispatchedForRetry(t *testing.T) {
	store := newFakeOutboxStore(confirmedEvent("evt-1"))
	publisher := newFakePublisher()
	publisher.fail["evt-1"] = true
	d := &Dispatcher{Store: store, Publisher: publisher}

	d.dispatchOnce(context.Background())

	assert.False(t, store.dispatched["evt-1"], "a failed send must stay undispatched so the next tick retries it")
	assert.Equal(t, 1, store.remainingUndispatched())
}

func TestDispatchOnce_SkipsUndecodablePayloadWithoutPanicking(t *testing.T) {
	store := newFakeOutboxStore(entity.OutboxEvent{ID: "evt-1", Payload: []byte("not json")})
	publisher := newFakePublisher()
	d := &Dispatcher{Store: store, Publisher: publisher}

	d.dispatchOnce(context.Background())

	assert.Empty(t, publisher.sent)
	assert.False(t, store.dispatched["evt-1"])
}

func TestDispatchOnce_StopsReclaimingAPermanentlyFailingRowWithinATick(t *testing.T) {
	store := newFakeOutboxStore(confirmedEvent("evt-1"))
	publisher := newFakePublisher()
	publisher.fail["evt-1"] = true
	d := &Dispatcher{Store: store, Publisher: publisher, Concurrency: 8, BatchSize: 100}

	d.dispatchOnce(context.Background())

	// Every worker may attempt the one failing row once, but no worker
	// should spin on it — bounding attempts at Concurrency rather than
	// BatchSize.
	assert.LessOrEqual(t, len(publisher.sent), 8)
	assert.False(t, store.dispatched["evt-1"])
}

func TestRun_DeliversEventOnceAcrossTicks(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := newFakeOutboxStore(confirmedEvent("evt-1"))
	publisher := newFakePublisher()
	d := &Dispatcher{Store: store, Publisher: publisher, Interval: 10 * time.Millisecond}

	ctx, cancel := context.WithTimeout(context.Background(), 35*time.Millisecond)
	defer cancel()

	err := d.Run(ctx)
	require.NoError(t, err)
	// Once dispatched, later ticks find nothing left to send; the event
	// must not be delivered more than once even across several ticks.
	assert.Len(t, publisher.sent, 1)
}
