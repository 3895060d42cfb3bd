package saga

import (
	"context"
	"sync"

	"ordersaga/db"
	"ordersaga/entity"
)

// fakeStore is an in-memory stand-in for *db.Store, covering exactly the
// Store methods the Orchestrator calls. It is not safe for use across
// goroutines beyond the mutex it holds.
type fakeStore struct {
	mu      sync.Mutex
	nextID  int64
	orders  map[int64]entity.Order
	tickets map[int64][]entity.Ticket
	events  []entity.OutboxEvent
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:  make(map[int64]entity.Order),
		tickets: make(map[int64][]entity.Ticket),
	}
}

func (s *fakeStore) InsertOrder(ctx context.Context, order entity.Order) (entity.Order, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if order.IdempotencyKey != nil {
		for _, existing := range s.orders {
			if existing.IdempotencyKey != nil && *existing.IdempotencyKey == *order.IdempotencyKey {
				return existing, true, nil
			}
		}
	}

	s.nextID++
	order.OrderID = s.nextID
	s.orders[order.OrderID] = order
	return order, false, nil
}

func (s *fakeStore) UpdateOrder(ctx context.Context, orderID int64, fn func(entity.Order) (db.OrderTransition, error)) (entity.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.orders[orderID]
	if !ok {
		return entity.Order{}, entity.NewError(entity.KindNotFound, "order not found")
	}
	transition, err := fn(current)
	if err != nil {
		return entity.Order{}, err
	}
	s.orders[orderID] = transition.Order
	if len(transition.Tickets) > 0 {
		s.tickets[orderID] = append(s.tickets[orderID], transition.Tickets...)
	}
	s.events = append(s.events, transition.Events...)
	return transition.Order, nil
}

func (s *fakeStore) FindOrder(ctx context.Context, orderID int64) (entity.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return entity.Order{}, entity.NewError(entity.KindNotFound, "order not found")
	}
	return order, nil
}

func (s *fakeStore) FindOrderByIdempotencyKey(ctx context.Context, key string) (entity.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, order := range s.orders {
		if order.IdempotencyKey != nil && *order.IdempotencyKey == key {
			return order, nil
		}
	}
	return entity.Order{}, entity.NewError(entity.KindNotFound, "order not found")
}

func (s *fakeStore) FindConfirmedOrdersByEvent(ctx context.Context, eventID int64) ([]entity.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.Order
	for _, order := range s.orders {
		if order.EventID == eventID && order.Status == entity.OrderStatusConfirmed {
			out = append(out, order)
		}
	}
	return out, nil
}

func (s *fakeStore) FindTicketsByOrder(ctx context.Context, orderID int64) ([]entity.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.Ticket(nil), s.tickets[orderID]...), nil
}
