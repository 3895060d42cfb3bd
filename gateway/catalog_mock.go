package gateway

import (
	"context"
	"sync"

	"ordersaga/entity"
)

// CatalogMock is an in-memory fake of CatalogClient for tests that need to
// control catalog responses without a network call.
type CatalogMock struct {
	mu     sync.Mutex
	Events map[int64]entity.CatalogEvent
	Err    error
}

func NewCatalogMock() *CatalogMock {
	return &CatalogMock{Events: make(map[int64]entity.CatalogEvent)}
}

func (m *CatalogMock) PutEvent(event entity.CatalogEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events[event.EventID] = event
}

func (m *CatalogMock) GetEvent(ctx context.Context, eventID int64) (entity.CatalogEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return entity.CatalogEvent{}, m.Err
	}
	event, ok := m.Events[eventID]
	if !ok {
		return entity.CatalogEvent{}, entity.NewError(entity.KindNotFound, "catalog: event not found")
	}
	return event, nil
}
