package gateway

import (
	"context"
	"sync"

	"ordersaga/entity"
)

// NotificationMock is an in-memory fake of NotificationClient that records
// every event it was asked to send.
type NotificationMock struct {
	mu   sync.Mutex
	Sent []entity.SendEventRequest
	Err  error
}

func NewNotificationMock() *NotificationMock {
	return &NotificationMock{}
}

func (m *NotificationMock) SendEvent(ctx context.Context, req entity.SendEventRequest) (entity.SendEventResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return entity.SendEventResponse{}, m.Err
	}
	m.Sent = append(m.Sent, req)
	return entity.SendEventResponse{Success: true, Message: "accepted"}, nil
}
