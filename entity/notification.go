package entity

// NotificationEventType mirrors OutboxEventType; it is the vocabulary the
// notification service understands on its inbound webhook, kept as its own
// type since the two are allowed to diverge independently.
type NotificationEventType string

const (
	NotificationOrderConfirmed NotificationEventType = "OrderConfirmed"
	NotificationOrderCancelled NotificationEventType = "OrderCancelled"
	NotificationOrderRefunded  NotificationEventType = "OrderRefunded"
)

// SendEventRequest is the body posted to the notification service for every
// dispatched OutboxEvent.
type SendEventRequest struct {
	EventID       string                 `json:"event_id"`
	EventType     NotificationEventType  `json:"event_type"`
	CorrelationID string                 `json:"correlation_id"`
	Payload       map[string]interface{} `json:"payload"`
}

type SendEventResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
