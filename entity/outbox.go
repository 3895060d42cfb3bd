package entity

import "time"

type OutboxEventType string

const (
	OutboxEventOrderConfirmed OutboxEventType = "OrderConfirmed"
	OutboxEventOrderCancelled OutboxEventType = "OrderCancelled"
	OutboxEventOrderRefunded  OutboxEventType = "OrderRefunded"
)

// OutboxEvent is a row in the transactional outbox. It is appended in the
// same database transaction as the Order mutation that produced it and
// later drained by the dispatcher, which owns the Dispatched flag
// exclusively.
type OutboxEvent struct {
	ID            string          `db:"id" json:"id"`
	AggregateType string          `db:"aggregate_type" json:"aggregate_type"`
	AggregateID   string          `db:"aggregate_id" json:"aggregate_id"`
	EventType     OutboxEventType `db:"event_type" json:"event_type"`
	Payload       []byte          `db:"payload" json:"payload"`
	CorrelationID string          `db:"correlation_id" json:"correlation_id"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	Dispatched    bool            `db:"dispatched" json:"dispatched"`
}

// OrderConfirmedPayload is the JSON body carried by an OrderConfirmed
// OutboxEvent.
type OrderConfirmedPayload struct {
	OrderID       int64     `json:"order_id"`
	UserID        string    `json:"user_id"`
	EventID       int64     `json:"event_id"`
	EventTitle    string    `json:"event_title"`
	OrderTotal    string    `json:"order_total"`
	SeatIDs       []string  `json:"seat_ids"`
	ConfirmedAt   time.Time `json:"confirmed_at"`
	CorrelationID string    `json:"correlation_id"`
}

// OrderCancelledPayload is carried by an OrderCancelled OutboxEvent.
type OrderCancelledPayload struct {
	OrderID       int64     `json:"order_id"`
	UserID        string    `json:"user_id"`
	EventID       int64     `json:"event_id"`
	Reason        string    `json:"reason"`
	CancelledAt   time.Time `json:"cancelled_at"`
	CorrelationID string    `json:"correlation_id"`
}

// OrderRefundedPayload is carried by an OrderRefunded OutboxEvent.
type OrderRefundedPayload struct {
	OrderID       int64     `json:"order_id"`
	UserID        string    `json:"user_id"`
	EventID       int64     `json:"event_id"`
	RefundedTotal string    `json:"refunded_total"`
	RefundedAt    time.Time `json:"refunded_at"`
	CorrelationID string    `json:"correlation_id"`
}
