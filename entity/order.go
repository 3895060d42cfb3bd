package entity

import "time"

// OrderStatus is the lifecycle state of an Order. See the state machine in
// the orchestration design: CREATED is the only non-terminal state other
// than CONFIRMED, which is terminal absent a cancellation.
type OrderStatus string

const (
	OrderStatusCreated                           OrderStatus = "CREATED"
	OrderStatusConfirmed                         OrderStatus = "CONFIRMED"
	OrderStatusCancelled                         OrderStatus = "CANCELLED"
	OrderStatusRefunded                          OrderStatus = "REFUNDED"
	OrderStatusPaymentCompletedFulfillmentFailed OrderStatus = "PAYMENT_COMPLETED_BUT_FULFILLMENT_FAILED"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusSuccess  PaymentStatus = "SUCCESS"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// Order is the aggregate root the orchestrator owns exclusively. Mutations
// always go through Store.UpdateOrder so the status/payment_status
// read-modify-write stays inside the transaction that appends the
// corresponding OutboxEvent.
type Order struct {
	OrderID        int64         `db:"order_id" json:"order_id"`
	UserID         string        `db:"user_id" json:"user_id"`
	EventID        int64         `db:"event_id" json:"event_id"`
	Status         OrderStatus   `db:"status" json:"status"`
	PaymentStatus  PaymentStatus `db:"payment_status" json:"payment_status"`
	OrderTotal     Money         `db:"order_total" json:"order_total"`
	IdempotencyKey *string       `db:"idempotency_key" json:"idempotency_key,omitempty"`
	FailureReason  string        `db:"failure_reason" json:"failure_reason,omitempty"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updated_at"`
}

// Ticket is issued in bulk once an Order enters CONFIRMED, one per reserved
// seat, carrying the price that was locked in at reservation time.
type Ticket struct {
	TicketID  int64     `db:"ticket_id" json:"ticket_id"`
	OrderID   int64     `db:"order_id" json:"order_id"`
	EventID   int64     `db:"event_id" json:"event_id"`
	SeatID    string    `db:"seat_id" json:"seat_id"`
	PricePaid Money     `db:"price_paid" json:"price_paid"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// OrderWithTickets is the snapshot returned to callers of CreateOrder,
// CancelOrder, and the read endpoints.
type OrderWithTickets struct {
	Order
	Tickets []Ticket
}
