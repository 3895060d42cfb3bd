package httpapi

import (
	"time"

	"ordersaga/entity"
)

// CreateOrderRequest is the POST /api/v1/orders body.
type CreateOrderRequest struct {
	UserID         string   `json:"user_id"`
	EventID        int64    `json:"event_id"`
	SeatIDs        []string `json:"seat_ids"`
	IdempotencyKey string   `json:"idempotency_key,omitempty"`
}

// TicketResponse is the external shape of a Ticket.
type TicketResponse struct {
	TicketID  int64     `json:"ticket_id"`
	OrderID   int64     `json:"order_id"`
	EventID   int64     `json:"event_id"`
	SeatID    string    `json:"seat_id"`
	PricePaid string    `json:"price_paid"`
	CreatedAt time.Time `json:"created_at"`
}

func ticketResponse(t entity.Ticket) TicketResponse {
	return TicketResponse{
		TicketID:  t.TicketID,
		OrderID:   t.OrderID,
		EventID:   t.EventID,
		SeatID:    t.SeatID,
		PricePaid: t.PricePaid.String(),
		CreatedAt: t.CreatedAt,
	}
}

// OrderResponse is the external shape of an Order and its tickets.
type OrderResponse struct {
	OrderID       int64            `json:"order_id"`
	UserID        string           `json:"user_id"`
	EventID       int64            `json:"event_id"`
	Status        string           `json:"status"`
	PaymentStatus string           `json:"payment_status"`
	OrderTotal    string           `json:"order_total"`
	FailureReason string           `json:"failure_reason,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	Tickets       []TicketResponse `json:"tickets,omitempty"`
}

// ToOrderResponse converts a persisted order into its external shape; the
// app package's read adapters use it to build list/pagination responses.
func ToOrderResponse(o entity.OrderWithTickets) OrderResponse {
	resp := OrderResponse{
		OrderID:       o.OrderID,
		UserID:        o.UserID,
		EventID:       o.EventID,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		OrderTotal:    o.OrderTotal.String(),
		FailureReason: o.FailureReason,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	for _, t := range o.Tickets {
		resp.Tickets = append(resp.Tickets, ticketResponse(t))
	}
	return resp
}

// PaginatedOrdersResponse backs GET /api/v1/orders.
type PaginatedOrdersResponse struct {
	Data       []OrderResponse `json:"data"`
	Pagination Pagination      `json:"pagination"`
}

type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
	Total    int `json:"total"`
}

// ErrorResponse is the stable error body for 400/404/500 responses.
type ErrorResponse struct {
	Message       string `json:"message"`
	CorrelationID string `json:"correlation_id"`
}

// EventCancelledWebhookRequest is the POST /api/webhooks/event-cancelled
// body.
type EventCancelledWebhookRequest struct {
	EventID     int64     `json:"event_id"`
	EventTitle  string    `json:"event_title"`
	CancelledAt time.Time `json:"cancelled_at"`
	Reason      string    `json:"reason"`
}

// StatisticsResponse backs GET /api/v1/orders/statistics.
type StatisticsResponse struct {
	TotalOrders     int    `json:"total_orders"`
	ConfirmedOrders int    `json:"confirmed_orders"`
	CancelledOrders int    `json:"cancelled_orders"`
	RefundedOrders  int    `json:"refunded_orders"`
	TotalRevenue    string `json:"total_revenue"`
}
