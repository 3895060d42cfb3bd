package app

import (
	"context"

	"ordersaga/db"
	"ordersaga/entity"
	"ordersaga/httpapi"
	"ordersaga/saga"
)

// OrchestratorAdapter narrows *saga.Orchestrator to the httpapi.OrdersAPI
// shape: plain scalar arguments instead of saga.CreateOrderRequest, and a
// bare error from HandleEventCancelled since the HTTP webhook only needs
// to know whether the batch ran, not its counts (those are logged).
type OrchestratorAdapter struct {
	Orchestrator *saga.Orchestrator
}

func (a OrchestratorAdapter) CreateOrder(ctx context.Context, userID string, eventID int64, seatIDs []string, idempotencyKey string) (entity.OrderWithTickets, error) {
	return a.Orchestrator.CreateOrder(ctx, saga.CreateOrderRequest{
		UserID:         userID,
		EventID:        eventID,
		SeatIDs:        seatIDs,
		IdempotencyKey: idempotencyKey,
	})
}

func (a OrchestratorAdapter) CancelOrder(ctx context.Context, orderID int64) (entity.OrderWithTickets, error) {
	return a.Orchestrator.CancelOrder(ctx, orderID)
}

func (a OrchestratorAdapter) HandleEventCancelled(ctx context.Context, eventID int64) error {
	_, err := a.Orchestrator.HandleEventCancelled(ctx, eventID)
	return err
}

var _ httpapi.OrdersAPI = OrchestratorAdapter{}

// StoreReader adapts *db.Store's per-entity queries into the
// entity.OrderWithTickets-shaped reads httpapi.OrdersReader/TicketsReader
// expect, filling in tickets with a second query per order.
type StoreReader struct {
	Store *db.Store
}

func (r StoreReader) FindOrder(ctx context.Context, orderID int64) (entity.OrderWithTickets, error) {
	order, err := r.Store.FindOrder(ctx, orderID)
	if err != nil {
		return entity.OrderWithTickets{}, err
	}
	tickets, err := r.Store.FindTicketsByOrder(ctx, orderID)
	if err != nil {
		return entity.OrderWithTickets{}, err
	}
	return entity.OrderWithTickets{Order: order, Tickets: tickets}, nil
}

func (r StoreReader) FindOrdersByUser(ctx context.Context, userID string) ([]entity.OrderWithTickets, error) {
	orders, err := r.Store.FindOrdersByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return r.withTickets(ctx, orders)
}

func (r StoreReader) FindOrdersByEvent(ctx context.Context, eventID int64) ([]entity.OrderWithTickets, error) {
	orders, err := r.Store.FindOrdersByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return r.withTickets(ctx, orders)
}

func (r StoreReader) ListOrders(ctx context.Context, page, pageSize int) (httpapi.PaginatedOrdersResponse, error) {
	offset := (page - 1) * pageSize
	orders, total, err := r.Store.ListOrders(ctx, pageSize, offset)
	if err != nil {
		return httpapi.PaginatedOrdersResponse{}, err
	}
	withTickets, err := r.withTickets(ctx, orders)
	if err != nil {
		return httpapi.PaginatedOrdersResponse{}, err
	}

	resp := httpapi.PaginatedOrdersResponse{
		Pagination: httpapi.Pagination{Page: page, PageSize: pageSize, Total: total},
	}
	for _, o := range withTickets {
		resp.Data = append(resp.Data, httpapi.ToOrderResponse(o))
	}
	return resp, nil
}

func (r StoreReader) Statistics(ctx context.Context) (httpapi.StatisticsResponse, error) {
	stats, err := r.Store.Statistics(ctx)
	if err != nil {
		return httpapi.StatisticsResponse{}, err
	}
	return httpapi.StatisticsResponse{
		TotalOrders:     stats.TotalOrders,
		ConfirmedOrders: stats.ConfirmedOrders,
		CancelledOrders: stats.CancelledOrders,
		RefundedOrders:  stats.RefundedOrders,
		TotalRevenue:    stats.TotalRevenue.String(),
	}, nil
}

func (r StoreReader) FindTicket(ctx context.Context, ticketID int64) (entity.Ticket, error) {
	return r.Store.FindTicket(ctx, ticketID)
}

func (r StoreReader) FindTicketsByOrder(ctx context.Context, orderID int64) ([]entity.Ticket, error) {
	return r.Store.FindTicketsByOrder(ctx, orderID)
}

func (r StoreReader) FindTicketsByEvent(ctx context.Context, eventID int64) ([]entity.Ticket, error) {
	return r.Store.FindTicketsByEvent(ctx, eventID)
}

func (r StoreReader) withTickets(ctx context.Context, orders []entity.Order) ([]entity.OrderWithTickets, error) {
	out := make([]entity.OrderWithTickets, 0, len(orders))
	for _, o := range orders {
		tickets, err := r.Store.FindTicketsByOrder(ctx, o.OrderID)
		if err != nil {
			return nil, err
		}
		out = append(out, entity.OrderWithTickets{Order: o, Tickets: tickets})
	}
	return out, nil
}

var (
	_ httpapi.OrdersReader  = StoreReader{}
	_ httpapi.TicketsReader = StoreReader{}
)
