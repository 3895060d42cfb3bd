// Package httpapi is the ambient REST facade over the orchestrator: route
// wiring, request decoding, and response shaping. None of the saga logic
// lives here — handlers only translate HTTP to orchestrator calls and back.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ordersaga/correlation"
	"ordersaga/entity"
)

// Pinger is the readiness-probe contract: *db.Store and the redis-backed
// IdempotencyCache both implement it with their native client Ping.
type Pinger interface {
	Ping(ctx context.Context) error
}

const readinessTimeout = 2 * time.Second

type Server struct {
	addr string
	e    *echo.Echo

	orchestrator OrdersAPI
	orders       OrdersReader
	tickets      TicketsReader

	db    Pinger
	cache Pinger
}

// OrdersAPI is the orchestrator surface the handlers call. Defined here
// (rather than importing saga.Orchestrator directly) to keep httpapi
// independent of the saga package's internal collaborator wiring.
type OrdersAPI interface {
	CreateOrder(ctx context.Context, userID string, eventID int64, seatIDs []string, idempotencyKey string) (entity.OrderWithTickets, error)
	CancelOrder(ctx context.Context, orderID int64) (entity.OrderWithTickets, error)
	HandleEventCancelled(ctx context.Context, eventID int64) error
}

// OrdersReader backs the read-only order endpoints.
type OrdersReader interface {
	FindOrder(ctx context.Context, orderID int64) (entity.OrderWithTickets, error)
	FindOrdersByUser(ctx context.Context, userID string) ([]entity.OrderWithTickets, error)
	FindOrdersByEvent(ctx context.Context, eventID int64) ([]entity.OrderWithTickets, error)
	ListOrders(ctx context.Context, page, pageSize int) (PaginatedOrdersResponse, error)
	Statistics(ctx context.Context) (StatisticsResponse, error)
}

// TicketsReader backs the ticket read endpoints.
type TicketsReader interface {
	FindTicket(ctx context.Context, ticketID int64) (entity.Ticket, error)
	FindTicketsByOrder(ctx context.Context, orderID int64) ([]entity.Ticket, error)
	FindTicketsByEvent(ctx context.Context, eventID int64) ([]entity.Ticket, error)
}

func NewServer(addr string, orchestrator OrdersAPI, orders OrdersReader, tickets TicketsReader, db Pinger, cache Pinger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(correlation.EchoMiddleware)

	s := &Server{addr: addr, e: e, orchestrator: orchestrator, orders: orders, tickets: tickets, db: db, cache: cache}

	e.GET("/health/live", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/health/ready", s.ready)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.POST("/api/v1/orders", s.createOrder)
	e.GET("/api/v1/orders/statistics", s.statistics)
	e.GET("/api/v1/orders/:id", s.getOrder)
	e.GET("/api/v1/orders/user/:user_id", s.getOrdersByUser)
	e.GET("/api/v1/orders/event/:event_id", s.getOrdersByEvent)
	e.GET("/api/v1/orders", s.listOrders)
	e.POST("/api/v1/orders/:id/cancel", s.cancelOrder)

	e.GET("/v1/tickets/:id", s.getTicket)
	e.GET("/v1/tickets/order/:order_id", s.getTicketsByOrder)
	e.GET("/v1/tickets/event/:event_id", s.getTicketsByEvent)

	e.POST("/api/webhooks/event-cancelled", s.eventCancelledWebhook)

	return s
}

// ready pings the database and the idempotency cache and reports 503 if
// either is unreachable, so a load balancer stops routing traffic to an
// instance that can't actually serve a request.
func (s *Server) ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessTimeout)
	defer cancel()

	if err := s.db.Ping(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Message: "database unreachable", CorrelationID: correlation.FromContext(ctx)})
	}
	if err := s.cache.Ping(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Message: "idempotency cache unreachable", CorrelationID: correlation.FromContext(ctx)})
	}
	return c.String(http.StatusOK, "ok")
}

func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		if err := s.e.Shutdown(ctx); err != nil {
			correlation.Logger(ctx).WithError(err).Error("failed to shut down HTTP server")
		}
	}()
	correlation.Logger(ctx).WithField("addr", s.addr).Info("HTTP server listening")
	if err := s.e.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
