package httpapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"ordersaga/correlation"
	"ordersaga/entity"
)

func errorResponse(c echo.Context, err error) error {
	ctx := c.Request().Context()
	cid := correlation.FromContext(ctx)

	switch entity.KindOf(err) {
	case entity.KindNotFound:
		return c.JSON(http.StatusNotFound, ErrorResponse{Message: err.Error(), CorrelationID: cid})
	case entity.KindValidation, entity.KindNotSellable, entity.KindSeatUnavailable,
		entity.KindPaymentFailed, entity.KindConflict, entity.KindFulfillmentFailed:
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: err.Error(), CorrelationID: cid})
	default:
		correlation.Logger(ctx).WithError(err).Error("unhandled orchestrator error")
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "internal error", CorrelationID: cid})
	}
}

func parseInt64Param(c echo.Context, name string) (int64, error) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, entity.NewError(entity.KindValidation, "invalid "+name)
	}
	return v, nil
}

func (s *Server) createOrder(c echo.Context) error {
	var req CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, entity.NewError(entity.KindValidation, "malformed request body"))
	}
	if len(req.SeatIDs) == 0 {
		return errorResponse(c, entity.NewError(entity.KindValidation, "seat_ids must be non-empty"))
	}

	order, err := s.orchestrator.CreateOrder(c.Request().Context(), req.UserID, req.EventID, req.SeatIDs, req.IdempotencyKey)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, ToOrderResponse(order))
}

func (s *Server) getOrder(c echo.Context) error {
	id, err := parseInt64Param(c, "id")
	if err != nil {
		return errorResponse(c, err)
	}
	order, err := s.orders.FindOrder(c.Request().Context(), id)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, ToOrderResponse(order))
}

func (s *Server) getOrdersByUser(c echo.Context) error {
	userID := c.Param("user_id")
	orders, err := s.orders.FindOrdersByUser(c.Request().Context(), userID)
	if err != nil {
		return errorResponse(c, err)
	}
	resp := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, ToOrderResponse(o))
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) getOrdersByEvent(c echo.Context) error {
	eventID, err := parseInt64Param(c, "event_id")
	if err != nil {
		return errorResponse(c, err)
	}
	orders, err := s.orders.FindOrdersByEvent(c.Request().Context(), eventID)
	if err != nil {
		return errorResponse(c, err)
	}
	resp := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, ToOrderResponse(o))
	}
	return c.JSON(http.StatusOK, resp)
}

// listOrders clamps page to >= 1, defaults a missing or non-positive
// pageSize to 50, and caps pageSize at 100 before delegating to the store.
func (s *Server) listOrders(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("pageSize"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}
	if pageSize > 100 {
		pageSize = 100
	}

	resp, err := s.orders.ListOrders(c.Request().Context(), page, pageSize)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) cancelOrder(c echo.Context) error {
	id, err := parseInt64Param(c, "id")
	if err != nil {
		return errorResponse(c, err)
	}
	order, err := s.orchestrator.CancelOrder(c.Request().Context(), id)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, ToOrderResponse(order))
}

func (s *Server) statistics(c echo.Context) error {
	stats, err := s.orders.Statistics(c.Request().Context())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) getTicket(c echo.Context) error {
	id, err := parseInt64Param(c, "id")
	if err != nil {
		return errorResponse(c, err)
	}
	ticket, err := s.tickets.FindTicket(c.Request().Context(), id)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, ticketResponse(ticket))
}

func (s *Server) getTicketsByOrder(c echo.Context) error {
	orderID, err := parseInt64Param(c, "order_id")
	if err != nil {
		return errorResponse(c, err)
	}
	tickets, err := s.tickets.FindTicketsByOrder(c.Request().Context(), orderID)
	if err != nil {
		return errorResponse(c, err)
	}
	resp := make([]TicketResponse, 0, len(tickets))
	for _, t := range tickets {
		resp = append(resp, ticketResponse(t))
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) getTicketsByEvent(c echo.Context) error {
	eventID, err := parseInt64Param(c, "event_id")
	if err != nil {
		return errorResponse(c, err)
	}
	tickets, err := s.tickets.FindTicketsByEvent(c.Request().Context(), eventID)
	if err != nil {
		return errorResponse(c, err)
	}
	resp := make([]TicketResponse, 0, len(tickets))
	for _, t := range tickets {
		resp = append(resp, ticketResponse(t))
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) eventCancelledWebhook(c echo.Context) error {
	var req EventCancelledWebhookRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, entity.NewError(entity.KindValidation, "malformed webhook body"))
	}
	if err := s.orchestrator.HandleEventCancelled(c.Request().Context(), req.EventID); err != nil {
		correlation.Logger(c.Request().Context()).WithError(err).Error("event-cancelled webhook handling failed")
		return c.NoContent(http.StatusInternalServerError)
	}
	return c.NoContent(http.StatusOK)
}
