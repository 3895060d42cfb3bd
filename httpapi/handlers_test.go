package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ordersaga/entity"
)

type fakeOrdersAPI struct {
	createErr error
	created   entity.OrderWithTickets

	cancelErr error
	cancelled entity.OrderWithTickets
}

func (f *fakeOrdersAPI) CreateOrder(ctx context.Context, userID string, eventID int64, seatIDs []string, idempotencyKey string) (entity.OrderWithTickets, error) {
	return f.created, f.createErr
}

func (f *fakeOrdersAPI) CancelOrder(ctx context.Context, orderID int64) (entity.OrderWithTickets, error) {
	return f.cancelled, f.cancelErr
}

func (f *fakeOrdersAPI) HandleEventCancelled(ctx context.Context, eventID int64) error {
	return nil
}

type fakeOrdersReader struct {
	order   entity.OrderWithTickets
	findErr error
}

func (f *fakeOrdersReader) FindOrder(ctx context.Context, orderID int64) (entity.OrderWithTickets, error) {
	return f.order, f.findErr
}
func (f *fakeOrdersReader) FindOrdersByUser(ctx context.Context, userID string) ([]entity.OrderWithTickets, error) {
	return nil, nil
}
func (f *fakeOrdersReader) FindOrdersByEvent(ctx context.Context, eventID int64) ([]entity.OrderWithTickets, error) {
	return nil, nil
}
func (f *fakeOrdersReader) ListOrders(ctx context.Context, page, pageSize int) (PaginatedOrdersResponse, error) {
	return PaginatedOrdersResponse{}, nil
}
func (f *fakeOrdersReader) Statistics(ctx context.Context) (StatisticsResponse, error) {
	return StatisticsResponse{}, nil
}

type fakeTicketsReader struct{}

func (fakeTicketsReader) FindTicket(ctx context.Context, ticketID int64) (entity.Ticket, error) {
	return entity.Ticket{}, nil
}
func (fakeTicketsReader) FindTicketsByOrder(ctx context.Context, orderID int64) ([]entity.Ticket, error) {
	return nil, nil
}
func (fakeTicketsReader) FindTicketsByEvent(ctx context.Context, eventID int64) ([]entity.Ticket, error) {
	return nil, nil
}

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(ctx context.Context) error {
	return f.err
}

func newTestServer(api *fakeOrdersAPI, reader *fakeOrdersReader) *Server {
	return NewServer(":0", api, reader, fakeTicketsReader{}, fakePinger{}, fakePinger{})
}

func TestCreateOrder_ReturnsCreatedOrder(t *testing.T) {
	api := &fakeOrdersAPI{created: entity.OrderWithTickets{Order: entity.Order{OrderID: 42, Status: entity.OrderStatusConfirmed}}}
	s := newTestServer(api, &fakeOrdersReader{})

	body, _ := json.Marshal(CreateOrderRequest{UserID: "u1", EventID: 1, SeatIDs: []string{"A1"}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var got OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.EqualValues(t, 42, got.OrderID)
}

func TestCreateOrder_RejectsEmptySeatIDs(t *testing.T) {
	s := newTestServer(&fakeOrdersAPI{}, &fakeOrdersReader{})

	body, _ := json.Marshal(CreateOrderRequest{UserID: "u1", EventID: 1})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOrder_MapsSeatUnavailableTo400(t *testing.T) {
	api := &fakeOrdersAPI{createErr: entity.NewError(entity.KindSeatUnavailable, "seat taken")}
	s := newTestServer(api, &fakeOrdersReader{})

	body, _ := json.Marshal(CreateOrderRequest{UserID: "u1", EventID: 1, SeatIDs: []string{"A1"}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.NotEmpty(t, errResp.CorrelationID)
}

func TestGetOrder_MapsNotFoundTo404(t *testing.T) {
	reader := &fakeOrdersReader{findErr: entity.NewError(entity.KindNotFound, "order not found")}
	s := newTestServer(&fakeOrdersAPI{}, reader)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/999", nil)
	rec := httptest.NewRecorder()

	s.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthReady_ReturnsOKWhenDependenciesReachable(t *testing.T) {
	s := newTestServer(&fakeOrdersAPI{}, &fakeOrdersReader{})

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()

	s.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthReady_Returns503WhenDatabaseUnreachable(t *testing.T) {
	s := NewServer(":0", &fakeOrdersAPI{}, &fakeOrdersReader{}, fakeTicketsReader{},
		fakePinger{err: assert.AnError}, fakePinger{})

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()

	s.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthReady_Returns503WhenCacheUnreachable(t *testing.T) {
	s := NewServer(":0", &fakeOrdersAPI{}, &fakeOrdersReader{}, fakeTicketsReader{},
		fakePinger{}, fakePinger{err: assert.AnError})

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()

	s.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCorrelationID_EchoedBackFromRequestHeader(t *testing.T) {
	reader := &fakeOrdersReader{order: entity.OrderWithTickets{Order: entity.Order{OrderID: 1}}}
	s := newTestServer(&fakeOrdersAPI{}, reader)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/1", nil)
	req.Header.Set("X-Correlation-ID", "test-corr-id")
	rec := httptest.NewRecorder()

	s.e.ServeHTTP(rec, req)

	assert.Equal(t, "test-corr-id", rec.Header().Get("X-Correlation-ID"))
}
