package saga

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ordersaga/entity"
)

// refundFailsForOrder declines refunds for exactly one order, letting a
// batch test exercise the "keep going after one failure" path.
type refundFailsForOrder struct {
	PaymentRefunder
	failOrderID int64
}

func (r refundFailsForOrder) Refund(ctx context.Context, req entity.RefundRequest) (entity.RefundResponse, error) {
	if req.OrderID == r.failOrderID {
		return entity.RefundResponse{Success: false, Message: "gateway declined refund"}, nil
	}
	return r.PaymentRefunder.Refund(ctx, req)
}

func TestHandleEventCancelled_RefundsEveryConfirmedOrderForEvent(t *testing.T) {
	o, _, catalog, seating, payment := newTestOrchestrator()
	seedEventAndSeats(catalog, seating, 1, "A1", "A2")

	first, err := o.CreateOrder(context.Background(), CreateOrderRequest{UserID: "user-1", EventID: 1, SeatIDs: []string{"A1"}})
	require.NoError(t, err)
	second, err := o.CreateOrder(context.Background(), CreateOrderRequest{UserID: "user-2", EventID: 1, SeatIDs: []string{"A2"}})
	require.NoError(t, err)

	result, err := o.HandleEventCancelled(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.EventID)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, "21.00", result.TotalRefunded.String()) // two 10.50-ticket orders -> 10.50 each

	for _, orderID := range []int64{first.OrderID, second.OrderID} {
		order, err := o.Store.FindOrder(context.Background(), orderID)
		require.NoError(t, err)
		assert.Equal(t, entity.OrderStatusRefunded, order.Status)
	}
	assert.Len(t, payment.Refunds, 2)
}

func TestHandleEventCancelled_IgnoresOrdersNotConfirmed(t *testing.T) {
	o, _, catalog, seating, _ := newTestOrchestrator()
	seedEventAndSeats(catalog, seating, 1, "A1")
	seating.MarkUnavailable("A1")

	_, err := o.CreateOrder(context.Background(), CreateOrderRequest{UserID: "user-1", EventID: 1, SeatIDs: []string{"A1"}})
	require.Error(t, err) // never got past reservation, never made it into the store

	result, err := o.HandleEventCancelled(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Succeeded)
	assert.Equal(t, 0, result.Failed)
}

func TestHandleEventCancelled_CountsPartialFailureWithoutAbortingBatch(t *testing.T) {
	o, _, catalog, seating, _ := newTestOrchestrator()
	seedEventAndSeats(catalog, seating, 1, "A1", "A2")

	failing, err := o.CreateOrder(context.Background(), CreateOrderRequest{UserID: "user-1", EventID: 1, SeatIDs: []string{"A1"}})
	require.NoError(t, err)
	succeeding, err := o.CreateOrder(context.Background(), CreateOrderRequest{UserID: "user-2", EventID: 1, SeatIDs: []string{"A2"}})
	require.NoError(t, err)

	o.Refunder = refundFailsForOrder{PaymentRefunder: o.Refunder, failOrderID: failing.OrderID}

	result, err := o.HandleEventCancelled(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Failed)

	failedOrder, err := o.Store.FindOrder(context.Background(), failing.OrderID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusConfirmed, failedOrder.Status, "order with a failed refund stays CONFIRMED for a manual retry")

	refundedOrder, err := o.Store.FindOrder(context.Background(), succeeding.OrderID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusRefunded, refundedOrder.Status)
}
