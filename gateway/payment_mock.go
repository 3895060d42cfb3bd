package gateway

import (
	"context"
	"sync"

	"ordersaga/entity"
)

// PaymentMock is an in-memory fake of PaymentClient. While Decline is set,
// every Charge reports a decline instead of approving; Err simulates a
// transport failure.
type PaymentMock struct {
	mu      sync.Mutex
	Decline bool
	Err     error
	Charges map[string]entity.ChargeRequest
	Refunds map[int64]entity.RefundRequest
}

func NewPaymentMock() *PaymentMock {
	return &PaymentMock{
		Charges: make(map[string]entity.ChargeRequest),
		Refunds: make(map[int64]entity.RefundRequest),
	}
}

func (m *PaymentMock) Charge(ctx context.Context, req entity.ChargeRequest) (entity.ChargeResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return entity.ChargeResponse{}, m.Err
	}
	m.Charges[req.IdempotencyKey] = req
	if m.Decline {
		return entity.ChargeResponse{
			Success: false,
			Status:  entity.PaymentStatusCodeDeclined,
			Message: "insufficient funds",
		}, nil
	}
	return entity.ChargeResponse{
		Success:              true,
		PaymentID:            "pay_" + req.IdempotencyKey,
		Status:               entity.PaymentStatusCodeApproved,
		Message:              "approved",
		TransactionReference: "txn_" + req.IdempotencyKey,
	}, nil
}

func (m *PaymentMock) Refund(ctx context.Context, req entity.RefundRequest) (entity.RefundResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return entity.RefundResponse{}, m.Err
	}
	m.Refunds[req.OrderID] = req
	return entity.RefundResponse{Success: true, Message: "refunded"}, nil
}
