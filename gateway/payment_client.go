package gateway

import (
	"fmt"
	"net/http"
	"time"

	"context"

	"ordersaga/entity"
)

// PaymentClient charges and refunds orders through the payment service.
type PaymentClient struct {
	jsonClient
}

func NewPaymentClient(baseURL string, timeout time.Duration) PaymentClient {
	return PaymentClient{jsonClient: newJSONClient(baseURL, timeout)}
}

// Charge returns the decoded response even when it reports a decline —
// callers branch on resp.Status/resp.Success, not on the error return,
// which is reserved for transport failures.
func (c PaymentClient) Charge(ctx context.Context, req entity.ChargeRequest) (entity.ChargeResponse, error) {
	var resp entity.ChargeResponse
	status, err := c.doJSON(ctx, http.MethodPost, "/charges", req, &resp)
	if err != nil {
		return entity.ChargeResponse{}, entity.WrapError(entity.KindUpstreamUnavailable, "payment: charge", err)
	}
	if status != http.StatusOK && status != http.StatusPaymentRequired {
		return entity.ChargeResponse{}, entity.NewError(entity.KindUpstreamUnavailable, fmt.Sprintf("payment: unexpected status %d", status))
	}
	return resp, nil
}

func (c PaymentClient) Refund(ctx context.Context, req entity.RefundRequest) (entity.RefundResponse, error) {
	var resp entity.RefundResponse
	status, err := c.doJSON(ctx, http.MethodPost, "/refunds", req, &resp)
	if err != nil {
		return entity.RefundResponse{}, entity.WrapError(entity.KindUpstreamUnavailable, "payment: refund", err)
	}
	if status != http.StatusOK {
		return entity.RefundResponse{}, entity.NewError(entity.KindUpstreamUnavailable, fmt.Sprintf("payment: unexpected status %d", status))
	}
	return resp, nil
}
