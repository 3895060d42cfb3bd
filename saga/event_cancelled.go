package saga

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"ordersaga/correlation"
	"ordersaga/db"
	"ordersaga/entity"
	"ordersaga/metrics"
)

// EventCancelledResult is the per-batch summary HandleEventCancelled logs
// for operators: how many of the event's confirmed orders got refunded.
type EventCancelledResult struct {
	EventID       int64
	Succeeded     int
	Failed        int
	TotalRefunded entity.Money
}

// HandleEventCancelled refunds every CONFIRMED order for an event that the
// catalog service has pulled. Individual refund failures are logged and
// counted but never abort the batch.
func (o *Orchestrator) HandleEventCancelled(ctx context.Context, eventID int64) (EventCancelledResult, error) {
	ctx, span := step(ctx, "saga.HandleEventCancelled")
	defer span.End()

	orders, err := o.Store.FindConfirmedOrdersByEvent(ctx, eventID)
	if err != nil {
		return EventCancelledResult{}, err
	}

	result := EventCancelledResult{EventID: eventID}
	log := correlation.Logger(ctx).WithField("event_id", eventID)

	for _, order := range orders {
		metrics.SagaCompensationsTotal.WithLabelValues("refund").Inc()
		refundResp, refundErr := o.Refunder.Refund(ctx, entity.RefundRequest{
			OrderID: order.OrderID,
			Amount:  order.OrderTotal,
			Reason:  "event cancelled",
		})
		if refundErr != nil || !refundResp.Success {
			result.Failed++
			log.WithField("order_id", order.OrderID).Warn("refund failed during event-cancellation batch")
			continue
		}

		payload, err := json.Marshal(entity.OrderRefundedPayload{
			OrderID:       order.OrderID,
			UserID:        order.UserID,
			EventID:       eventID,
			RefundedTotal: order.OrderTotal.String(),
			RefundedAt:    time.Now().UTC(),
			CorrelationID: correlation.FromContext(ctx),
		})
		if err != nil {
			result.Failed++
			log.WithField("order_id", order.OrderID).WithError(err).Error("failed to marshal OrderRefunded payload during event-cancellation batch")
			continue
		}

		_, err = o.Store.UpdateOrder(ctx, order.OrderID, func(current entity.Order) (db.OrderTransition, error) {
			current.Status = entity.OrderStatusRefunded
			current.PaymentStatus = entity.PaymentStatusRefunded
			current.FailureReason = "event cancelled"
			return db.OrderTransition{
				Order: current,
				Events: []entity.OutboxEvent{{
					ID:            uuid.NewString(),
					AggregateType: "Order",
					EventType:     entity.OutboxEventOrderRefunded,
					Payload:       payload,
					CorrelationID: correlation.FromContext(ctx),
				}},
			}, nil
		})
		if err != nil {
			result.Failed++
			log.WithField("order_id", order.OrderID).WithError(err).Error("failed to persist refund during event-cancellation batch")
			continue
		}

		result.Succeeded++
		result.TotalRefunded = result.TotalRefunded.Add(order.OrderTotal)
	}

	log.WithFields(map[string]interface{}{
		"succeeded":      result.Succeeded,
		"failed":         result.Failed,
		"total_refunded": result.TotalRefunded.String(),
	}).Info("event-cancellation refund batch complete")

	return result, nil
}
