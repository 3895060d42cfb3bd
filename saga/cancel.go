package saga

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ordersaga/correlation"
	"ordersaga/db"
	"ordersaga/entity"
	"ordersaga/metrics"
)

// CancelOrder loads the order, releases any held seats best-effort, refunds
// if payment had succeeded, and lands the order in its terminal state.
func (o *Orchestrator) CancelOrder(ctx context.Context, orderID int64) (entity.OrderWithTickets, error) {
	ctx, span := step(ctx, "saga.CancelOrder")
	defer span.End()

	order, err := o.Store.FindOrder(ctx, orderID)
	if err != nil {
		return entity.OrderWithTickets{}, err
	}

	switch order.Status {
	case entity.OrderStatusCancelled:
		return entity.OrderWithTickets{}, entity.ErrAlreadyCancelled
	case entity.OrderStatusRefunded:
		return entity.OrderWithTickets{}, entity.ErrAlreadyRefunded
	}

	tickets, err := o.Store.FindTicketsByOrder(ctx, orderID)
	if err != nil {
		return entity.OrderWithTickets{}, err
	}
	if len(tickets) > 0 {
		seatIDs := make([]string, len(tickets))
		for i, t := range tickets {
			seatIDs[i] = t.SeatID
		}
		o.bestEffortRelease(ctx, order.EventID, order.UserID, seatIDs)
	}

	if order.PaymentStatus == entity.PaymentStatusSuccess {
		return o.cancelWithRefund(ctx, order, tickets, "cancelled by user")
	}

	return o.cancelWithoutRefund(ctx, order, tickets, "cancelled by user")
}

func (o *Orchestrator) cancelWithRefund(ctx context.Context, order entity.Order, tickets []entity.Ticket, reason string) (entity.OrderWithTickets, error) {
	metrics.SagaCompensationsTotal.WithLabelValues("refund").Inc()

	refundResp, refundErr := o.Refunder.Refund(ctx, entity.RefundRequest{
		OrderID: order.OrderID,
		Amount:  order.OrderTotal,
		Reason:  reason,
	})

	if refundErr == nil && refundResp.Success {
		payload, err := json.Marshal(entity.OrderRefundedPayload{
			OrderID:       order.OrderID,
			UserID:        order.UserID,
			EventID:       order.EventID,
			RefundedTotal: order.OrderTotal.String(),
			RefundedAt:    time.Now().UTC(),
			CorrelationID: correlation.FromContext(ctx),
		})
		if err != nil {
			return entity.OrderWithTickets{}, fmt.Errorf("saga: marshal OrderRefunded payload: %w", err)
		}

		updated, err := o.Store.UpdateOrder(ctx, order.OrderID, func(current entity.Order) (db.OrderTransition, error) {
			current.Status = entity.OrderStatusRefunded
			current.PaymentStatus = entity.PaymentStatusRefunded
			current.FailureReason = reason
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
			return entity.OrderWithTickets{}, err
		}
		return entity.OrderWithTickets{Order: updated, Tickets: tickets}, nil
	}

	correlation.Logger(ctx).WithField("order_id", order.OrderID).Error("refund failed during cancellation; order left CANCELLED with payment unresolved")
	return o.cancelWithoutRefund(ctx, order, tickets, reason)
}

func (o *Orchestrator) cancelWithoutRefund(ctx context.Context, order entity.Order, tickets []entity.Ticket, reason string) (entity.OrderWithTickets, error) {
	payload, err := json.Marshal(entity.OrderCancelledPayload{
		OrderID:       order.OrderID,
		UserID:        order.UserID,
		EventID:       order.EventID,
		Reason:        reason,
		CancelledAt:   time.Now().UTC(),
		CorrelationID: correlation.FromContext(ctx),
	})
	if err != nil {
		return entity.OrderWithTickets{}, fmt.Errorf("saga: marshal OrderCancelled payload: %w", err)
	}

	updated, err := o.Store.UpdateOrder(ctx, order.OrderID, func(current entity.Order) (db.OrderTransition, error) {
		current.Status = entity.OrderStatusCancelled
		current.FailureReason = reason
		return db.OrderTransition{
			Order: current,
			Events: []entity.OutboxEvent{{
				ID:            uuid.NewString(),
				AggregateType: "Order",
				EventType:     entity.OutboxEventOrderCancelled,
				Payload:       payload,
				CorrelationID: correlation.FromContext(ctx),
			}},
		}, nil
	})
	if err != nil {
		return entity.OrderWithTickets{}, err
	}
	return entity.OrderWithTickets{Order: updated, Tickets: tickets}, nil
}
