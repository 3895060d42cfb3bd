// Package saga is the order orchestration core: CreateOrder, CancelOrder,
// and HandleEventCancelled, each a linear sequence of fallible stages with
// named compensations, modelled as explicit error returns rather than
// exceptions.
package saga

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"ordersaga/correlation"
	"ordersaga/db"
	"ordersaga/entity"
	"ordersaga/metrics"
)

var tracer = otel.Tracer("ordersaga/saga")

// step starts a span named after a single saga stage, mirroring the
// teacher's "message handling" span in its tracing lesson but at saga-step
// granularity instead of per-message.
func step(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name)
}

// CatalogGetter is the one capability the Orchestrator needs from the
// catalog service.
type CatalogGetter interface {
	GetEvent(ctx context.Context, eventID int64) (entity.CatalogEvent, error)
}

// Seating is split into four narrow capabilities so a test can fake exactly
// the behavior a scenario needs.
type SeatGetter interface {
	GetSeats(ctx context.Context, eventID int64, seatIDs []string) ([]entity.Seat, error)
}

type SeatReserver interface {
	ReserveSeats(ctx context.Context, req entity.ReserveSeatsRequest) (entity.ReserveSeatsResponse, error)
}

type SeatAllocator interface {
	AllocateSeats(ctx context.Context, req entity.AllocateSeatsRequest) (entity.AllocateSeatsResponse, error)
}

type SeatReleaser interface {
	ReleaseSeats(ctx context.Context, req entity.ReleaseSeatsRequest) (entity.ReleaseSeatsResponse, error)
}

type PaymentCharger interface {
	Charge(ctx context.Context, req entity.ChargeRequest) (entity.ChargeResponse, error)
}

type PaymentRefunder interface {
	Refund(ctx context.Context, req entity.RefundRequest) (entity.RefundResponse, error)
}

// Store is the persistence contract the Orchestrator needs; *db.Store
// satisfies it.
type Store interface {
	InsertOrder(ctx context.Context, order entity.Order) (entity.Order, bool, error)
	UpdateOrder(ctx context.Context, orderID int64, fn func(entity.Order) (db.OrderTransition, error)) (entity.Order, error)
	FindOrder(ctx context.Context, orderID int64) (entity.Order, error)
	FindOrderByIdempotencyKey(ctx context.Context, key string) (entity.Order, error)
	FindConfirmedOrdersByEvent(ctx context.Context, eventID int64) ([]entity.Order, error)
	FindTicketsByOrder(ctx context.Context, orderID int64) ([]entity.Ticket, error)
}

// IdempotencyCache lets CreateOrder short-circuit a retried request without
// a database round trip; a cache miss always falls back to the Store.
type IdempotencyCache interface {
	PutOrderID(ctx context.Context, idempotencyKey string, orderID int64, ttl time.Duration) error
	GetOrderID(ctx context.Context, idempotencyKey string) (int64, bool, error)
}

// Orchestrator owns every Order/Ticket mutation and outbox append. It holds
// no state of its own beyond its collaborators — all saga state lives in
// the Store between stages.
type Orchestrator struct {
	Store       Store
	Catalog     CatalogGetter
	SeatGetter  SeatGetter
	SeatReserve SeatReserver
	SeatAlloc   SeatAllocator
	SeatRelease SeatReleaser
	Charger     PaymentCharger
	Refunder    PaymentRefunder
	Cache       IdempotencyCache

	ReservationTTL time.Duration
}

// CreateOrderRequest is the saga's entry point.
type CreateOrderRequest struct {
	UserID         string
	EventID        int64
	SeatIDs        []string
	IdempotencyKey string
}

func (r CreateOrderRequest) validate() error {
	if r.UserID == "" {
		return entity.NewError(entity.KindValidation, "user_id is required")
	}
	if len(r.SeatIDs) == 0 {
		return entity.NewError(entity.KindValidation, "seat_ids must be non-empty")
	}
	seen := make(map[string]bool, len(r.SeatIDs))
	for _, id := range r.SeatIDs {
		if seen[id] {
			return entity.NewError(entity.KindValidation, "seat_ids must be unique")
		}
		seen[id] = true
	}
	return nil
}

// CreateOrder runs the full saga described in the orchestration design: an
// idempotency probe, event and seat validation, seat reservation, total
// computation, order insert, payment, and either the allocate path or the
// release-and-cancel path.
func (o *Orchestrator) CreateOrder(ctx context.Context, req CreateOrderRequest) (entity.OrderWithTickets, error) {
	ctx, sagaSpan := step(ctx, "saga.CreateOrder")
	defer sagaSpan.End()

	if err := req.validate(); err != nil {
		return entity.OrderWithTickets{}, err
	}

	log := correlation.Logger(ctx).WithFields(map[string]interface{}{
		"user_id":  req.UserID,
		"event_id": req.EventID,
	})

	// 1. Idempotency probe.
	if req.IdempotencyKey != "" {
		idemCtx, idemSpan := step(ctx, "saga.idempotency_probe")
		existing, ok, err := o.findByIdempotencyKey(idemCtx, req.IdempotencyKey)
		idemSpan.End()
		if err != nil {
			return entity.OrderWithTickets{}, err
		} else if ok {
			return existing, nil
		}
	}

	// 2. Event validation.
	eventCtx, eventSpan := step(ctx, "saga.validate_event")
	event, err := o.Catalog.GetEvent(eventCtx, req.EventID)
	eventSpan.End()
	if err != nil {
		return entity.OrderWithTickets{}, err
	}
	if event.Status != entity.EventStatusOnSale {
		return entity.OrderWithTickets{}, entity.NewError(entity.KindNotSellable, fmt.Sprintf("event %d is %s", req.EventID, event.Status))
	}

	// 3. Seat validation.
	seatCtx, seatSpan := step(ctx, "saga.validate_seats")
	seats, err := o.SeatGetter.GetSeats(seatCtx, req.EventID, req.SeatIDs)
	seatSpan.End()
	if err != nil {
		return entity.OrderWithTickets{}, err
	}
	bySeatID := make(map[string]entity.Seat, len(seats))
	for _, s := range seats {
		bySeatID[s.SeatID] = s
	}
	for _, id := range req.SeatIDs {
		if _, ok := bySeatID[id]; !ok {
			return entity.OrderWithTickets{}, entity.NewError(entity.KindNotFound, fmt.Sprintf("seat %s not found", id))
		}
	}

	// 4. Seat reservation.
	reserveCtx, reserveSpan := step(ctx, "saga.reserve_seats")
	reserveResp, err := o.SeatReserve.ReserveSeats(reserveCtx, entity.ReserveSeatsRequest{
		EventID:    req.EventID,
		SeatIDs:    req.SeatIDs,
		UserID:     req.UserID,
		TTLSeconds: int(o.ttl().Seconds()),
	})
	reserveSpan.End()
	if err != nil || !reserveResp.Success {
		metrics.SeatReservationsFailed.Inc()
		msg := "seats unavailable"
		if reserveResp.Message != "" {
			msg = reserveResp.Message
		}
		return entity.OrderWithTickets{}, entity.NewError(entity.KindSeatUnavailable, msg)
	}

	// 5. Total computation.
	var subtotal entity.Money
	for _, id := range req.SeatIDs {
		subtotal = subtotal.Add(bySeatID[id].Price)
	}
	tax := subtotal.Tax()
	total := subtotal.Add(tax)

	// 6. Order insert.
	insertCtx, insertSpan := step(ctx, "saga.insert_order")
	var idempotencyKey *string
	if req.IdempotencyKey != "" {
		idempotencyKey = &req.IdempotencyKey
	}
	order, duplicate, err := o.Store.InsertOrder(insertCtx, entity.Order{
		UserID:         req.UserID,
		EventID:        req.EventID,
		Status:         entity.OrderStatusCreated,
		PaymentStatus:  entity.PaymentStatusPending,
		OrderTotal:     total,
		IdempotencyKey: idempotencyKey,
	})
	insertSpan.End()
	if err != nil {
		return entity.OrderWithTickets{}, fmt.Errorf("saga: insert order: %w", err)
	}
	if duplicate {
		tickets, err := o.Store.FindTicketsByOrder(ctx, order.OrderID)
		if err != nil {
			return entity.OrderWithTickets{}, err
		}
		return entity.OrderWithTickets{Order: order, Tickets: tickets}, nil
	}

	paymentIdempotencyKey := req.IdempotencyKey
	if paymentIdempotencyKey == "" {
		paymentIdempotencyKey = uuid.NewString()
	}

	// 7. Payment.
	chargeCtx, chargeSpan := step(ctx, "saga.charge_payment")
	chargeResp, chargeErr := o.Charger.Charge(chargeCtx, entity.ChargeRequest{
		OrderID:        order.OrderID,
		UserID:         req.UserID,
		Amount:         total,
		IdempotencyKey: paymentIdempotencyKey,
	})
	chargeSpan.End()

	if chargeErr == nil && chargeResp.Success {
		return o.allocatePath(ctx, order, event, req.SeatIDs, bySeatID, req.UserID)
	}

	failureMsg := "payment failed"
	if chargeErr != nil {
		failureMsg = chargeErr.Error()
	} else if chargeResp.Message != "" {
		failureMsg = chargeResp.Message
	}
	log.WithField("reason", failureMsg).Warn("payment failed, releasing seats and cancelling order")
	return o.releaseAndCancelPath(ctx, order, req.EventID, req.UserID, req.SeatIDs, failureMsg)
}

func (o *Orchestrator) ttl() time.Duration {
	if o.ReservationTTL > 0 {
		return o.ReservationTTL
	}
	return 900 * time.Second
}

func (o *Orchestrator) findByIdempotencyKey(ctx context.Context, key string) (entity.OrderWithTickets, bool, error) {
	if o.Cache != nil {
		if orderID, ok, err := o.Cache.GetOrderID(ctx, key); err == nil && ok {
			order, err := o.Store.FindOrder(ctx, orderID)
			if err == nil {
				tickets, err := o.Store.FindTicketsByOrder(ctx, orderID)
				if err != nil {
					return entity.OrderWithTickets{}, false, err
				}
				return entity.OrderWithTickets{Order: order, Tickets: tickets}, true, nil
			}
		}
	}

	order, err := o.Store.FindOrderByIdempotencyKey(ctx, key)
	if err != nil {
		if entity.KindOf(err) == entity.KindNotFound {
			return entity.OrderWithTickets{}, false, nil
		}
		return entity.OrderWithTickets{}, false, err
	}
	tickets, err := o.Store.FindTicketsByOrder(ctx, order.OrderID)
	if err != nil {
		return entity.OrderWithTickets{}, false, err
	}
	if o.Cache != nil {
		_ = o.Cache.PutOrderID(ctx, key, order.OrderID, o.ttl())
	}
	return entity.OrderWithTickets{Order: order, Tickets: tickets}, true, nil
}

// allocatePath runs step 8: allocate the reserved seats, confirm the order,
// issue tickets, and append OrderConfirmed. Any failure after payment
// succeeded routes through the refund compensation instead of surfacing
// directly, because money has already moved.
func (o *Orchestrator) allocatePath(ctx context.Context, order entity.Order, event entity.CatalogEvent, seatIDs []string, bySeatID map[string]entity.Seat, userID string) (entity.OrderWithTickets, error) {
	ctx, span := step(ctx, "saga.allocate_seats")
	log := correlation.Logger(ctx).WithField("order_id", order.OrderID)

	allocResp, allocErr := o.SeatAlloc.AllocateSeats(ctx, entity.AllocateSeatsRequest{
		EventID: order.EventID,
		UserID:  userID,
		SeatIDs: seatIDs,
	})
	span.End()
	if allocErr != nil || !allocResp.Success {
		return o.compensateWithRefund(ctx, order, "seat allocation failed after payment")
	}

	tickets := make([]entity.Ticket, 0, len(seatIDs))
	for _, id := range seatIDs {
		seat := bySeatID[id]
		tickets = append(tickets, entity.Ticket{
			EventID:   order.EventID,
			SeatID:    id,
			PricePaid: seat.Price,
		})
	}

	payload, err := json.Marshal(entity.OrderConfirmedPayload{
		OrderID:       order.OrderID,
		UserID:        userID,
		EventID:       order.EventID,
		EventTitle:    event.Title,
		OrderTotal:    order.OrderTotal.String(),
		SeatIDs:       seatIDs,
		ConfirmedAt:   time.Now().UTC(),
		CorrelationID: correlation.FromContext(ctx),
	})
	if err != nil {
		return o.compensateWithRefund(ctx, order, "failed to marshal OrderConfirmed payload")
	}

	updated, err := o.Store.UpdateOrder(ctx, order.OrderID, func(current entity.Order) (db.OrderTransition, error) {
		current.Status = entity.OrderStatusConfirmed
		current.PaymentStatus = entity.PaymentStatusSuccess
		return db.OrderTransition{
			Order:   current,
			Tickets: tickets,
			Events: []entity.OutboxEvent{{
				ID:            uuid.NewString(),
				AggregateType: "Order",
				EventType:     entity.OutboxEventOrderConfirmed,
				Payload:       payload,
				CorrelationID: correlation.FromContext(ctx),
			}},
		}, nil
	})
	if err != nil {
		log.WithError(err).Error("failed to persist confirmed order, attempting refund compensation")
		return o.compensateWithRefund(ctx, order, "failed to persist confirmed order")
	}

	metrics.OrdersTotal.WithLabelValues(string(entity.OrderStatusConfirmed)).Inc()
	return entity.OrderWithTickets{Order: updated, Tickets: tickets}, nil
}

// compensateWithRefund is reached only after a successful charge. It
// refunds the payment and lands the order in REFUNDED on success, or in
// the terminal PAYMENT_COMPLETED_BUT_FULFILLMENT_FAILED sink — with an
// operator alert and no compensating event, since business state is
// unresolved — when the refund itself fails.
func (o *Orchestrator) compensateWithRefund(ctx context.Context, order entity.Order, reason string) (entity.OrderWithTickets, error) {
	ctx, span := step(ctx, "saga.compensate_refund")
	defer span.End()
	metrics.SagaCompensationsTotal.WithLabelValues("refund").Inc()

	log := correlation.Logger(ctx).WithFields(map[string]interface{}{
		"order_id": order.OrderID,
		"reason":   reason,
	})

	refundResp, refundErr := o.Refunder.Refund(ctx, entity.RefundRequest{
		OrderID: order.OrderID,
		Amount:  order.OrderTotal,
		Reason:  reason,
	})

	if refundErr == nil && refundResp.Success {
		payload, _ := json.Marshal(entity.OrderRefundedPayload{
			OrderID:       order.OrderID,
			UserID:        order.UserID,
			EventID:       order.EventID,
			RefundedTotal: order.OrderTotal.String(),
			RefundedAt:    time.Now().UTC(),
			CorrelationID: correlation.FromContext(ctx),
		})
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
		metrics.OrdersTotal.WithLabelValues(string(entity.OrderStatusRefunded)).Inc()
		return entity.OrderWithTickets{Order: updated}, entity.NewError(entity.KindFulfillmentFailed, reason)
	}

	log.Error("refund compensation failed; order left in PAYMENT_COMPLETED_BUT_FULFILLMENT_FAILED for operator review")
	updated, err := o.Store.UpdateOrder(ctx, order.OrderID, func(current entity.Order) (db.OrderTransition, error) {
		current.Status = entity.OrderStatusPaymentCompletedFulfillmentFailed
		current.FailureReason = reason
		return db.OrderTransition{Order: current}, nil
	})
	if err != nil {
		return entity.OrderWithTickets{}, err
	}
	metrics.OrdersTotal.WithLabelValues(string(entity.OrderStatusPaymentCompletedFulfillmentFailed)).Inc()
	return entity.OrderWithTickets{Order: updated}, entity.NewError(entity.KindFulfillmentFailed, reason)
}

// releaseAndCancelPath runs step 9: release is best-effort and never fails
// the parent request.
func (o *Orchestrator) releaseAndCancelPath(ctx context.Context, order entity.Order, eventID int64, userID string, seatIDs []string, failureMsg string) (entity.OrderWithTickets, error) {
	o.bestEffortRelease(ctx, eventID, userID, seatIDs)

	payload, _ := json.Marshal(entity.OrderCancelledPayload{
		OrderID:       order.OrderID,
		UserID:        userID,
		EventID:       eventID,
		Reason:        failureMsg,
		CancelledAt:   time.Now().UTC(),
		CorrelationID: correlation.FromContext(ctx),
	})

	updated, err := o.Store.UpdateOrder(ctx, order.OrderID, func(current entity.Order) (db.OrderTransition, error) {
		current.Status = entity.OrderStatusCancelled
		current.PaymentStatus = entity.PaymentStatusFailed
		current.FailureReason = failureMsg
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

	metrics.PaymentsFailedTotal.Inc()
	metrics.OrdersTotal.WithLabelValues(string(entity.OrderStatusCancelled)).Inc()
	return entity.OrderWithTickets{Order: updated}, entity.NewError(entity.KindPaymentFailed, failureMsg)
}

func (o *Orchestrator) bestEffortRelease(ctx context.Context, eventID int64, userID string, seatIDs []string) {
	ctx, span := step(ctx, "saga.compensate_release_seats")
	defer span.End()
	metrics.SagaCompensationsTotal.WithLabelValues("release_seats").Inc()

	if _, err := o.SeatRelease.ReleaseSeats(ctx, entity.ReleaseSeatsRequest{
		EventID: eventID,
		UserID:  userID,
		SeatIDs: seatIDs,
	}); err != nil {
		correlation.Logger(ctx).WithError(err).Warn("best-effort seat release failed")
	}
}
