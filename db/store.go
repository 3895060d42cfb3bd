// Package db is the Postgres-backed persistence layer: Order/Ticket/Outbox
// repositories bundled behind a single Store, following the teacher's
// sqlx-based repository style.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"ordersaga/entity"
)

// Executor is satisfied by both *sqlx.DB and *sqlx.Tx, letting read helpers
// run against either.
type Executor interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}

// Store bundles the Order, Ticket, and OutboxEvent repositories behind the
// single *sqlx.DB connection pool the orchestrator and dispatcher share.
type Store struct {
	db *sqlx.DB
}

func Open(dsn string) (*Store, error) {
	conn, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("db: open: %w", err)
	}
	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("db: ping: %w", err)
	}
	return &Store{db: conn}, nil
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping backs the readiness probe: a reachable connection pool, nothing more.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Migrate() error {
	return InitializeDatabaseSchema(s.db)
}

// InsertOrder persists a new Order (status=CREATED, payment_status=PENDING
// at call time) with no outbox event — nothing downstream needs to know
// about an order until it reaches a terminal-for-now state. On an
// idempotency-key collision it returns the pre-existing order instead of
// erroring: isErrorUniqueViolation resolves the create-create race without
// a SELECT-then-INSERT gap, so the loser of the race still gets a
// snapshot to return to its caller.
func (s *Store) InsertOrder(ctx context.Context, order entity.Order) (entity.Order, bool, error) {
	var created entity.Order
	var duplicate bool

	err := UpdateInTx(ctx, s.db, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		stmt, err := tx.PrepareNamedContext(ctx, `
			INSERT INTO orders (user_id, event_id, status, payment_status, order_total, idempotency_key, failure_reason)
			VALUES (:user_id, :event_id, :status, :payment_status, :order_total, :idempotency_key, :failure_reason)
			RETURNING order_id, user_id, event_id, status, payment_status, order_total, idempotency_key, failure_reason, created_at, updated_at
		`)
		if err != nil {
			return fmt.Errorf("prepare insert order: %w", err)
		}
		defer stmt.Close()

		if err := stmt.GetContext(ctx, &created, order); err != nil {
			if isErrorUniqueViolation(err) {
				// The failed INSERT aborts the transaction, so it must be
				// rolled back rather than committed; the existing row is
				// re-read below, outside it.
				duplicate = true
				return err
			}
			return fmt.Errorf("insert order: %w", err)
		}
		return nil
	})
	if err != nil && !duplicate {
		return entity.Order{}, false, err
	}

	if duplicate {
		existing, err := s.FindOrderByIdempotencyKey(ctx, *order.IdempotencyKey)
		if err != nil {
			return entity.Order{}, false, fmt.Errorf("db: re-read order after idempotency collision: %w", err)
		}
		return existing, true, nil
	}

	return created, false, nil
}

// OrderTransition is what a Store.UpdateOrder closure hands back: the new
// order state plus whatever tickets and outbox events that transition
// produces, all committed in the same transaction as the status change.
type OrderTransition struct {
	Order   entity.Order
	Tickets []entity.Ticket
	Events  []entity.OutboxEvent
}

// UpdateOrder reads the order under a serializable transaction, applies fn,
// and writes back the resulting status/tickets/outbox events atomically —
// the closure-based read-modify-write pattern used throughout the
// teacher's repositories.
func (s *Store) UpdateOrder(ctx context.Context, orderID int64, fn func(entity.Order) (OrderTransition, error)) (entity.Order, error) {
	var updated entity.Order

	err := UpdateInTx(ctx, s.db, sql.LevelSerializable, func(ctx context.Context, tx *sqlx.Tx) error {
		var current entity.Order
		if err := tx.GetContext(ctx, &current, `
			SELECT order_id, user_id, event_id, status, payment_status, order_total, idempotency_key, failure_reason, created_at, updated_at
			FROM orders WHERE order_id = $1 FOR UPDATE
		`, orderID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return entity.NewError(entity.KindNotFound, "order not found")
			}
			return fmt.Errorf("select order: %w", err)
		}

		transition, err := fn(current)
		if err != nil {
			return err
		}
		next := transition.Order

		if _, err := tx.ExecContext(ctx, `
			UPDATE orders SET status = $1, payment_status = $2, order_total = $3, failure_reason = $4, updated_at = now()
			WHERE order_id = $5
		`, next.Status, next.PaymentStatus, next.OrderTotal, next.FailureReason, orderID); err != nil {
			return fmt.Errorf("update order: %w", err)
		}

		for i := range transition.Tickets {
			transition.Tickets[i].OrderID = orderID
		}
		if len(transition.Tickets) > 0 {
			if _, err := tx.NamedExecContext(ctx, `
				INSERT INTO tickets (order_id, event_id, seat_id, price_paid)
				VALUES (:order_id, :event_id, :seat_id, :price_paid)
			`, transition.Tickets); err != nil {
				return fmt.Errorf("insert tickets: %w", err)
			}
		}

		for _, evt := range transition.Events {
			evt.AggregateID = fmt.Sprintf("%d", orderID)
			if _, err := tx.NamedExecContext(ctx, `
				INSERT INTO outbox_events (id, aggregate_type, aggregate_id, event_type, payload, correlation_id, dispatched)
				VALUES (:id, :aggregate_type, :aggregate_id, :event_type, :payload, :correlation_id, :dispatched)
			`, evt); err != nil {
				return fmt.Errorf("insert outbox event: %w", err)
			}
		}

		updated = next
		updated.OrderID = orderID
		return nil
	})
	if err != nil {
		return entity.Order{}, err
	}
	return updated, nil
}

func (s *Store) FindOrder(ctx context.Context, orderID int64) (entity.Order, error) {
	var order entity.Order
	err := s.db.GetContext(ctx, &order, `
		SELECT order_id, user_id, event_id, status, payment_status, order_total, idempotency_key, failure_reason, created_at, updated_at
		FROM orders WHERE order_id = $1
	`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Order{}, entity.NewError(entity.KindNotFound, "order not found")
	}
	if err != nil {
		return entity.Order{}, fmt.Errorf("db: find order: %w", err)
	}
	return order, nil
}

func (s *Store) FindOrderByIdempotencyKey(ctx context.Context, key string) (entity.Order, error) {
	var order entity.Order
	err := s.db.GetContext(ctx, &order, `
		SELECT order_id, user_id, event_id, status, payment_status, order_total, idempotency_key, failure_reason, created_at, updated_at
		FROM orders WHERE idempotency_key = $1
	`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Order{}, entity.NewError(entity.KindNotFound, "order not found")
	}
	if err != nil {
		return entity.Order{}, fmt.Errorf("db: find order by idempotency key: %w", err)
	}
	return order, nil
}

// FindOrdersByUser returns every order placed by userID, newest first.
func (s *Store) FindOrdersByUser(ctx context.Context, userID string) ([]entity.Order, error) {
	var orders []entity.Order
	err := s.db.SelectContext(ctx, &orders, `
		SELECT order_id, user_id, event_id, status, payment_status, order_total, idempotency_key, failure_reason, created_at, updated_at
		FROM orders WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("db: find orders by user: %w", err)
	}
	return orders, nil
}

// FindOrdersByEvent returns every order for eventID regardless of status,
// newest first.
func (s *Store) FindOrdersByEvent(ctx context.Context, eventID int64) ([]entity.Order, error) {
	var orders []entity.Order
	err := s.db.SelectContext(ctx, &orders, `
		SELECT order_id, user_id, event_id, status, payment_status, order_total, idempotency_key, failure_reason, created_at, updated_at
		FROM orders WHERE event_id = $1
		ORDER BY created_at DESC
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("db: find orders by event: %w", err)
	}
	return orders, nil
}

// ListOrders returns one page of every order, newest first, along with the
// total row count for pagination metadata. limit/offset are expected to
// already be clamped by the caller.
func (s *Store) ListOrders(ctx context.Context, limit, offset int) ([]entity.Order, int, error) {
	var orders []entity.Order
	if err := s.db.SelectContext(ctx, &orders, `
		SELECT order_id, user_id, event_id, status, payment_status, order_total, idempotency_key, failure_reason, created_at, updated_at
		FROM orders
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("db: list orders: %w", err)
	}

	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT count(*) FROM orders`); err != nil {
		return nil, 0, fmt.Errorf("db: count orders: %w", err)
	}

	return orders, total, nil
}

// OrderStatistics aggregates order counts by status and the summed
// order_total of CONFIRMED and REFUNDED orders, backing the
// GET /api/v1/orders/statistics endpoint.
type OrderStatistics struct {
	TotalOrders     int
	ConfirmedOrders int
	CancelledOrders int
	RefundedOrders  int
	TotalRevenue    entity.Money
}

func (s *Store) Statistics(ctx context.Context) (OrderStatistics, error) {
	var stats OrderStatistics

	if err := s.db.GetContext(ctx, &stats.TotalOrders, `SELECT count(*) FROM orders`); err != nil {
		return OrderStatistics{}, fmt.Errorf("db: count total orders: %w", err)
	}
	if err := s.db.GetContext(ctx, &stats.ConfirmedOrders, `SELECT count(*) FROM orders WHERE status = $1`, entity.OrderStatusConfirmed); err != nil {
		return OrderStatistics{}, fmt.Errorf("db: count confirmed orders: %w", err)
	}
	if err := s.db.GetContext(ctx, &stats.CancelledOrders, `SELECT count(*) FROM orders WHERE status = $1`, entity.OrderStatusCancelled); err != nil {
		return OrderStatistics{}, fmt.Errorf("db: count cancelled orders: %w", err)
	}
	if err := s.db.GetContext(ctx, &stats.RefundedOrders, `SELECT count(*) FROM orders WHERE status = $1`, entity.OrderStatusRefunded); err != nil {
		return OrderStatistics{}, fmt.Errorf("db: count refunded orders: %w", err)
	}
	if err := s.db.GetContext(ctx, &stats.TotalRevenue, `
		SELECT COALESCE(SUM(order_total), 0) FROM orders WHERE status IN ($1, $2)
	`, entity.OrderStatusConfirmed, entity.OrderStatusRefunded); err != nil {
		return OrderStatistics{}, fmt.Errorf("db: sum revenue: %w", err)
	}

	return stats, nil
}

// FindConfirmedOrdersByEvent is used by HandleEventCancelled to find every
// order that needs refunding when an event is pulled.
func (s *Store) FindConfirmedOrdersByEvent(ctx context.Context, eventID int64) ([]entity.Order, error) {
	var orders []entity.Order
	err := s.db.SelectContext(ctx, &orders, `
		SELECT order_id, user_id, event_id, status, payment_status, order_total, idempotency_key, failure_reason, created_at, updated_at
		FROM orders WHERE event_id = $1 AND status = $2
	`, eventID, entity.OrderStatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("db: find confirmed orders by event: %w", err)
	}
	return orders, nil
}

func (s *Store) InsertTickets(ctx context.Context, tickets []entity.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO tickets (order_id, event_id, seat_id, price_paid)
		VALUES (:order_id, :event_id, :seat_id, :price_paid)
	`, tickets)
	if err != nil {
		return fmt.Errorf("db: insert tickets: %w", err)
	}
	return nil
}

func (s *Store) FindTicketsByOrder(ctx context.Context, orderID int64) ([]entity.Ticket, error) {
	var tickets []entity.Ticket
	err := s.db.SelectContext(ctx, &tickets, `
		SELECT ticket_id, order_id, event_id, seat_id, price_paid, created_at
		FROM tickets WHERE order_id = $1
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("db: find tickets by order: %w", err)
	}
	return tickets, nil
}

func (s *Store) FindTicket(ctx context.Context, ticketID int64) (entity.Ticket, error) {
	var ticket entity.Ticket
	err := s.db.GetContext(ctx, &ticket, `
		SELECT ticket_id, order_id, event_id, seat_id, price_paid, created_at
		FROM tickets WHERE ticket_id = $1
	`, ticketID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Ticket{}, entity.NewError(entity.KindNotFound, "ticket not found")
	}
	if err != nil {
		return entity.Ticket{}, fmt.Errorf("db: find ticket: %w", err)
	}
	return ticket, nil
}

func (s *Store) FindTicketsByEvent(ctx context.Context, eventID int64) ([]entity.Ticket, error) {
	var tickets []entity.Ticket
	err := s.db.SelectContext(ctx, &tickets, `
		SELECT ticket_id, order_id, event_id, seat_id, price_paid, created_at
		FROM tickets WHERE event_id = $1
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("db: find tickets by event: %w", err)
	}
	return tickets, nil
}

// ClaimAndDispatchOutboxEvent locks one undispatched row with FOR UPDATE
// SKIP LOCKED, calls dispatch while still holding that lock, and — only on
// success — marks the row dispatched in the very same transaction. Holding
// the claim across dispatch instead of releasing it on a bare SELECT is
// what actually prevents two dispatcher instances from ever delivering the
// same event twice; a SELECT ... FOR UPDATE on its own auto-commits and
// drops the lock the instant it returns, well before anything downstream
// has acted on the row.
//
// claimed is false when there was nothing left to dispatch. dispatchErr is
// dispatch's own error, returned separately from err so a caller can tell
// "dispatch failed, row stays undispatched for retry" apart from "the
// claim/mark itself failed at the database level" — the row is left
// undispatched either way, and the transaction still commits on a dispatch
// error since nothing else was mutated.
func (s *Store) ClaimAndDispatchOutboxEvent(ctx context.Context, dispatch func(context.Context, entity.OutboxEvent) error) (claimed bool, dispatchErr error, err error) {
	err = UpdateInTx(ctx, s.db, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		var evt entity.OutboxEvent
		selErr := tx.GetContext(ctx, &evt, `
			SELECT id, aggregate_type, aggregate_id, event_type, payload, correlation_id, created_at, dispatched
			FROM outbox_events
			WHERE dispatched = FALSE
			ORDER BY created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		`)
		if errors.Is(selErr, sql.ErrNoRows) {
			return nil
		}
		if selErr != nil {
			return fmt.Errorf("claim outbox event: %w", selErr)
		}
		claimed = true

		if dErr := dispatch(ctx, evt); dErr != nil {
			dispatchErr = dErr
			return nil
		}

		if _, updErr := tx.ExecContext(ctx, `UPDATE outbox_events SET dispatched = TRUE WHERE id = $1`, evt.ID); updErr != nil {
			return fmt.Errorf("mark outbox event dispatched: %w", updErr)
		}
		return nil
	})
	return claimed, dispatchErr, err
}
