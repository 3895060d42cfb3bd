package db

import "github.com/jmoiron/sqlx"

// schema is applied idempotently at startup and once per test binary by the
// db package's test setup, mirroring the teacher's InitializeDatabaseSchema.
const schema = `
CREATE TABLE IF NOT EXISTS orders (
    order_id          BIGSERIAL PRIMARY KEY,
    user_id           TEXT NOT NULL,
    event_id          BIGINT NOT NULL,
    status            TEXT NOT NULL,
    payment_status    TEXT NOT NULL,
    order_total       NUMERIC(12,2) NOT NULL,
    idempotency_key   TEXT,
    failure_reason    TEXT NOT NULL DEFAULT '',
    created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS orders_idempotency_key_idx
    ON orders (idempotency_key)
    WHERE idempotency_key IS NOT NULL;

CREATE INDEX IF NOT EXISTS orders_event_id_idx ON orders (event_id);
CREATE INDEX IF NOT EXISTS orders_user_id_idx ON orders (user_id);
CREATE INDEX IF NOT EXISTS orders_status_idx ON orders (status);

CREATE TABLE IF NOT EXISTS tickets (
    ticket_id   BIGSERIAL PRIMARY KEY,
    order_id    BIGINT NOT NULL REFERENCES orders (order_id),
    event_id    BIGINT NOT NULL,
    seat_id     TEXT NOT NULL,
    price_paid  NUMERIC(12,2) NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS tickets_order_id_idx ON tickets (order_id);
CREATE INDEX IF NOT EXISTS tickets_event_id_idx ON tickets (event_id);
CREATE INDEX IF NOT EXISTS tickets_seat_id_idx ON tickets (seat_id);

CREATE TABLE IF NOT EXISTS outbox_events (
    id             TEXT PRIMARY KEY,
    aggregate_type TEXT NOT NULL,
    aggregate_id   TEXT NOT NULL,
    event_type     TEXT NOT NULL,
    payload        JSONB NOT NULL,
    correlation_id TEXT NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    dispatched     BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS outbox_events_undispatched_idx
    ON outbox_events (created_at)
    WHERE dispatched = FALSE;
`

// InitializeDatabaseSchema applies schema. Safe to call repeatedly.
func InitializeDatabaseSchema(db *sqlx.DB) error {
	_, err := db.Exec(schema)
	return err
}
