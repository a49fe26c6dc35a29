package journal

const (
	CreateEventsTableSQL = `
    CREATE TABLE IF NOT EXISTS cart_events (
        id           TEXT PRIMARY KEY,
        event_type   TEXT        NOT NULL,
        store_id     TEXT        NOT NULL DEFAULT '',
        product_id   TEXT        NOT NULL DEFAULT '',
        quantity     INTEGER     NOT NULL DEFAULT 0,
        order_id     TEXT        NOT NULL DEFAULT '',
        badge_count  INTEGER     NOT NULL DEFAULT 0,
        occurred_at  TIMESTAMPTZ NOT NULL,
        published_at TIMESTAMPTZ
    );
    CREATE INDEX IF NOT EXISTS cart_events_unpublished_idx
        ON cart_events (occurred_at) WHERE published_at IS NULL;
`

	InsertEventSQL = `
    INSERT INTO cart_events (id, event_type, store_id, product_id, quantity, order_id, badge_count, occurred_at)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

	SelectPendingEventsSQL = `
    SELECT id, event_type, store_id, product_id, quantity, order_id, badge_count, occurred_at
    FROM cart_events
    WHERE published_at IS NULL
    ORDER BY occurred_at, id
    LIMIT $1
    FOR UPDATE SKIP LOCKED
`

	MarkEventsPublishedSQL = `
    UPDATE cart_events
    SET published_at = now()
    WHERE id = ANY($1)
`

	CountPendingEventsSQL = "SELECT count(*) FROM cart_events WHERE published_at IS NULL"
)
