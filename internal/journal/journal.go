// Package journal keeps a Postgres outbox of cart activity. Events are
// written as cart operations succeed and handed to a publisher in batches.
package journal

import (
	"context"
	"fmt"
	"time"

	trmsqlx "github.com/avito-tech/go-transaction-manager/sqlx"
	"github.com/avito-tech/go-transaction-manager/trm/manager"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const defaultBatchSize = 100

// PublishFunc delivers a batch. Returning an error leaves every event of the
// batch pending.
type PublishFunc func(ctx context.Context, events []Event) error

type Journal struct {
	db        *sqlx.DB
	trManager *manager.Manager
	getter    *trmsqlx.CtxGetter
	logger    *zap.Logger
	now       func() time.Time
}

func New(db *sqlx.DB, logger *zap.Logger) *Journal {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Journal{
		db:        db,
		trManager: manager.Must(trmsqlx.NewDefaultFactory(db)),
		getter:    trmsqlx.DefaultCtxGetter,
		logger:    logger,
		now:       time.Now,
	}
}

// Start creates the outbox table when it does not exist yet.
func (j *Journal) Start(ctx context.Context) error {
	if _, err := j.db.ExecContext(ctx, CreateEventsTableSQL); err != nil {
		return fmt.Errorf("failed to create cart_events: %w", err)
	}
	return nil
}

func (j *Journal) Stop(ctx context.Context) error {
	return nil
}

func (j *Journal) Record(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = j.now().UTC()
	}

	_, err := j.getter.DefaultTrOrDB(ctx, j.db).ExecContext(ctx, InsertEventSQL,
		event.ID,
		event.Type,
		event.StoreID,
		event.ProductID,
		event.Quantity,
		event.OrderID,
		event.BadgeCount,
		event.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record %s event: %w", event.Type, err)
	}

	return nil
}

// Dispatch locks up to limit pending events, publishes them and marks them
// published, all in one transaction. Concurrent dispatchers skip each
// other's rows. An event may be published twice if the commit fails after
// publish succeeded, so consumers dedupe by ID.
func (j *Journal) Dispatch(ctx context.Context, limit int, publish PublishFunc) (int, error) {
	if limit <= 0 {
		limit = defaultBatchSize
	}

	var published int
	err := j.trManager.Do(ctx, func(ctx context.Context) error {
		events, err := j.pending(ctx, limit)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		if err := publish(ctx, events); err != nil {
			return fmt.Errorf("failed to publish %d events: %w", len(events), err)
		}

		ids := make([]string, 0, len(events))
		for _, e := range events {
			ids = append(ids, e.ID)
		}
		if _, err := j.getter.DefaultTrOrDB(ctx, j.db).ExecContext(ctx, MarkEventsPublishedSQL, pq.Array(ids)); err != nil {
			return fmt.Errorf("failed to mark events published: %w", err)
		}

		published = len(events)
		return nil
	})
	if err != nil {
		return 0, err
	}

	if published > 0 {
		j.logger.Debug("cart events dispatched", zap.Int("count", published))
	}

	return published, nil
}

// Pending counts events that were not published yet.
func (j *Journal) Pending(ctx context.Context) (int, error) {
	var count int
	if err := sqlx.GetContext(ctx, j.getter.DefaultTrOrDB(ctx, j.db), &count, CountPendingEventsSQL); err != nil {
		return 0, fmt.Errorf("failed to count pending events: %w", err)
	}
	return count, nil
}

func (j *Journal) pending(ctx context.Context, limit int) ([]Event, error) {
	var events []Event
	if err := sqlx.SelectContext(ctx, j.getter.DefaultTrOrDB(ctx, j.db), &events, SelectPendingEventsSQL, limit); err != nil {
		return nil, fmt.Errorf("failed to select pending events: %w", err)
	}
	return events, nil
}
