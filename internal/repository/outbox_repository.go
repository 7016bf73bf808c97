package repository

import (
	"context"
	"time"

	"github.com/iliyamo/fishing-club-booking/internal/model"
)

// OutboxRepo stores broker messages written in the same transaction as
// the change they announce.  The relay publishes and marks them.
type OutboxRepo struct{ db DBTX }

func NewOutboxRepo(db DBTX) *OutboxRepo { return &OutboxRepo{db: db} }

func (r *OutboxRepo) Enqueue(ctx context.Context, ev *model.OutboxEvent) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO outbox_events (event_id, topic, payload) VALUES (?,?,?)",
		ev.EventID, ev.Topic, ev.Payload)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ev.ID = uint64(id)
	return nil
}

// ClaimPending locks up to limit unpublished events with fewer than
// maxAttempts attempts.  SKIP LOCKED lets several relays run side by side;
// call it inside a transaction.
func (r *OutboxRepo) ClaimPending(ctx context.Context, limit, maxAttempts int) ([]model.OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, event_id, topic, payload, attempts, created_at FROM outbox_events
		 WHERE published_at IS NULL AND attempts < ? ORDER BY id LIMIT ? FOR UPDATE SKIP LOCKED`,
		maxAttempts, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.OutboxEvent
	for rows.Next() {
		var ev model.OutboxEvent
		if err := rows.Scan(&ev.ID, &ev.EventID, &ev.Topic, &ev.Payload, &ev.Attempts, &ev.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (r *OutboxRepo) MarkPublished(ctx context.Context, id uint64, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE outbox_events SET published_at=?, attempts=attempts+1 WHERE id=?", at.UTC(), id)
	return err
}

func (r *OutboxRepo) MarkFailed(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx, "UPDATE outbox_events SET attempts=attempts+1 WHERE id=?", id)
	return err
}
