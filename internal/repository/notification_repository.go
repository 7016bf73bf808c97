package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/fishing-club-booking/internal/model"
)

// NotificationRepo persists notifications addressed to (role, user).
type NotificationRepo struct{ db DBTX }

func NewNotificationRepo(db DBTX) *NotificationRepo { return &NotificationRepo{db: db} }

// Create inserts n and fills its ID and CreatedAt.
func (r *NotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (target_role, target_id, title, message, type, reservation_id, is_read)
		 VALUES (?,?,?,?,?,?,?)`,
		n.TargetRole, n.TargetID, n.Title, n.Message, n.Type, n.ReservationID, n.Read)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = uint64(id)
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	return nil
}

// List returns up to limit notifications of the recipient, newest first.
func (r *NotificationRepo) List(ctx context.Context, role string, targetID uint64, unreadOnly bool, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT id, target_role, target_id, title, message, type, reservation_id, is_read, created_at
		FROM notifications WHERE target_role=? AND target_id=?`
	if unreadOnly {
		q += " AND is_read=0"
	}
	q += " ORDER BY created_at DESC, id DESC LIMIT ?"
	rows, err := r.db.QueryContext(ctx, q, role, targetID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Notification{}
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.TargetRole, &n.TargetID, &n.Title, &n.Message, &n.Type,
			&n.ReservationID, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead flags one notification of the recipient as read.
func (r *NotificationRepo) MarkRead(ctx context.Context, id uint64, role string, targetID uint64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET is_read=1 WHERE id=? AND target_role=? AND target_id=?", id, role, targetID)
	return requireRow(res, err)
}

// MarkAllRead flags every unread notification of the recipient.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, role string, targetID uint64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET is_read=1 WHERE target_role=? AND target_id=? AND is_read=0", role, targetID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *NotificationRepo) CountUnread(ctx context.Context, role string, targetID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notifications WHERE target_role=? AND target_id=? AND is_read=0", role, targetID).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return n, err
}
