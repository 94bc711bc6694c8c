package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sudo-init-do/carrypal/internal/notify"
)

// AppendNotifications inserts the whole set in one batch.
func (s *Store) AppendNotifications(ctx context.Context, items []notify.Notification) error {
	batch := &pgx.Batch{}
	for _, n := range items {
		batch.Queue(
			`INSERT INTO notifications (id, user_id, type, event, title, message, match_id, is_read, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			n.ID, n.UserID, string(n.Type), string(n.Event), n.Title, n.Message, nullable(n.MatchID), n.IsRead, n.CreatedAt,
		)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert notifications: %w", err)
	}
	return nil
}

func (s *Store) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]notify.Notification, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, type, event, title, message, COALESCE(match_id, ''), is_read, created_at
		 FROM notifications
		 WHERE user_id = $1 AND (NOT $2 OR is_read = FALSE)
		 ORDER BY created_at DESC, id DESC
		 LIMIT $3`,
		userID, unreadOnly, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []notify.Notification
	for rows.Next() {
		var n notify.Notification
		var typ, event string
		if err := rows.Scan(&n.ID, &n.UserID, &typ, &event, &n.Title, &n.Message, &n.MatchID, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Type, n.Event = notify.Type(typ), notify.EventKind(event)
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) MarkNotificationRead(ctx context.Context, userID, notificationID string) error {
	ct, err := s.pool.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`,
		notificationID, userID,
	)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return notify.ErrNotFound
	}
	return nil
}

func (s *Store) UnreadCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`, userID,
	).Scan(&n)
	return n, err
}
