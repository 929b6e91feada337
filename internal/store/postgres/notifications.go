package postgres

import (
	"context"
	"fmt"

	"GreenCampusServer/internal/domain"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type NotificationsStore struct {
	pool *pgxpool.Pool
}

func NewNotificationsStore(pool *pgxpool.Pool) *NotificationsStore {
	return &NotificationsStore{pool: pool}
}

func (s *NotificationsStore) ListNotifications(ctx context.Context, recipientID string, limit int) ([]domain.Notification, error) {
	out := []domain.Notification{}
	if !validID(recipientID) {
		return out, nil
	}
	const q = `
		SELECT id, recipient_id, sender_id, kind, message, is_read, created_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, q, recipientID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			n                    domain.Notification
			idUUID, rcpt, sender pgtype.UUID
		)
		if err := rows.Scan(&idUUID, &rcpt, &sender, &n.Kind, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.ID = uuidOrEmpty(idUUID)
		n.RecipientID = uuidOrEmpty(rcpt)
		n.SenderID = uuidOrEmpty(sender)
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}

// MarkAllRead flips every unread notification of the recipient and returns
// how many rows changed.
func (s *NotificationsStore) MarkAllRead(ctx context.Context, recipientID string) (int, error) {
	if !validID(recipientID) {
		return 0, nil
	}
	const q = `UPDATE notifications SET is_read = true WHERE recipient_id = $1 AND NOT is_read`
	ct, err := s.pool.Exec(ctx, q, recipientID)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	return int(ct.RowsAffected()), nil
}

func (s *NotificationsStore) CountUnread(ctx context.Context, recipientID string) (int, error) {
	if !validID(recipientID) {
		return 0, nil
	}
	const q = `SELECT count(*) FROM notifications WHERE recipient_id = $1 AND NOT is_read`
	var n int
	if err := s.pool.QueryRow(ctx, q, recipientID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}
