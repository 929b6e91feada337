package postgres

import (
	"context"
	"fmt"
	"time"

	"GreenCampusServer/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const tokenColumns = `id, user_id, token, platform, created_at, updated_at`

// NotificationTokensStore keeps device push tokens. A token belongs to the
// account that registered it last, and each account keeps only its
// domain.MaxTokensPerUser most recently refreshed devices.
type NotificationTokensStore struct {
	pool *pgxpool.Pool
}

func NewNotificationTokensStore(pool *pgxpool.Pool) *NotificationTokensStore {
	return &NotificationTokensStore{pool: pool}
}

func scanToken(row pgx.Row) (domain.NotificationToken, error) {
	var (
		t                domain.NotificationToken
		idUUID, userUUID pgtype.UUID
	)
	if err := row.Scan(&idUUID, &userUUID, &t.Token, &t.Platform, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return domain.NotificationToken{}, err
	}
	t.ID = uuidOrEmpty(idUUID)
	t.UserID = uuidOrEmpty(userUUID)
	return t, nil
}

func (s *NotificationTokensStore) UpsertToken(ctx context.Context, userID, token, platform string, when time.Time) (domain.NotificationToken, error) {
	if !validID(userID) {
		return domain.NotificationToken{}, domain.ErrNotFound
	}

	var out domain.NotificationToken
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		out, err = scanToken(tx.QueryRow(ctx, `
			INSERT INTO notification_tokens (user_id, token, platform, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $4)
			ON CONFLICT (token) DO UPDATE SET
				user_id = EXCLUDED.user_id,
				platform = EXCLUDED.platform,
				updated_at = EXCLUDED.updated_at
			RETURNING `+tokenColumns, userID, token, platform, when))
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			DELETE FROM notification_tokens
			WHERE user_id = $1 AND id NOT IN (
				SELECT id FROM notification_tokens
				WHERE user_id = $1
				ORDER BY updated_at DESC, id DESC
				LIMIT $2
			)
		`, userID, domain.MaxTokensPerUser)
		return err
	})
	if err != nil {
		if code, _ := pgCode(err); code == pgForeignKeyViolation {
			return domain.NotificationToken{}, domain.ErrNotFound
		}
		return domain.NotificationToken{}, fmt.Errorf("upsert notification token: %w", err)
	}
	return out, nil
}

// DeleteToken is a no-op unless userID currently owns token.
func (s *NotificationTokensStore) DeleteToken(ctx context.Context, userID, token string) error {
	if !validID(userID) {
		return nil
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM notification_tokens WHERE user_id = $1 AND token = $2`, userID, token); err != nil {
		return fmt.Errorf("delete notification token: %w", err)
	}
	return nil
}

// ListTokens returns userID's devices, most recently refreshed first.
func (s *NotificationTokensStore) ListTokens(ctx context.Context, userID string) ([]domain.NotificationToken, error) {
	out := []domain.NotificationToken{}
	if !validID(userID) {
		return out, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+tokenColumns+`
		FROM notification_tokens
		WHERE user_id = $1
		ORDER BY updated_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list notification tokens: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification token: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notification tokens: %w", err)
	}
	return out, nil
}
