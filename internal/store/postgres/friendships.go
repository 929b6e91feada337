package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"GreenCampusServer/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const requestColumns = `id, sender_id, receiver_id, status, message, created_at, updated_at`

// RelationshipsStore serves the read-committed relationship queries.
type RelationshipsStore struct {
	pool *pgxpool.Pool
}

func NewRelationshipsStore(pool *pgxpool.Pool) *RelationshipsStore {
	return &RelationshipsStore{pool: pool}
}

func requestTable(kind domain.RequestKind) (string, error) {
	switch kind {
	case domain.RequestKindFriend:
		return "friend_requests", nil
	case domain.RequestKindConnection:
		return "connections", nil
	default:
		return "", domain.ErrInvalidKind
	}
}

func scanRequest(row pgx.Row, kind domain.RequestKind) (domain.Request, error) {
	var (
		r                domain.Request
		idUUID, from, to pgtype.UUID
	)
	if err := row.Scan(&idUUID, &from, &to, &r.Status, &r.Message, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return domain.Request{}, err
	}
	r.ID = uuidOrEmpty(idUUID)
	r.Kind = kind
	r.SenderID = uuidOrEmpty(from)
	r.ReceiverID = uuidOrEmpty(to)
	return r, nil
}

func findRequestBetween(ctx context.Context, q querier, kind domain.RequestKind, a, b string) (domain.Request, error) {
	table, err := requestTable(kind)
	if err != nil {
		return domain.Request{}, err
	}
	if !validID(a, b) {
		return domain.Request{}, domain.ErrNotFound
	}
	r, err := scanRequest(q.QueryRow(ctx, `
		SELECT `+requestColumns+`
		FROM `+table+`
		WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
	`, a, b), kind)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Request{}, domain.ErrNotFound
		}
		return domain.Request{}, fmt.Errorf("find %s request: %w", kind, err)
	}
	return r, nil
}

func (s *RelationshipsStore) FindRequestBetween(ctx context.Context, kind domain.RequestKind, a, b string) (domain.Request, error) {
	return findRequestBetween(ctx, s.pool, kind, a, b)
}

func (s *RelationshipsStore) ListFriendIDs(ctx context.Context, userID string) ([]string, error) {
	if !validID(userID) {
		return nil, nil
	}
	const q = `
		SELECT CASE WHEN user1_id = $1 THEN user2_id ELSE user1_id END AS friend_id
		FROM friendships
		WHERE user1_id = $1 OR user2_id = $1
		ORDER BY friend_id
	`

	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list friend ids: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var idUUID pgtype.UUID
		if err := rows.Scan(&idUUID); err != nil {
			return nil, fmt.Errorf("scan friend id: %w", err)
		}
		out = append(out, uuidOrEmpty(idUUID))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list friend ids: %w", err)
	}
	return out, nil
}

func (s *RelationshipsStore) ListOverview(ctx context.Context, userID string) (domain.FriendsOverview, error) {
	ov := domain.FriendsOverview{
		Friends:  []domain.UserSummary{},
		Incoming: []domain.FriendRequest{},
		Outgoing: []domain.FriendRequest{},
	}
	if !validID(userID) {
		return ov, nil
	}

	var err error
	if ov.Friends, err = s.listFriends(ctx, userID); err != nil {
		return domain.FriendsOverview{}, err
	}
	if ov.Incoming, err = s.listPending(ctx, userID, true); err != nil {
		return domain.FriendsOverview{}, err
	}
	if ov.Outgoing, err = s.listPending(ctx, userID, false); err != nil {
		return domain.FriendsOverview{}, err
	}
	return ov, nil
}

func (s *RelationshipsStore) listFriends(ctx context.Context, userID string) ([]domain.UserSummary, error) {
	const q = `
		SELECT u.id, u.username, u.display_name
		FROM friendships f
		JOIN users u ON u.id = CASE WHEN f.user1_id = $1 THEN f.user2_id ELSE f.user1_id END
		WHERE f.user1_id = $1 OR f.user2_id = $1
		ORDER BY u.username ASC
	`

	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	defer rows.Close()

	out := []domain.UserSummary{}
	for rows.Next() {
		var (
			idUUID pgtype.UUID
			u      domain.UserSummary
		)
		if err := rows.Scan(&idUUID, &u.Username, &u.DisplayName); err != nil {
			return nil, fmt.Errorf("scan friend: %w", err)
		}
		u.ID = uuidOrEmpty(idUUID)
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	return out, nil
}

// listPending returns pending friend requests addressed to userID when
// incoming is set, or sent by userID otherwise, newest first.
func (s *RelationshipsStore) listPending(ctx context.Context, userID string, incoming bool) ([]domain.FriendRequest, error) {
	q := `
		SELECT r.id, r.message, r.created_at, u.id, u.username, u.display_name
		FROM friend_requests r
		JOIN users u ON u.id = r.sender_id
		WHERE r.status = 'pending' AND r.receiver_id = $1
		ORDER BY r.created_at DESC
	`
	label := "incoming"
	if !incoming {
		q = `
		SELECT r.id, r.message, r.created_at, u.id, u.username, u.display_name
		FROM friend_requests r
		JOIN users u ON u.id = r.receiver_id
		WHERE r.status = 'pending' AND r.sender_id = $1
		ORDER BY r.created_at DESC
	`
		label = "outgoing"
	}

	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list %s requests: %w", label, err)
	}
	defer rows.Close()

	out := []domain.FriendRequest{}
	for rows.Next() {
		var (
			reqUUID, userUUID pgtype.UUID
			createdAt         time.Time
			fr                domain.FriendRequest
		)
		if err := rows.Scan(&reqUUID, &fr.Message, &createdAt, &userUUID, &fr.User.Username, &fr.User.DisplayName); err != nil {
			return nil, fmt.Errorf("scan %s request: %w", label, err)
		}
		fr.ID = uuidOrEmpty(reqUUID)
		fr.User.ID = uuidOrEmpty(userUUID)
		fr.CreatedAt = createdAt
		out = append(out, fr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s requests: %w", label, err)
	}
	return out, nil
}

// ListSuggestedUsers returns up to limit users who are neither userID nor
// already friends with userID, oldest accounts first.
func (s *RelationshipsStore) ListSuggestedUsers(ctx context.Context, userID string, limit int) ([]domain.UserSummary, error) {
	if !validID(userID) {
		return []domain.UserSummary{}, nil
	}
	const q = `
		SELECT u.id, u.username, u.display_name
		FROM users u
		WHERE u.id <> $1
			AND u.status = 'active'
			AND NOT EXISTS (
				SELECT 1 FROM friendships f
				WHERE f.user1_id = LEAST(u.id, $1::uuid) AND f.user2_id = GREATEST(u.id, $1::uuid)
			)
		ORDER BY u.created_at ASC, u.id ASC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list suggested users: %w", err)
	}
	defer rows.Close()

	out := []domain.UserSummary{}
	for rows.Next() {
		var (
			idUUID pgtype.UUID
			u      domain.UserSummary
		)
		if err := rows.Scan(&idUUID, &u.Username, &u.DisplayName); err != nil {
			return nil, fmt.Errorf("scan suggested user: %w", err)
		}
		u.ID = uuidOrEmpty(idUUID)
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list suggested users: %w", err)
	}
	return out, nil
}
