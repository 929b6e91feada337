package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"GreenCampusServer/internal/domain"
	"GreenCampusServer/internal/service"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ledger runs relationship and engagement writes in serializable
// transactions.
type Ledger struct {
	pool *pgxpool.Pool
}

func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

var _ service.Ledger = (*Ledger)(nil)

func (l *Ledger) InTx(ctx context.Context, fn func(tx service.LedgerTx) error) error {
	err := pgx.BeginTxFunc(ctx, l.pool, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(t pgx.Tx) error {
		return fn(&ledgerTx{q: t})
	})
	return mapTxError(err)
}

type ledgerTx struct {
	q pgx.Tx
}

func (t *ledgerTx) GetUser(ctx context.Context, id string) (domain.User, error) {
	return getUser(ctx, t.q, id)
}

func (t *ledgerTx) FollowExists(ctx context.Context, followerID, followeeID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM follows WHERE follower_id = $1 AND followee_id = $2)`
	var ok bool
	if err := t.q.QueryRow(ctx, q, followerID, followeeID).Scan(&ok); err != nil {
		return false, fmt.Errorf("follow exists: %w", err)
	}
	return ok, nil
}

func (t *ledgerTx) InsertFollow(ctx context.Context, followerID, followeeID string, when time.Time) error {
	const q = `INSERT INTO follows (follower_id, followee_id, created_at) VALUES ($1, $2, $3)`
	if _, err := t.q.Exec(ctx, q, followerID, followeeID, when); err != nil {
		return fmt.Errorf("insert follow: %w", err)
	}
	return nil
}

func (t *ledgerTx) DeleteFollow(ctx context.Context, followerID, followeeID string) error {
	const q = `DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2`
	if _, err := t.q.Exec(ctx, q, followerID, followeeID); err != nil {
		return fmt.Errorf("delete follow: %w", err)
	}
	return nil
}

func (t *ledgerTx) RefreshFollowCounts(ctx context.Context, userID string) (domain.FollowCounts, error) {
	const q = `
		UPDATE users SET
			followers_count = (SELECT count(*) FROM follows WHERE followee_id = $1),
			following_count = (SELECT count(*) FROM follows WHERE follower_id = $1)
		WHERE id = $1
		RETURNING followers_count, following_count
	`
	var c domain.FollowCounts
	if err := t.q.QueryRow(ctx, q, userID).Scan(&c.Followers, &c.Following); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.FollowCounts{}, domain.ErrNotFound
		}
		return domain.FollowCounts{}, fmt.Errorf("refresh follow counts: %w", err)
	}
	return c, nil
}

func (t *ledgerTx) FindRequestBetween(ctx context.Context, kind domain.RequestKind, a, b string) (domain.Request, error) {
	return findRequestBetween(ctx, t.q, kind, a, b)
}

func (t *ledgerTx) InsertRequest(ctx context.Context, r domain.Request) (domain.Request, error) {
	table, err := requestTable(r.Kind)
	if err != nil {
		return domain.Request{}, err
	}
	out, err := scanRequest(t.q.QueryRow(ctx, `
		INSERT INTO `+table+` (sender_id, receiver_id, status, message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+requestColumns,
		r.SenderID, r.ReceiverID, r.Status, r.Message, r.CreatedAt, r.UpdatedAt,
	), r.Kind)
	if err != nil {
		if code, _ := pgCode(err); code == pgUniqueViolation {
			return domain.Request{}, domain.ErrDuplicateRequest
		}
		return domain.Request{}, fmt.Errorf("insert %s request: %w", r.Kind, err)
	}
	return out, nil
}

func (t *ledgerTx) GetPendingRequest(ctx context.Context, kind domain.RequestKind, id, receiverID string) (domain.Request, error) {
	table, err := requestTable(kind)
	if err != nil {
		return domain.Request{}, err
	}
	if !validID(id, receiverID) {
		return domain.Request{}, domain.ErrNotFound
	}
	r, err := scanRequest(t.q.QueryRow(ctx, `
		SELECT `+requestColumns+`
		FROM `+table+`
		WHERE id = $1 AND receiver_id = $2 AND status = 'pending'
		FOR UPDATE
	`, id, receiverID), kind)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Request{}, domain.ErrNotFound
		}
		return domain.Request{}, fmt.Errorf("get pending %s request: %w", kind, err)
	}
	return r, nil
}

func (t *ledgerTx) SetRequestStatus(ctx context.Context, kind domain.RequestKind, id string, status domain.RequestStatus, when time.Time) (domain.Request, error) {
	table, err := requestTable(kind)
	if err != nil {
		return domain.Request{}, err
	}
	r, err := scanRequest(t.q.QueryRow(ctx, `
		UPDATE `+table+`
		SET status = $2, updated_at = $3
		WHERE id = $1
		RETURNING `+requestColumns,
		id, status, when,
	), kind)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Request{}, domain.ErrNotFound
		}
		return domain.Request{}, fmt.Errorf("set %s request status: %w", kind, err)
	}
	return r, nil
}

func (t *ledgerTx) EnsureFriendship(ctx context.Context, a, b string, when time.Time) (domain.Friendship, error) {
	if a == b {
		return domain.Friendship{}, domain.ErrSelfTarget
	}
	u1, u2 := domain.CanonicalPair(a, b)
	const q = `
		INSERT INTO friendships (user1_id, user2_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user1_id, user2_id) DO UPDATE SET user1_id = EXCLUDED.user1_id
		RETURNING created_at
	`
	f := domain.Friendship{User1ID: u1, User2ID: u2}
	if err := t.q.QueryRow(ctx, q, u1, u2, when).Scan(&f.CreatedAt); err != nil {
		return domain.Friendship{}, fmt.Errorf("ensure friendship: %w", err)
	}
	return f, nil
}

func (t *ledgerTx) DeleteFriendship(ctx context.Context, a, b string) (bool, error) {
	if !validID(a, b) {
		return false, nil
	}
	u1, u2 := domain.CanonicalPair(a, b)
	ct, err := t.q.Exec(ctx, `DELETE FROM friendships WHERE user1_id = $1 AND user2_id = $2`, u1, u2)
	if err != nil {
		return false, fmt.Errorf("delete friendship: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

func (t *ledgerTx) GetPost(ctx context.Context, id string) (domain.Post, error) {
	return getPost(ctx, t.q, id, true)
}

func (t *ledgerTx) InsertPost(ctx context.Context, p domain.Post) (domain.Post, error) {
	const q = `
		INSERT INTO posts (author_id, content, post_type, is_public, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + postColumns
	out, err := scanPost(t.q.QueryRow(ctx, q, p.AuthorID, p.Content, p.Type, p.IsPublic, p.CreatedAt, p.UpdatedAt))
	if err != nil {
		return domain.Post{}, fmt.Errorf("insert post: %w", err)
	}
	return out, nil
}

func (t *ledgerTx) RefreshPostsCount(ctx context.Context, userID string) (int, error) {
	const q = `
		UPDATE users SET posts_count = (SELECT count(*) FROM posts WHERE author_id = $1)
		WHERE id = $1
		RETURNING posts_count
	`
	return t.refreshCount(ctx, "posts", q, userID)
}

func (t *ledgerTx) DeleteReaction(ctx context.Context, userID, postID string) error {
	const q = `DELETE FROM reactions WHERE user_id = $1 AND post_id = $2`
	if _, err := t.q.Exec(ctx, q, userID, postID); err != nil {
		return fmt.Errorf("delete reaction: %w", err)
	}
	return nil
}

func (t *ledgerTx) InsertReaction(ctx context.Context, r domain.Reaction) error {
	const q = `INSERT INTO reactions (user_id, post_id, kind, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := t.q.Exec(ctx, q, r.UserID, r.PostID, r.Kind, r.CreatedAt); err != nil {
		return fmt.Errorf("insert reaction: %w", err)
	}
	return nil
}

func (t *ledgerTx) RefreshReactionCounts(ctx context.Context, postID string) (domain.ReactionCounts, error) {
	const q = `
		UPDATE posts SET reactions_count = COALESCE(
			(SELECT jsonb_object_agg(kind, n)
			 FROM (SELECT kind, count(*) AS n FROM reactions WHERE post_id = $1 GROUP BY kind) c),
			'{}'::jsonb)
		WHERE id = $1
		RETURNING reactions_count
	`
	counts := domain.ReactionCounts{}
	if err := t.q.QueryRow(ctx, q, postID).Scan(&counts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("refresh reaction counts: %w", err)
	}
	return counts, nil
}

func (t *ledgerTx) LikeExists(ctx context.Context, userID, postID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM likes WHERE user_id = $1 AND post_id = $2)`
	var ok bool
	if err := t.q.QueryRow(ctx, q, userID, postID).Scan(&ok); err != nil {
		return false, fmt.Errorf("like exists: %w", err)
	}
	return ok, nil
}

func (t *ledgerTx) InsertLike(ctx context.Context, l domain.Like) error {
	const q = `INSERT INTO likes (user_id, post_id, created_at) VALUES ($1, $2, $3)`
	if _, err := t.q.Exec(ctx, q, l.UserID, l.PostID, l.CreatedAt); err != nil {
		return fmt.Errorf("insert like: %w", err)
	}
	return nil
}

func (t *ledgerTx) DeleteLike(ctx context.Context, userID, postID string) error {
	const q = `DELETE FROM likes WHERE user_id = $1 AND post_id = $2`
	if _, err := t.q.Exec(ctx, q, userID, postID); err != nil {
		return fmt.Errorf("delete like: %w", err)
	}
	return nil
}

func (t *ledgerTx) RefreshLikesCount(ctx context.Context, postID string) (int, error) {
	const q = `
		UPDATE posts SET likes_count = (SELECT count(*) FROM likes WHERE post_id = $1)
		WHERE id = $1
		RETURNING likes_count
	`
	return t.refreshCount(ctx, "likes", q, postID)
}

func (t *ledgerTx) InsertComment(ctx context.Context, c domain.Comment) (domain.Comment, error) {
	const q = `
		INSERT INTO comments (post_id, author_id, content, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	var idUUID pgtype.UUID
	if err := t.q.QueryRow(ctx, q, c.PostID, c.AuthorID, c.Content, c.CreatedAt).Scan(&idUUID); err != nil {
		return domain.Comment{}, fmt.Errorf("insert comment: %w", err)
	}
	c.ID = uuidOrEmpty(idUUID)
	return c, nil
}

func (t *ledgerTx) RefreshCommentsCount(ctx context.Context, postID string) (int, error) {
	const q = `
		UPDATE posts SET comments_count = (SELECT count(*) FROM comments WHERE post_id = $1)
		WHERE id = $1
		RETURNING comments_count
	`
	return t.refreshCount(ctx, "comments", q, postID)
}

func (t *ledgerTx) refreshCount(ctx context.Context, what, q, id string) (int, error) {
	var n int
	if err := t.q.QueryRow(ctx, q, id).Scan(&n); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("refresh %s count: %w", what, err)
	}
	return n, nil
}

func (t *ledgerTx) InsertNotification(ctx context.Context, n domain.Notification) (domain.Notification, error) {
	if n.RecipientID == n.SenderID {
		return domain.Notification{}, domain.ErrSelfTarget
	}
	const q = `
		INSERT INTO notifications (recipient_id, sender_id, kind, message, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	var idUUID pgtype.UUID
	err := t.q.QueryRow(ctx, q, n.RecipientID, nullIfEmpty(n.SenderID), n.Kind, n.Message, n.CreatedAt).Scan(&idUUID)
	if err != nil {
		return domain.Notification{}, fmt.Errorf("insert notification: %w", err)
	}
	n.ID = uuidOrEmpty(idUUID)
	n.IsRead = false
	return n, nil
}
