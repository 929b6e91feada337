package postgres

import (
	"context"
	"errors"
	"fmt"

	"GreenCampusServer/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postColumns = `id, author_id, content, post_type, is_public, likes_count, comments_count, reactions_count, created_at, updated_at`

// feedColumns is postColumns qualified for queries that join follows.
const feedColumns = `p.id, p.author_id, p.content, p.post_type, p.is_public, p.likes_count, p.comments_count, p.reactions_count, p.created_at, p.updated_at`

type PostsStore struct {
	pool *pgxpool.Pool
}

func NewPostsStore(pool *pgxpool.Pool) *PostsStore {
	return &PostsStore{pool: pool}
}

func scanPost(row pgx.Row) (domain.Post, error) {
	var (
		p                  domain.Post
		idUUID, authorUUID pgtype.UUID
	)
	err := row.Scan(
		&idUUID,
		&authorUUID,
		&p.Content,
		&p.Type,
		&p.IsPublic,
		&p.LikesCount,
		&p.CommentsCount,
		&p.ReactionsCount,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return domain.Post{}, err
	}
	p.ID = uuidOrEmpty(idUUID)
	p.AuthorID = uuidOrEmpty(authorUUID)
	if p.ReactionsCount == nil {
		p.ReactionsCount = domain.ReactionCounts{}
	}
	return p, nil
}

// getPost loads one post. forUpdate locks the row for the rest of the
// transaction.
func getPost(ctx context.Context, q querier, id string, forUpdate bool) (domain.Post, error) {
	if !validID(id) {
		return domain.Post{}, domain.ErrNotFound
	}
	sql := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	p, err := scanPost(q.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Post{}, domain.ErrNotFound
		}
		return domain.Post{}, fmt.Errorf("get post: %w", err)
	}
	return p, nil
}

func (s *PostsStore) GetPost(ctx context.Context, id string) (domain.Post, error) {
	return getPost(ctx, s.pool, id, false)
}

// ListFeed pages through the public posts written by userID or by anyone
// userID follows, newest first.
func (s *PostsStore) ListFeed(ctx context.Context, userID string, limit, offset int) ([]domain.Post, error) {
	if !validID(userID) {
		return []domain.Post{}, nil
	}
	const q = `
		SELECT ` + feedColumns + `
		FROM posts p
		LEFT JOIN follows f ON f.followee_id = p.author_id AND f.follower_id = $1
		WHERE p.is_public AND (p.author_id = $1 OR f.follower_id IS NOT NULL)
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.pool.Query(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list feed: %w", err)
	}
	defer rows.Close()

	out := []domain.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan feed post: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list feed: %w", err)
	}
	return out, nil
}
