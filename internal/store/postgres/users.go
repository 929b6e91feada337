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

const userColumns = `id, email, username, student_id, display_name, department, batch, phone,
	status, followers_count, following_count, posts_count, created_at, updated_at, last_login_at`

type UsersStore struct {
	pool *pgxpool.Pool
}

func NewUsersStore(pool *pgxpool.Pool) *UsersStore {
	return &UsersStore{pool: pool}
}

// scanUser reads userColumns followed by any extra destinations.
func scanUser(row pgx.Row, extra ...any) (domain.User, error) {
	var (
		u           domain.User
		idUUID      pgtype.UUID
		phoneText   pgtype.Text
		lastLoginTS pgtype.Timestamptz
	)
	dest := []any{
		&idUUID,
		&u.Email,
		&u.Username,
		&u.StudentID,
		&u.DisplayName,
		&u.Department,
		&u.Batch,
		&phoneText,
		&u.Status,
		&u.FollowersCount,
		&u.FollowingCount,
		&u.PostsCount,
		&u.CreatedAt,
		&u.UpdatedAt,
		&lastLoginTS,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return domain.User{}, err
	}

	u.ID = uuidOrEmpty(idUUID)
	u.Phone = textOrEmpty(phoneText)
	u.LastLoginAt = timestamptzPtr(lastLoginTS)
	return u, nil
}

func getUser(ctx context.Context, q querier, id string) (domain.User, error) {
	if !validID(id) {
		return domain.User{}, domain.ErrNotFound
	}
	u, err := scanUser(q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

func (s *UsersStore) CreateUser(ctx context.Context, nu domain.NewUser) (domain.User, error) {
	const q = `
		INSERT INTO users (email, username, student_id, display_name, department, batch, phone, password_hash)
		VALUES ($1, $2, $2, $3, $4, $5, $6, $7)
		RETURNING ` + userColumns

	u, err := scanUser(s.pool.QueryRow(ctx, q,
		nu.Email,
		nu.StudentID,
		nu.DisplayName,
		nu.Department,
		nu.Batch,
		nullIfEmpty(nu.Phone),
		nu.PasswordHash,
	))
	if err != nil {
		return domain.User{}, mapUserWriteError(err)
	}
	return u, nil
}

func (s *UsersStore) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return getUser(ctx, s.pool, id)
}

// GetUserByLogin matches the handle, the student id or the email.
func (s *UsersStore) GetUserByLogin(ctx context.Context, login string) (domain.UserWithPassword, error) {
	const q = `
		SELECT ` + userColumns + `, password_hash
		FROM users
		WHERE username = $1 OR student_id = $1 OR email = $1
		ORDER BY (username = $1) DESC
		LIMIT 1
	`

	var hash string
	u, err := scanUser(s.pool.QueryRow(ctx, q, login), &hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserWithPassword{}, domain.ErrNotFound
		}
		return domain.UserWithPassword{}, fmt.Errorf("get user by login: %w", err)
	}
	return domain.UserWithPassword{User: u, PasswordHash: hash}, nil
}

func (s *UsersStore) GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error) {
	const q = `
		SELECT ` + userColumns + `, password_hash
		FROM users
		WHERE email = $1
		LIMIT 1
	`

	var hash string
	u, err := scanUser(s.pool.QueryRow(ctx, q, email), &hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserWithPassword{}, domain.ErrNotFound
		}
		return domain.UserWithPassword{}, fmt.Errorf("get user by email: %w", err)
	}
	return domain.UserWithPassword{User: u, PasswordHash: hash}, nil
}

func (s *UsersStore) SetLastLogin(ctx context.Context, userID string, when time.Time) error {
	const q = `
		UPDATE users
		SET last_login_at = $2, updated_at = now()
		WHERE id = $1
	`
	_, err := s.pool.Exec(ctx, q, userID, when)
	if err != nil {
		return fmt.Errorf("set last login: %w", err)
	}
	return nil
}

func mapUserWriteError(err error) error {
	if code, constraint := pgCode(err); code == pgUniqueViolation {
		switch constraint {
		case "users_username_uq", "users_student_id_uq":
			return domain.ErrStudentIDTaken
		case "users_email_uq":
			return domain.ErrEmailTaken
		default:
			return fmt.Errorf("unique violation (%s): %w", constraint, err)
		}
	}
	return fmt.Errorf("create user: %w", err)
}
