package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"GreenCampusServer/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return pool, nil
}

// Migrate applies the embedded schema. Every statement is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	pgUniqueViolation      = "23505"
	pgCheckViolation       = "23514"
	pgForeignKeyViolation  = "23503"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

func pgCode(err error) (string, string) {
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) {
		return pgerr.Code, pgerr.ConstraintName
	}
	return "", ""
}

// selfTargetConstraints are the CHECKs that reject an edge from a user to
// themselves.
var selfTargetConstraints = map[string]bool{
	"follows_not_self":         true,
	"friend_requests_not_self": true,
	"connections_not_self":     true,
	"friendships_ordered_pair": true,
}

// mapTxError turns storage-level races into domain.ErrConflict and CHECK
// violations into the matching domain error. Domain errors returned by the
// transaction body pass through unchanged.
func mapTxError(err error) error {
	if err == nil {
		return nil
	}
	switch code, constraint := pgCode(err); code {
	case pgUniqueViolation:
		return fmt.Errorf("%w: unique violation on %s", domain.ErrConflict, constraint)
	case pgSerializationFailure, pgDeadlockDetected:
		return fmt.Errorf("%w: %s", domain.ErrConflict, code)
	case pgCheckViolation:
		if selfTargetConstraints[constraint] {
			return fmt.Errorf("%w: %s", domain.ErrSelfTarget, constraint)
		}
		return fmt.Errorf("%w: check %s", domain.ErrValidation, constraint)
	}
	return err
}
