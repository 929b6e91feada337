package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"GreenCampusServer/internal/domain"
	"GreenCampusServer/internal/service"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ service.UsersStore              = (*UsersStore)(nil)
	_ service.SessionsStore           = (*SessionsStore)(nil)
	_ service.NotificationTokensStore = (*NotificationTokensStore)(nil)
	_ service.NotificationsStore      = (*NotificationsStore)(nil)
	_ service.RelationshipReader      = (*RelationshipsStore)(nil)
	_ service.PostsReader             = (*PostsStore)(nil)
	_ service.LedgerTx                = (*ledgerTx)(nil)
)

func TestMapTxError(t *testing.T) {
	assert.NoError(t, mapTxError(nil))

	for _, code := range []string{pgUniqueViolation, pgSerializationFailure, pgDeadlockDetected} {
		err := mapTxError(fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: code}))
		assert.ErrorIs(t, err, domain.ErrConflict, code)
	}

	for constraint := range selfTargetConstraints {
		err := mapTxError(&pgconn.PgError{Code: pgCheckViolation, ConstraintName: constraint})
		assert.ErrorIs(t, err, domain.ErrSelfTarget, constraint)
		assert.Contains(t, schemaSQL, "CONSTRAINT "+constraint+" CHECK")
	}
	err := mapTxError(&pgconn.PgError{Code: pgCheckViolation, ConstraintName: "posts_content_check"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.ErrorIs(t, mapTxError(domain.ErrDuplicateRequest), domain.ErrDuplicateRequest)
	other := errors.New("boom")
	assert.Same(t, other, mapTxError(other))
}

func TestMapUserWriteError(t *testing.T) {
	err := mapUserWriteError(&pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "users_student_id_uq"})
	assert.ErrorIs(t, err, domain.ErrStudentIDTaken)

	err = mapUserWriteError(&pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "users_email_uq"})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)

	err = mapUserWriteError(errors.New("conn reset"))
	assert.ErrorContains(t, err, "create user")
}

func TestRequestTable(t *testing.T) {
	table, err := requestTable(domain.RequestKindFriend)
	require.NoError(t, err)
	assert.Equal(t, "friend_requests", table)

	table, err = requestTable(domain.RequestKindConnection)
	require.NoError(t, err)
	assert.Equal(t, "connections", table)

	_, err = requestTable("follow")
	assert.ErrorIs(t, err, domain.ErrInvalidKind)
}

func TestValidID(t *testing.T) {
	assert.True(t, validID("6ba7b810-9dad-11d1-80b4-00c04fd430c8"))
	assert.False(t, validID("6ba7b810-9dad-11d1-80b4-00c04fd430c8", "not-a-uuid"))
	assert.False(t, validID(""))
}

func TestStoresTreatMalformedUserIDsAsUnknown(t *testing.T) {
	ctx := context.Background()
	tokens := NewNotificationTokensStore(nil)

	_, err := tokens.UpsertToken(ctx, "user-1", "tok", "ios", time.Now())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, tokens.DeleteToken(ctx, "user-1", "tok"))
	list, err := tokens.ListTokens(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, list)

	feed, err := NewPostsStore(nil).ListFeed(ctx, "user-1", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, feed)

	suggested, err := NewRelationshipsStore(nil).ListSuggestedUsers(ctx, "user-1", 20)
	require.NoError(t, err)
	assert.Empty(t, suggested)
}

func TestUUIDBytesToString(t *testing.T) {
	b := [16]byte{0x6b, 0xa7, 0xb8, 0x10, 0x9d, 0xad, 0x11, 0xd1, 0x80, 0xb4, 0x00, 0xc0, 0x4f, 0xd4, 0x30, 0xc8}
	assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", uuidBytesToString(b))
}

func TestSchemaDeclaresUniquenessConstraints(t *testing.T) {
	for _, want := range []string{
		"PRIMARY KEY (follower_id, followee_id)",
		"friend_requests_pair_uq",
		"connections_pair_uq",
		"CHECK (user1_id < user2_id)",
		"PRIMARY KEY (user_id, post_id)",
		"users_student_id_uq",
	} {
		assert.Contains(t, schemaSQL, want)
	}
}
