package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"GreenCampusServer/internal/domain"
	"GreenCampusServer/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustUser(t *testing.T, s *Store, studentID string) domain.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), domain.NewUser{
		Email:      studentID + "@student.green.edu.bd",
		StudentID:  studentID,
		Department: "CSE",
		Batch:      "Fall 2022",
	})
	require.NoError(t, err)
	return u
}

func TestCreateUserUniqueness(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := mustUser(t, s, "221902001")
	assert.Equal(t, "221902001", u.Username)
	assert.Equal(t, domain.UserStatusActive, u.Status)

	_, err := s.CreateUser(ctx, domain.NewUser{Email: "other@student.green.edu.bd", StudentID: "221902001"})
	assert.ErrorIs(t, err, domain.ErrStudentIDTaken)

	_, err = s.CreateUser(ctx, domain.NewUser{Email: u.Email, StudentID: "221902002"})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)

	got, err := s.GetUserByLogin(ctx, u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestInTxRollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := mustUser(t, s, "221902001")
	b := mustUser(t, s, "221902002")

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx service.LedgerTx) error {
		require.NoError(t, tx.InsertFollow(ctx, a.ID, b.ID, time.Now()))
		_, err := tx.RefreshFollowCounts(ctx, b.ID)
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetUserByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Zero(t, got.FollowersCount)

	err = s.InTx(ctx, func(tx service.LedgerTx) error {
		exists, err := tx.FollowExists(ctx, a.ID, b.ID)
		require.NoError(t, err)
		assert.False(t, exists)
		return nil
	})
	require.NoError(t, err)
}

func TestInTxUndoesEveryKindOfWrite(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := mustUser(t, s, "221902001")
	b := mustUser(t, s, "221902002")
	now := time.Now()

	var post domain.Post
	require.NoError(t, s.InTx(ctx, func(tx service.LedgerTx) error {
		var err error
		post, err = tx.InsertPost(ctx, domain.Post{AuthorID: b.ID, Content: "kept", Type: domain.PostTypeStatus, IsPublic: true})
		if err != nil {
			return err
		}
		if err := tx.InsertLike(ctx, domain.Like{UserID: a.ID, PostID: post.ID, CreatedAt: now}); err != nil {
			return err
		}
		_, err = tx.RefreshLikesCount(ctx, post.ID)
		return err
	}))

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx service.LedgerTx) error {
		require.NoError(t, tx.InsertFollow(ctx, a.ID, b.ID, now))
		_, err := tx.InsertRequest(ctx, domain.Request{Kind: domain.RequestKindFriend, SenderID: a.ID, ReceiverID: b.ID, Status: domain.RequestStatusPending})
		require.NoError(t, err)
		_, err = tx.EnsureFriendship(ctx, a.ID, b.ID, now)
		require.NoError(t, err)
		require.NoError(t, tx.DeleteLike(ctx, a.ID, post.ID))
		_, err = tx.RefreshLikesCount(ctx, post.ID)
		require.NoError(t, err)
		require.NoError(t, tx.InsertReaction(ctx, domain.Reaction{UserID: a.ID, PostID: post.ID, Kind: domain.ReactionWow}))
		_, err = tx.RefreshReactionCounts(ctx, post.ID)
		require.NoError(t, err)
		_, err = tx.InsertComment(ctx, domain.Comment{PostID: post.ID, AuthorID: a.ID, Content: "gone"})
		require.NoError(t, err)
		_, err = tx.RefreshCommentsCount(ctx, post.ID)
		require.NoError(t, err)
		_, err = tx.InsertNotification(ctx, domain.Notification{RecipientID: b.ID, SenderID: a.ID, Kind: domain.NotificationFollow})
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.LikesCount)
	assert.Zero(t, got.CommentsCount)
	assert.Empty(t, got.ReactionsCount)

	_, err = s.FindRequestBetween(ctx, domain.RequestKindFriend, a.ID, b.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	friends, err := s.ListFriendIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, friends)
	unread, err := s.CountUnread(ctx, b.ID)
	require.NoError(t, err)
	assert.Zero(t, unread)

	require.NoError(t, s.InTx(ctx, func(tx service.LedgerTx) error {
		liked, err := tx.LikeExists(ctx, a.ID, post.ID)
		require.NoError(t, err)
		assert.True(t, liked)
		following, err := tx.FollowExists(ctx, a.ID, b.ID)
		require.NoError(t, err)
		assert.False(t, following)
		n, err := tx.RefreshCommentsCount(ctx, post.ID)
		require.NoError(t, err)
		assert.Zero(t, n)
		return nil
	}))
}

func TestInTxRollsBackOnPanic(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := mustUser(t, s, "221902001")
	b := mustUser(t, s, "221902002")

	assert.Panics(t, func() {
		_ = s.InTx(ctx, func(tx service.LedgerTx) error {
			require.NoError(t, tx.InsertFollow(ctx, a.ID, b.ID, time.Now()))
			panic("handler bug")
		})
	})

	require.NoError(t, s.InTx(ctx, func(tx service.LedgerTx) error {
		exists, err := tx.FollowExists(ctx, a.ID, b.ID)
		require.NoError(t, err)
		assert.False(t, exists)
		return nil
	}))
}

func TestInTxRejectsDuplicates(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := mustUser(t, s, "221902001")
	b := mustUser(t, s, "221902002")

	err := s.InTx(ctx, func(tx service.LedgerTx) error {
		if _, err := tx.InsertRequest(ctx, domain.Request{Kind: domain.RequestKindFriend, SenderID: a.ID, ReceiverID: b.ID, Status: domain.RequestStatusPending}); err != nil {
			return err
		}
		_, err := tx.InsertRequest(ctx, domain.Request{Kind: domain.RequestKindFriend, SenderID: b.ID, ReceiverID: a.ID, Status: domain.RequestStatusPending})
		return err
	})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = s.FindRequestBetween(ctx, domain.RequestKindFriend, a.ID, b.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEnsureFriendshipIsCanonical(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := mustUser(t, s, "221902001")
	b := mustUser(t, s, "221902002")

	err := s.InTx(ctx, func(tx service.LedgerTx) error {
		f1, err := tx.EnsureFriendship(ctx, b.ID, a.ID, time.Now())
		require.NoError(t, err)
		f2, err := tx.EnsureFriendship(ctx, a.ID, b.ID, time.Now())
		require.NoError(t, err)
		assert.Equal(t, f1, f2)
		assert.Less(t, f1.User1ID, f1.User2ID)
		return nil
	})
	require.NoError(t, err)

	ids, err := s.ListFriendIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, ids)
}

func TestNotificationsNewestFirstAndMarkRead(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := mustUser(t, s, "221902001")
	b := mustUser(t, s, "221902002")

	err := s.InTx(ctx, func(tx service.LedgerTx) error {
		for _, msg := range []string{"first", "second", "third"} {
			if _, err := tx.InsertNotification(ctx, domain.Notification{RecipientID: b.ID, SenderID: a.ID, Kind: domain.NotificationFollow, Message: msg}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	got, err := s.ListNotifications(ctx, b.ID, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "third", got[0].Message)
	assert.Equal(t, "second", got[1].Message)

	n, err := s.MarkAllRead(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	unread, err := s.CountUnread(ctx, b.ID)
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func TestSessions(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := mustUser(t, s, "221902001")

	id, err := s.CreateSession(ctx, u.ID, time.Now().Add(time.Hour), "", "")
	require.NoError(t, err)
	_, err = s.GetSession(ctx, id)
	require.NoError(t, err)

	require.NoError(t, s.RevokeSession(ctx, id, time.Now()))
	_, err = s.GetSession(ctx, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	expired, err := s.CreateSession(ctx, u.ID, time.Now().Add(-time.Minute), "", "")
	require.NoError(t, err)
	_, err = s.GetSession(ctx, expired)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNotificationTokensFollowLastOwnerAndCap(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := mustUser(t, s, "221902001")
	b := mustUser(t, s, "221902002")
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	_, err := s.UpsertToken(ctx, "00000000-0000-0000-0000-000000000000", "tok-x", "ios", base)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	first, err := s.UpsertToken(ctx, a.ID, "tok-shared", "android", base)
	require.NoError(t, err)
	moved, err := s.UpsertToken(ctx, b.ID, "tok-shared", "ios", base.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, first.ID, moved.ID)
	assert.Equal(t, first.CreatedAt, moved.CreatedAt)

	owned, err := s.ListTokens(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, owned)
	assert.NotNil(t, owned)

	// Another user cannot delete b's token.
	require.NoError(t, s.DeleteToken(ctx, a.ID, "tok-shared"))
	owned, err = s.ListTokens(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, owned, 1)

	for i := range domain.MaxTokensPerUser + 2 {
		_, err := s.UpsertToken(ctx, a.ID, fmt.Sprintf("tok-%02d", i), "android", base.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}
	owned, err = s.ListTokens(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, owned, domain.MaxTokensPerUser)
	assert.Equal(t, fmt.Sprintf("tok-%02d", domain.MaxTokensPerUser+1), owned[0].Token)
	assert.Equal(t, "tok-02", owned[len(owned)-1].Token)
}
