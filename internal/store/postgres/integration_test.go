package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"GreenCampusServer/internal/domain"
	"GreenCampusServer/internal/service"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testDSNEnv names a throwaway database the tests below may write to.
const testDSNEnv = "GREENCAMPUS_TEST_DSN"

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv(testDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", testDSNEnv)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, Migrate(ctx, pool))
	return pool
}

func createTestUser(t *testing.T, pool *pgxpool.Pool) domain.User {
	t.Helper()
	id := uuid.NewString()
	u, err := NewUsersStore(pool).CreateUser(context.Background(), domain.NewUser{
		Email:        id + "@campus.test",
		StudentID:    id,
		DisplayName:  "Test " + id[:8],
		Department:   "CSE",
		Batch:        "2024",
		PasswordHash: "unused",
	})
	require.NoError(t, err)
	return u
}

func createTestPost(t *testing.T, ledger *Ledger, authorID string, public bool, when time.Time) domain.Post {
	t.Helper()
	var p domain.Post
	err := ledger.InTx(context.Background(), func(tx service.LedgerTx) error {
		var err error
		p, err = tx.InsertPost(context.Background(), domain.Post{
			AuthorID:  authorID,
			Content:   "post at " + when.Format(time.RFC3339Nano),
			Type:      domain.PostTypeStatus,
			IsPublic:  public,
			CreatedAt: when,
			UpdatedAt: when,
		})
		return err
	})
	require.NoError(t, err)
	return p
}

func TestPostgresEnsureFriendshipKeepsFirstRow(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	ledger := NewLedger(pool)
	a, b, c := createTestUser(t, pool), createTestUser(t, pool), createTestUser(t, pool)

	first := time.Now().UTC().Truncate(time.Microsecond)
	var f1, f2 domain.Friendship
	require.NoError(t, ledger.InTx(ctx, func(tx service.LedgerTx) error {
		var err error
		f1, err = tx.EnsureFriendship(ctx, a.ID, b.ID, first)
		return err
	}))
	require.NoError(t, ledger.InTx(ctx, func(tx service.LedgerTx) error {
		var err error
		f2, err = tx.EnsureFriendship(ctx, b.ID, a.ID, first.Add(time.Hour))
		return err
	}))

	assert.Equal(t, f1.User1ID, f2.User1ID)
	assert.Equal(t, f1.User2ID, f2.User2ID)
	assert.True(t, f2.CreatedAt.Equal(first), "second ensure moved created_at to %v", f2.CreatedAt)

	rel := NewRelationshipsStore(pool)
	ids, err := rel.ListFriendIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, ids)

	suggested, err := rel.ListSuggestedUsers(ctx, a.ID, 1<<20)
	require.NoError(t, err)
	seen := map[string]bool{}
	for _, u := range suggested {
		seen[u.ID] = true
	}
	assert.False(t, seen[a.ID], "self suggested")
	assert.False(t, seen[b.ID], "friend suggested")
	assert.True(t, seen[c.ID], "stranger missing")
}

func TestPostgresReactionCountsRoundTripThroughJSONB(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	ledger := NewLedger(pool)
	a, b, c := createTestUser(t, pool), createTestUser(t, pool), createTestUser(t, pool)
	now := time.Now().UTC().Truncate(time.Microsecond)
	p := createTestPost(t, ledger, a.ID, true, now)

	var empty domain.ReactionCounts
	require.NoError(t, ledger.InTx(ctx, func(tx service.LedgerTx) error {
		var err error
		empty, err = tx.RefreshReactionCounts(ctx, p.ID)
		return err
	}))
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	var counts domain.ReactionCounts
	require.NoError(t, ledger.InTx(ctx, func(tx service.LedgerTx) error {
		for _, r := range []domain.Reaction{
			{UserID: a.ID, PostID: p.ID, Kind: domain.ReactionLike, CreatedAt: now},
			{UserID: b.ID, PostID: p.ID, Kind: domain.ReactionLove, CreatedAt: now},
			{UserID: c.ID, PostID: p.ID, Kind: domain.ReactionLike, CreatedAt: now},
		} {
			if err := tx.InsertReaction(ctx, r); err != nil {
				return err
			}
		}
		var err error
		counts, err = tx.RefreshReactionCounts(ctx, p.ID)
		return err
	}))
	want := domain.ReactionCounts{domain.ReactionLike: 2, domain.ReactionLove: 1}
	assert.Equal(t, want, counts)

	stored, err := NewPostsStore(pool).GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, want, stored.ReactionsCount)

	err = ledger.InTx(ctx, func(tx service.LedgerTx) error {
		_, err := tx.RefreshReactionCounts(ctx, uuid.NewString())
		return err
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostgresSelfFollowHitsNamedCheck(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	a := createTestUser(t, pool)

	err := NewLedger(pool).InTx(ctx, func(tx service.LedgerTx) error {
		return tx.InsertFollow(ctx, a.ID, a.ID, time.Now())
	})
	assert.ErrorIs(t, err, domain.ErrSelfTarget)
}

// Two transactions that each count a followee's followers and then add one
// form a write skew; the one that commits second must come back as a
// conflict.
func TestPostgresSerializationFailureIsConflict(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	target, a, c := createTestUser(t, pool), createTestUser(t, pool), createTestUser(t, pool)
	const countFollowers = `SELECT count(*) FROM follows WHERE followee_id = $1`

	other, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	require.NoError(t, err)
	defer other.Rollback(ctx)

	var n int
	require.NoError(t, other.QueryRow(ctx, countFollowers, target.ID).Scan(&n))
	_, err = other.Exec(ctx, `INSERT INTO follows (follower_id, followee_id) VALUES ($1, $2)`, a.ID, target.ID)
	require.NoError(t, err)

	err = NewLedger(pool).InTx(ctx, func(tx service.LedgerTx) error {
		q := tx.(*ledgerTx).q
		var m int
		if err := q.QueryRow(ctx, countFollowers, target.ID).Scan(&m); err != nil {
			return err
		}
		if err := other.Commit(ctx); err != nil {
			return fmt.Errorf("commit competing follow: %w", err)
		}
		return tx.InsertFollow(ctx, c.ID, target.ID, time.Now())
	})
	assert.ErrorIs(t, err, domain.ErrConflict)

	var followers int
	require.NoError(t, pool.QueryRow(ctx, countFollowers, target.ID).Scan(&followers))
	assert.Equal(t, 1, followers)
}

func TestPostgresFeedFiltersByFollowAndVisibility(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	ledger := NewLedger(pool)
	viewer, followed, stranger := createTestUser(t, pool), createTestUser(t, pool), createTestUser(t, pool)

	require.NoError(t, ledger.InTx(ctx, func(tx service.LedgerTx) error {
		return tx.InsertFollow(ctx, viewer.ID, followed.ID, time.Now())
	}))

	base := time.Now().UTC().Truncate(time.Microsecond)
	own := createTestPost(t, ledger, viewer.ID, true, base)
	followedPublic := createTestPost(t, ledger, followed.ID, true, base.Add(time.Minute))
	createTestPost(t, ledger, followed.ID, false, base.Add(2*time.Minute))
	createTestPost(t, ledger, stranger.ID, true, base.Add(3*time.Minute))

	posts := NewPostsStore(pool)
	feed, err := posts.ListFeed(ctx, viewer.ID, 10, 0)
	require.NoError(t, err)
	var got []string
	for _, p := range feed {
		got = append(got, p.ID)
	}
	assert.Equal(t, []string{followedPublic.ID, own.ID}, got)

	next, err := posts.ListFeed(ctx, viewer.ID, 1, 1)
	require.NoError(t, err)
	require.Len(t, next, 1)
	assert.Equal(t, own.ID, next[0].ID)
}

func TestPostgresTokensMoveOwnerAndStayCapped(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	store := NewNotificationTokensStore(pool)
	a, b := createTestUser(t, pool), createTestUser(t, pool)
	prefix := uuid.NewString()

	base := time.Now().UTC().Truncate(time.Microsecond)
	for i := 0; i <= domain.MaxTokensPerUser; i++ {
		_, err := store.UpsertToken(ctx, a.ID, fmt.Sprintf("%s-%02d", prefix, i), "android", base.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}

	tokens, err := store.ListTokens(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, tokens, domain.MaxTokensPerUser)
	assert.Equal(t, fmt.Sprintf("%s-%02d", prefix, domain.MaxTokensPerUser), tokens[0].Token)
	for _, tok := range tokens {
		assert.NotEqual(t, prefix+"-00", tok.Token, "oldest token kept")
	}

	moved, err := store.UpsertToken(ctx, b.ID, tokens[0].Token, "ios", base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, b.ID, moved.UserID)
	assert.Equal(t, "ios", moved.Platform)

	left, err := store.ListTokens(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, left, domain.MaxTokensPerUser-1)

	_, err = store.UpsertToken(ctx, uuid.NewString(), prefix+"-ghost", "ios", base)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
