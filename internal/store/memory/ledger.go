package memory

import (
	"context"
	"maps"
	"time"

	"GreenCampusServer/internal/domain"

	"github.com/google/uuid"
)

// tx writes straight into the live state and records how to undo each
// write. The store mutex is held for the whole transaction.
type tx struct {
	st   *state
	undo []func()
}

func (t *tx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func put[K comparable, V any](t *tx, m map[K]V, k K, v V) {
	old, had := m[k]
	t.undo = append(t.undo, func() {
		if had {
			m[k] = old
		} else {
			delete(m, k)
		}
	})
	m[k] = v
}

func del[K comparable, V any](t *tx, m map[K]V, k K) {
	old, had := m[k]
	if !had {
		return
	}
	t.undo = append(t.undo, func() { m[k] = old })
	delete(m, k)
}

func (t *tx) GetUser(_ context.Context, id string) (domain.User, error) {
	u, ok := t.st.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u.User, nil
}

func (t *tx) FollowExists(_ context.Context, followerID, followeeID string) (bool, error) {
	_, ok := t.st.follows[followKey{followerID, followeeID}]
	return ok, nil
}

func (t *tx) InsertFollow(_ context.Context, followerID, followeeID string, when time.Time) error {
	k := followKey{followerID, followeeID}
	if followerID == followeeID {
		return domain.ErrSelfTarget
	}
	if _, ok := t.st.follows[k]; ok {
		return domain.ErrConflict
	}
	put(t, t.st.follows, k, when)
	return nil
}

func (t *tx) DeleteFollow(_ context.Context, followerID, followeeID string) error {
	del(t, t.st.follows, followKey{followerID, followeeID})
	return nil
}

func (t *tx) RefreshFollowCounts(_ context.Context, userID string) (domain.FollowCounts, error) {
	u, ok := t.st.users[userID]
	if !ok {
		return domain.FollowCounts{}, domain.ErrNotFound
	}
	var c domain.FollowCounts
	for k := range t.st.follows {
		if k.followee == userID {
			c.Followers++
		}
		if k.follower == userID {
			c.Following++
		}
	}
	u.FollowersCount = c.Followers
	u.FollowingCount = c.Following
	put(t, t.st.users, userID, u)
	return c, nil
}

func (t *tx) FindRequestBetween(_ context.Context, kind domain.RequestKind, a, b string) (domain.Request, error) {
	return findRequestBetween(t.st, kind, a, b)
}

func findRequestBetween(st *state, kind domain.RequestKind, a, b string) (domain.Request, error) {
	for _, r := range st.requests[kind] {
		if r.Involves(a, b) {
			return r, nil
		}
	}
	return domain.Request{}, domain.ErrNotFound
}

func (t *tx) InsertRequest(_ context.Context, r domain.Request) (domain.Request, error) {
	rows, ok := t.st.requests[r.Kind]
	if !ok {
		return domain.Request{}, domain.ErrInvalidKind
	}
	if _, err := findRequestBetween(t.st, r.Kind, r.SenderID, r.ReceiverID); err == nil {
		return domain.Request{}, domain.ErrConflict
	}
	r.ID = uuid.NewString()
	put(t, rows, r.ID, r)
	return r, nil
}

func (t *tx) GetPendingRequest(_ context.Context, kind domain.RequestKind, id, receiverID string) (domain.Request, error) {
	r, ok := t.st.requests[kind][id]
	if !ok || r.ReceiverID != receiverID || r.Status != domain.RequestStatusPending {
		return domain.Request{}, domain.ErrNotFound
	}
	return r, nil
}

func (t *tx) SetRequestStatus(_ context.Context, kind domain.RequestKind, id string, status domain.RequestStatus, when time.Time) (domain.Request, error) {
	r, ok := t.st.requests[kind][id]
	if !ok {
		return domain.Request{}, domain.ErrNotFound
	}
	r.Status = status
	r.UpdatedAt = when
	put(t, t.st.requests[kind], id, r)
	return r, nil
}

func (t *tx) EnsureFriendship(_ context.Context, a, b string, when time.Time) (domain.Friendship, error) {
	if a == b {
		return domain.Friendship{}, domain.ErrSelfTarget
	}
	u1, u2 := domain.CanonicalPair(a, b)
	k := pairKey{u1, u2}
	if f, ok := t.st.friendships[k]; ok {
		return f, nil
	}
	f := domain.Friendship{User1ID: u1, User2ID: u2, CreatedAt: when}
	put(t, t.st.friendships, k, f)
	return f, nil
}

func (t *tx) DeleteFriendship(_ context.Context, a, b string) (bool, error) {
	u1, u2 := domain.CanonicalPair(a, b)
	k := pairKey{u1, u2}
	if _, ok := t.st.friendships[k]; !ok {
		return false, nil
	}
	del(t, t.st.friendships, k)
	return true, nil
}

func (t *tx) GetPost(_ context.Context, id string) (domain.Post, error) {
	p, ok := t.st.posts[id]
	if !ok {
		return domain.Post{}, domain.ErrNotFound
	}
	return clonePost(p), nil
}

func (t *tx) InsertPost(_ context.Context, p domain.Post) (domain.Post, error) {
	if _, ok := t.st.users[p.AuthorID]; !ok {
		return domain.Post{}, domain.ErrNotFound
	}
	p.ID = uuid.NewString()
	p = clonePost(p)
	put(t, t.st.posts, p.ID, p)
	return clonePost(p), nil
}

func (t *tx) RefreshPostsCount(_ context.Context, userID string) (int, error) {
	u, ok := t.st.users[userID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	n := 0
	for _, p := range t.st.posts {
		if p.AuthorID == userID {
			n++
		}
	}
	u.PostsCount = n
	put(t, t.st.users, userID, u)
	return n, nil
}

func (t *tx) DeleteReaction(_ context.Context, userID, postID string) error {
	del(t, t.st.reactions, userPostKey{userID, postID})
	return nil
}

func (t *tx) InsertReaction(_ context.Context, r domain.Reaction) error {
	k := userPostKey{r.UserID, r.PostID}
	if _, ok := t.st.reactions[k]; ok {
		return domain.ErrConflict
	}
	put(t, t.st.reactions, k, r)
	return nil
}

func (t *tx) RefreshReactionCounts(_ context.Context, postID string) (domain.ReactionCounts, error) {
	p, ok := t.st.posts[postID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	counts := domain.ReactionCounts{}
	for k, r := range t.st.reactions {
		if k.post == postID {
			counts[r.Kind]++
		}
	}
	p.ReactionsCount = counts
	put(t, t.st.posts, postID, p)
	return maps.Clone(counts), nil
}

func (t *tx) LikeExists(_ context.Context, userID, postID string) (bool, error) {
	_, ok := t.st.likes[userPostKey{userID, postID}]
	return ok, nil
}

func (t *tx) InsertLike(_ context.Context, l domain.Like) error {
	k := userPostKey{l.UserID, l.PostID}
	if _, ok := t.st.likes[k]; ok {
		return domain.ErrConflict
	}
	put(t, t.st.likes, k, l)
	return nil
}

func (t *tx) DeleteLike(_ context.Context, userID, postID string) error {
	del(t, t.st.likes, userPostKey{userID, postID})
	return nil
}

func (t *tx) RefreshLikesCount(_ context.Context, postID string) (int, error) {
	p, ok := t.st.posts[postID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	n := 0
	for k := range t.st.likes {
		if k.post == postID {
			n++
		}
	}
	p.LikesCount = n
	put(t, t.st.posts, postID, p)
	return n, nil
}

func (t *tx) InsertComment(_ context.Context, c domain.Comment) (domain.Comment, error) {
	if _, ok := t.st.posts[c.PostID]; !ok {
		return domain.Comment{}, domain.ErrNotFound
	}
	c.ID = uuid.NewString()
	n := len(t.st.comments)
	t.undo = append(t.undo, func() { t.st.comments = t.st.comments[:n] })
	t.st.comments = append(t.st.comments, c)
	return c, nil
}

func (t *tx) RefreshCommentsCount(_ context.Context, postID string) (int, error) {
	p, ok := t.st.posts[postID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	n := 0
	for _, c := range t.st.comments {
		if c.PostID == postID {
			n++
		}
	}
	p.CommentsCount = n
	put(t, t.st.posts, postID, p)
	return n, nil
}

func (t *tx) InsertNotification(_ context.Context, n domain.Notification) (domain.Notification, error) {
	if n.RecipientID == n.SenderID {
		return domain.Notification{}, domain.ErrSelfTarget
	}
	if _, ok := t.st.users[n.RecipientID]; !ok {
		return domain.Notification{}, domain.ErrNotFound
	}
	n.ID = uuid.NewString()
	n.IsRead = false
	size := len(t.st.notifications)
	t.undo = append(t.undo, func() { t.st.notifications = t.st.notifications[:size] })
	t.st.notifications = append(t.st.notifications, n)
	return n, nil
}
