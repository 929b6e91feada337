package memory

import (
	"context"
	"sort"
	"time"

	"GreenCampusServer/internal/domain"

	"github.com/google/uuid"
)

func (s *Store) ListFriendIDs(_ context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []string
	for _, f := range s.st.friendships {
		if other, ok := f.Other(userID); ok {
			out = append(out, other)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) ListOverview(_ context.Context, userID string) (domain.FriendsOverview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ov := domain.FriendsOverview{
		Friends:  []domain.UserSummary{},
		Incoming: []domain.FriendRequest{},
		Outgoing: []domain.FriendRequest{},
	}
	for _, f := range s.st.friendships {
		if other, ok := f.Other(userID); ok {
			ov.Friends = append(ov.Friends, s.st.users[other].Summary())
		}
	}
	sort.Slice(ov.Friends, func(i, j int) bool { return ov.Friends[i].Username < ov.Friends[j].Username })

	for _, r := range s.st.requests[domain.RequestKindFriend] {
		if r.Status != domain.RequestStatusPending {
			continue
		}
		switch userID {
		case r.ReceiverID:
			ov.Incoming = append(ov.Incoming, domain.FriendRequest{ID: r.ID, User: s.st.users[r.SenderID].Summary(), Message: r.Message, CreatedAt: r.CreatedAt})
		case r.SenderID:
			ov.Outgoing = append(ov.Outgoing, domain.FriendRequest{ID: r.ID, User: s.st.users[r.ReceiverID].Summary(), Message: r.Message, CreatedAt: r.CreatedAt})
		}
	}
	newestFirst := func(rs []domain.FriendRequest) {
		sort.Slice(rs, func(i, j int) bool { return rs[i].CreatedAt.After(rs[j].CreatedAt) })
	}
	newestFirst(ov.Incoming)
	newestFirst(ov.Outgoing)
	return ov, nil
}

func (s *Store) FindRequestBetween(_ context.Context, kind domain.RequestKind, a, b string) (domain.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return findRequestBetween(s.st, kind, a, b)
}

func (s *Store) GetPost(_ context.Context, id string) (domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.st.posts[id]
	if !ok {
		return domain.Post{}, domain.ErrNotFound
	}
	return clonePost(p), nil
}

func (s *Store) ListFeed(_ context.Context, userID string, limit, offset int) ([]domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []domain.Post
	for _, p := range s.st.posts {
		if !p.IsPublic {
			continue
		}
		if _, follows := s.st.follows[followKey{userID, p.AuthorID}]; p.AuthorID == userID || follows {
			matched = append(matched, p)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	out := []domain.Post{}
	for i := offset; i < len(matched) && len(out) < limit; i++ {
		out = append(out, clonePost(matched[i]))
	}
	return out, nil
}

func (s *Store) ListSuggestedUsers(_ context.Context, userID string, limit int) ([]domain.UserSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var candidates []domain.User
	for id, u := range s.st.users {
		if id == userID || u.Status != domain.UserStatusActive {
			continue
		}
		a, b := domain.CanonicalPair(userID, id)
		if _, friends := s.st.friendships[pairKey{a, b}]; friends {
			continue
		}
		candidates = append(candidates, u.User)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
		}
		return candidates[i].ID < candidates[j].ID
	})

	out := []domain.UserSummary{}
	for _, u := range candidates {
		if len(out) == limit {
			break
		}
		out = append(out, u.Summary())
	}
	return out, nil
}

// ListNotifications returns the newest notifications first.
func (s *Store) ListNotifications(_ context.Context, recipientID string, limit int) ([]domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []domain.Notification{}
	for i := len(s.st.notifications) - 1; i >= 0 && len(out) < limit; i-- {
		if n := s.st.notifications[i]; n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *Store) MarkAllRead(_ context.Context, recipientID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := 0
	for i, n := range s.st.notifications {
		if n.RecipientID == recipientID && !n.IsRead {
			s.st.notifications[i].IsRead = true
			updated++
		}
	}
	return updated, nil
}

func (s *Store) CountUnread(_ context.Context, recipientID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, note := range s.st.notifications {
		if note.RecipientID == recipientID && !note.IsRead {
			n++
		}
	}
	return n, nil
}

func (s *Store) UpsertToken(_ context.Context, userID, token, platform string, when time.Time) (domain.NotificationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.st.users[userID]; !ok {
		return domain.NotificationToken{}, domain.ErrNotFound
	}
	t, ok := s.st.tokens[token]
	if !ok {
		t = domain.NotificationToken{ID: uuid.NewString(), Token: token, CreatedAt: when}
	}
	t.UserID = userID
	t.Platform = platform
	t.UpdatedAt = when
	s.st.tokens[token] = t

	owned := tokensOf(s.st, userID)
	for _, stale := range owned[min(len(owned), domain.MaxTokensPerUser):] {
		delete(s.st.tokens, stale.Token)
	}
	return t, nil
}

// DeleteToken is a no-op unless userID currently owns token.
func (s *Store) DeleteToken(_ context.Context, userID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.st.tokens[token]; ok && t.UserID == userID {
		delete(s.st.tokens, token)
	}
	return nil
}

func (s *Store) ListTokens(_ context.Context, userID string) ([]domain.NotificationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tokensOf(s.st, userID), nil
}

// tokensOf returns userID's tokens, most recently refreshed first.
func tokensOf(st *state, userID string) []domain.NotificationToken {
	out := []domain.NotificationToken{}
	for _, t := range st.tokens {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}
