// Package memory is an in-process implementation of every store the
// services need. Ledger transactions are serialized by one mutex and write
// the live state directly; a failed or panicking transaction replays its
// undo log before the mutex is released.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"GreenCampusServer/internal/domain"
	"GreenCampusServer/internal/service"
)

type followKey struct{ follower, followee string }

type pairKey struct{ user1, user2 string }

type userPostKey struct{ user, post string }

type userRow struct {
	domain.User
	PasswordHash string
}

type state struct {
	users         map[string]userRow
	sessions      map[string]domain.Session
	tokens        map[string]domain.NotificationToken
	follows       map[followKey]time.Time
	requests      map[domain.RequestKind]map[string]domain.Request
	friendships   map[pairKey]domain.Friendship
	posts         map[string]domain.Post
	reactions     map[userPostKey]domain.Reaction
	likes         map[userPostKey]domain.Like
	comments      []domain.Comment
	notifications []domain.Notification
}

func newState() *state {
	return &state{
		users:    map[string]userRow{},
		sessions: map[string]domain.Session{},
		tokens:   map[string]domain.NotificationToken{},
		follows:  map[followKey]time.Time{},
		requests: map[domain.RequestKind]map[string]domain.Request{
			domain.RequestKindFriend:     {},
			domain.RequestKindConnection: {},
		},
		friendships: map[pairKey]domain.Friendship{},
		posts:       map[string]domain.Post{},
		reactions:   map[userPostKey]domain.Reaction{},
		likes:       map[userPostKey]domain.Like{},
	}
}

func clonePost(p domain.Post) domain.Post {
	p.ReactionsCount = maps.Clone(p.ReactionsCount)
	if p.ReactionsCount == nil {
		p.ReactionsCount = domain.ReactionCounts{}
	}
	return p
}

type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

func New() *Store {
	return &Store{st: newState(), now: time.Now}
}

var (
	_ service.Ledger                  = (*Store)(nil)
	_ service.RelationshipReader      = (*Store)(nil)
	_ service.PostsReader             = (*Store)(nil)
	_ service.NotificationsStore      = (*Store)(nil)
	_ service.NotificationTokensStore = (*Store)(nil)
	_ service.UsersStore              = (*Store)(nil)
	_ service.SessionsStore           = (*Store)(nil)
)

func (s *Store) InTx(ctx context.Context, fn func(tx service.LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{st: s.st}
	committed := false
	defer func() {
		if !committed {
			t.rollback()
		}
	}()
	if err := fn(t); err != nil {
		return err
	}
	committed = true
	return nil
}

// Ping satisfies the health check contract.
func (s *Store) Ping(context.Context) error { return nil }
