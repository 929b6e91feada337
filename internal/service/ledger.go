package service

import (
	"context"
	"time"

	"GreenCampusServer/internal/domain"
)

// Ledger runs fn inside one serializable transaction. A nil return commits;
// any error rolls back everything fn wrote. Serialization failures and
// uniqueness violations surface as domain.ErrConflict.
type Ledger interface {
	InTx(ctx context.Context, fn func(tx LedgerTx) error) error
}

// LedgerTx is the set of primitives available inside a ledger transaction.
// Refresh* methods recompute a denormalized counter from its ledger rows,
// persist it and return the fresh value.
type LedgerTx interface {
	UsersTx
	FollowsTx
	RequestsTx
	FriendshipsTx
	PostsTx
	NotificationsTx
}

type UsersTx interface {
	GetUser(ctx context.Context, id string) (domain.User, error)
}

type FollowsTx interface {
	FollowExists(ctx context.Context, followerID, followeeID string) (bool, error)
	InsertFollow(ctx context.Context, followerID, followeeID string, when time.Time) error
	DeleteFollow(ctx context.Context, followerID, followeeID string) error
	RefreshFollowCounts(ctx context.Context, userID string) (domain.FollowCounts, error)
}

type RequestsTx interface {
	// FindRequestBetween returns the request between a and b in either
	// direction, or domain.ErrNotFound.
	FindRequestBetween(ctx context.Context, kind domain.RequestKind, a, b string) (domain.Request, error)
	InsertRequest(ctx context.Context, r domain.Request) (domain.Request, error)
	// GetPendingRequest locks a pending request addressed to receiverID, or
	// returns domain.ErrNotFound.
	GetPendingRequest(ctx context.Context, kind domain.RequestKind, id, receiverID string) (domain.Request, error)
	SetRequestStatus(ctx context.Context, kind domain.RequestKind, id string, status domain.RequestStatus, when time.Time) (domain.Request, error)
}

type FriendshipsTx interface {
	// EnsureFriendship returns the canonical row for the pair, creating it
	// when absent.
	EnsureFriendship(ctx context.Context, a, b string, when time.Time) (domain.Friendship, error)
	DeleteFriendship(ctx context.Context, a, b string) (bool, error)
}

type PostsTx interface {
	GetPost(ctx context.Context, id string) (domain.Post, error)
	InsertPost(ctx context.Context, p domain.Post) (domain.Post, error)
	RefreshPostsCount(ctx context.Context, userID string) (int, error)

	DeleteReaction(ctx context.Context, userID, postID string) error
	InsertReaction(ctx context.Context, r domain.Reaction) error
	RefreshReactionCounts(ctx context.Context, postID string) (domain.ReactionCounts, error)

	LikeExists(ctx context.Context, userID, postID string) (bool, error)
	InsertLike(ctx context.Context, l domain.Like) error
	DeleteLike(ctx context.Context, userID, postID string) error
	RefreshLikesCount(ctx context.Context, postID string) (int, error)

	InsertComment(ctx context.Context, c domain.Comment) (domain.Comment, error)
	RefreshCommentsCount(ctx context.Context, postID string) (int, error)
}

type NotificationsTx interface {
	InsertNotification(ctx context.Context, n domain.Notification) (domain.Notification, error)
}

// RelationshipReader serves read-committed relationship queries.
type RelationshipReader interface {
	ListFriendIDs(ctx context.Context, userID string) ([]string, error)
	ListOverview(ctx context.Context, userID string) (domain.FriendsOverview, error)
	FindRequestBetween(ctx context.Context, kind domain.RequestKind, a, b string) (domain.Request, error)
	ListSuggestedUsers(ctx context.Context, userID string, limit int) ([]domain.UserSummary, error)
}

type PostsReader interface {
	GetPost(ctx context.Context, id string) (domain.Post, error)
	// ListFeed returns public posts by userID and the users it follows,
	// newest first.
	ListFeed(ctx context.Context, userID string, limit, offset int) ([]domain.Post, error)
}

// Deliverer receives notifications after their transaction committed.
type Deliverer interface {
	Deliver(ctx context.Context, notes ...domain.Notification)
}
