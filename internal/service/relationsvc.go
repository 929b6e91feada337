package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"GreenCampusServer/internal/domain"
	"GreenCampusServer/internal/metrics"
)

const (
	maxRequestMessageLen = 500
	suggestedUsersLimit  = 20
)

// RelationshipService owns follow edges, friend requests, friendships and
// professional connections.
type RelationshipService struct {
	Ledger        Ledger
	Reader        RelationshipReader
	Notifier      Deliverer
	ReversePolicy domain.ReversePolicy
	Logger        *slog.Logger
	Now           func() time.Time
}

func (s *RelationshipService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *RelationshipService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// Follow toggles the actor -> target edge and recomputes both users'
// counters in the same transaction.
func (s *RelationshipService) Follow(ctx context.Context, actorID, targetID string) (res domain.FollowResult, err error) {
	defer func(start time.Time) { metrics.ObserveLedger("follow", start, err) }(time.Now())

	if err := domain.NormalizeIDs(&actorID, &targetID); err != nil {
		return domain.FollowResult{}, err
	}
	if actorID == targetID {
		return domain.FollowResult{}, domain.ErrSelfTarget
	}

	var notes []domain.Notification
	err = s.Ledger.InTx(ctx, func(tx LedgerTx) error {
		notes = nil
		actor, err := tx.GetUser(ctx, actorID)
		if err != nil {
			return err
		}
		if _, err := tx.GetUser(ctx, targetID); err != nil {
			return err
		}

		exists, err := tx.FollowExists(ctx, actorID, targetID)
		if err != nil {
			return err
		}
		now := s.now()
		if exists {
			if err := tx.DeleteFollow(ctx, actorID, targetID); err != nil {
				return err
			}
		} else {
			if err := tx.InsertFollow(ctx, actorID, targetID, now); err != nil {
				return err
			}
			n, err := tx.InsertNotification(ctx, domain.Notification{
				RecipientID: targetID,
				SenderID:    actorID,
				Kind:        domain.NotificationFollow,
				Message:     actor.Name() + " started following you",
				CreatedAt:   now,
			})
			if err != nil {
				return err
			}
			notes = append(notes, n)
		}

		actorCounts, err := tx.RefreshFollowCounts(ctx, actorID)
		if err != nil {
			return err
		}
		targetCounts, err := tx.RefreshFollowCounts(ctx, targetID)
		if err != nil {
			return err
		}

		res = domain.FollowResult{
			Following:      !exists,
			FollowersCount: targetCounts.Followers,
			FollowingCount: actorCounts.Following,
		}
		return nil
	})
	if err != nil {
		return domain.FollowResult{}, err
	}

	s.deliver(ctx, notes)
	s.logger().Debug("follow toggled", "actor_id", actorID, "target_id", targetID, "following", res.Following)
	return res, nil
}

func (s *RelationshipService) SendFriendRequest(ctx context.Context, senderID, receiverID, message string) (domain.Request, error) {
	return s.sendRequest(ctx, domain.RequestKindFriend, senderID, receiverID, message)
}

func (s *RelationshipService) SendConnectionRequest(ctx context.Context, senderID, receiverID, message string) (domain.Request, error) {
	return s.sendRequest(ctx, domain.RequestKindConnection, senderID, receiverID, message)
}

func (s *RelationshipService) RespondFriendRequest(ctx context.Context, receiverID, requestID string, decision domain.Decision) (domain.RespondResult, error) {
	return s.respond(ctx, domain.RequestKindFriend, receiverID, requestID, decision)
}

func (s *RelationshipService) RespondConnectionRequest(ctx context.Context, receiverID, requestID string, decision domain.Decision) (domain.RespondResult, error) {
	return s.respond(ctx, domain.RequestKindConnection, receiverID, requestID, decision)
}

func (s *RelationshipService) sendRequest(ctx context.Context, kind domain.RequestKind, senderID, receiverID, message string) (req domain.Request, err error) {
	defer func(start time.Time) { metrics.ObserveLedger("send_"+string(kind)+"_request", start, err) }(time.Now())

	if err := domain.NormalizeIDs(&senderID, &receiverID); err != nil {
		return domain.Request{}, err
	}
	if senderID == receiverID {
		return domain.Request{}, domain.ErrSelfTarget
	}
	message = strings.TrimSpace(message)
	if len(message) > maxRequestMessageLen {
		return domain.Request{}, domain.NewValidationError(map[string]string{"message": "too long"})
	}

	var notes []domain.Notification
	err = s.Ledger.InTx(ctx, func(tx LedgerTx) error {
		notes = nil
		sender, err := tx.GetUser(ctx, senderID)
		if err != nil {
			return err
		}
		if _, err := tx.GetUser(ctx, receiverID); err != nil {
			return err
		}

		now := s.now()
		existing, err := tx.FindRequestBetween(ctx, kind, senderID, receiverID)
		switch {
		case err == nil:
			if s.ReversePolicy != domain.ReversePolicyAutoAccept ||
				existing.Status != domain.RequestStatusPending || existing.SenderID != receiverID {
				return domain.ErrDuplicateRequest
			}
			req, err = s.accept(ctx, tx, existing, now)
			return err
		case errors.Is(err, domain.ErrNotFound):
		default:
			return err
		}

		req, err = tx.InsertRequest(ctx, domain.Request{
			Kind:       kind,
			SenderID:   senderID,
			ReceiverID: receiverID,
			Status:     domain.RequestStatusPending,
			Message:    message,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		if err != nil {
			return err
		}

		n, err := tx.InsertNotification(ctx, requestNotification(kind, sender, receiverID, now))
		if err != nil {
			return err
		}
		notes = append(notes, n)
		return nil
	})
	if err != nil {
		return domain.Request{}, err
	}

	s.deliver(ctx, notes)
	return req, nil
}

func requestNotification(kind domain.RequestKind, sender domain.User, receiverID string, now time.Time) domain.Notification {
	n := domain.Notification{
		RecipientID: receiverID,
		SenderID:    sender.ID,
		CreatedAt:   now,
	}
	if kind == domain.RequestKindConnection {
		n.Kind = domain.NotificationConnection
		n.Message = sender.Name() + " sent you a connection request"
	} else {
		n.Kind = domain.NotificationFriendRequest
		n.Message = sender.Name() + " sent you a friend request"
	}
	return n
}

// accept moves a pending request to accepted and, for friend requests,
// materializes the canonical friendship.
func (s *RelationshipService) accept(ctx context.Context, tx LedgerTx, req domain.Request, now time.Time) (domain.Request, error) {
	updated, err := tx.SetRequestStatus(ctx, req.Kind, req.ID, domain.RequestStatusAccepted, now)
	if err != nil {
		return domain.Request{}, err
	}
	if req.Kind == domain.RequestKindFriend {
		if _, err := tx.EnsureFriendship(ctx, req.SenderID, req.ReceiverID, now); err != nil {
			return domain.Request{}, err
		}
	}
	return updated, nil
}

func (s *RelationshipService) respond(ctx context.Context, kind domain.RequestKind, receiverID, requestID string, decision domain.Decision) (res domain.RespondResult, err error) {
	defer func(start time.Time) { metrics.ObserveLedger("respond_"+string(kind)+"_request", start, err) }(time.Now())

	status, err := decision.Status()
	if err != nil {
		return domain.RespondResult{}, err
	}
	if err := domain.NormalizeIDs(&receiverID, &requestID); err != nil {
		return domain.RespondResult{}, err
	}

	err = s.Ledger.InTx(ctx, func(tx LedgerTx) error {
		req, err := tx.GetPendingRequest(ctx, kind, requestID, receiverID)
		if err != nil {
			return err
		}
		now := s.now()
		updated, err := tx.SetRequestStatus(ctx, kind, req.ID, status, now)
		if err != nil {
			return err
		}
		res = domain.RespondResult{Request: updated}
		if status == domain.RequestStatusAccepted && kind == domain.RequestKindFriend {
			f, err := tx.EnsureFriendship(ctx, req.SenderID, req.ReceiverID, now)
			if err != nil {
				return err
			}
			res.Friendship = &f
		}
		return nil
	})
	if err != nil {
		return domain.RespondResult{}, err
	}
	return res, nil
}

// ListFriends returns the ids of everyone in a friendship with userID.
func (s *RelationshipService) ListFriends(ctx context.Context, userID string) ([]string, error) {
	if err := domain.NormalizeIDs(&userID); err != nil {
		return nil, err
	}
	ids, err := s.Reader.ListFriendIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != userID {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *RelationshipService) FriendsOverview(ctx context.Context, userID string) (domain.FriendsOverview, error) {
	if err := domain.NormalizeIDs(&userID); err != nil {
		return domain.FriendsOverview{}, err
	}
	return s.Reader.ListOverview(ctx, userID)
}

// SuggestedUsers lists people userID could befriend: everyone active who is
// neither userID nor already a friend.
func (s *RelationshipService) SuggestedUsers(ctx context.Context, userID string) ([]domain.UserSummary, error) {
	if err := domain.NormalizeIDs(&userID); err != nil {
		return nil, err
	}
	return s.Reader.ListSuggestedUsers(ctx, userID, suggestedUsersLimit)
}

// Unfriend removes the friendship row. The accepted request that created
// it stays terminal.
func (s *RelationshipService) Unfriend(ctx context.Context, actorID, otherID string) (err error) {
	defer func(start time.Time) { metrics.ObserveLedger("unfriend", start, err) }(time.Now())

	if err := domain.NormalizeIDs(&actorID, &otherID); err != nil {
		return err
	}
	if actorID == otherID {
		return domain.ErrSelfTarget
	}
	return s.Ledger.InTx(ctx, func(tx LedgerTx) error {
		deleted, err := tx.DeleteFriendship(ctx, actorID, otherID)
		if err != nil {
			return err
		}
		if !deleted {
			return domain.ErrNotFound
		}
		return nil
	})
}

func (s *RelationshipService) ConnectionStatus(ctx context.Context, actorID, otherID string) (domain.ConnectionStatus, error) {
	if err := domain.NormalizeIDs(&actorID, &otherID); err != nil {
		return "", err
	}
	if actorID == otherID {
		return "", domain.ErrSelfTarget
	}
	req, err := s.Reader.FindRequestBetween(ctx, domain.RequestKindConnection, actorID, otherID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ConnectionStatusNone, nil
	}
	if err != nil {
		return "", err
	}
	switch req.Status {
	case domain.RequestStatusAccepted:
		return domain.ConnectionStatusConnected, nil
	case domain.RequestStatusDeclined:
		return domain.ConnectionStatusDeclined, nil
	}
	if req.SenderID == actorID {
		return domain.ConnectionStatusPendingOutgoing, nil
	}
	return domain.ConnectionStatusPendingIncoming, nil
}

func (s *RelationshipService) deliver(ctx context.Context, notes []domain.Notification) {
	if s.Notifier == nil || len(notes) == 0 {
		return
	}
	s.Notifier.Deliver(ctx, notes...)
}
