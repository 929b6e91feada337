package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"GreenCampusServer/internal/domain"
	"GreenCampusServer/internal/metrics"
	"GreenCampusServer/internal/notifications"
)

const (
	defaultNotificationLimit = 20
	maxNotificationLimit     = 100
	defaultDeliveryTimeout   = 5 * time.Second
)

type NotificationTokensStore interface {
	UpsertToken(ctx context.Context, userID, token, platform string, when time.Time) (domain.NotificationToken, error)
	DeleteToken(ctx context.Context, userID, token string) error
	ListTokens(ctx context.Context, userID string) ([]domain.NotificationToken, error)
}

type NotificationsStore interface {
	ListNotifications(ctx context.Context, recipientID string, limit int) ([]domain.Notification, error)
	MarkAllRead(ctx context.Context, recipientID string) (int, error)
	CountUnread(ctx context.Context, recipientID string) (int, error)
}

// UnreadCache stores unread counts stamped with a generation. Get reports
// the current generation even on a miss; Set under an older generation than
// the latest Invalidate must never produce a hit.
type UnreadCache interface {
	Get(ctx context.Context, recipientID string) (count int, gen int64, ok bool, err error)
	Set(ctx context.Context, recipientID string, gen int64, count int) error
	Invalidate(ctx context.Context, recipientIDs ...string) error
}

type EventPublisher interface {
	PublishNotification(ctx context.Context, n domain.Notification) error
}

type PushSender interface {
	Send(ctx context.Context, token string, msg notifications.Message) error
}

// NotificationService reads the notification ledger and performs
// best-effort delivery of committed notifications. Any sink may be nil.
type NotificationService struct {
	Store     NotificationsStore
	Tokens    NotificationTokensStore
	Cache     UnreadCache
	Publisher EventPublisher
	Sender    PushSender
	Logger    *slog.Logger
	Now       func() time.Time

	DeliveryTimeout time.Duration
}

func (s *NotificationService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *NotificationService) List(ctx context.Context, recipientID string, limit int) ([]domain.Notification, error) {
	if limit == 0 {
		limit = defaultNotificationLimit
	}
	if limit < 1 || limit > maxNotificationLimit {
		return nil, domain.NewValidationError(map[string]string{"limit": "must be between 1 and 100"})
	}
	out, err := s.Store.ListNotifications(ctx, recipientID, limit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Notification{}
	}
	return out, nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID string) (n int, err error) {
	defer func(start time.Time) { metrics.ObserveLedger("mark_all_read", start, err) }(time.Now())

	n, err = s.Store.MarkAllRead(ctx, recipientID)
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx, recipientID)
	return n, nil
}

// UnreadCount reads through the cache. Cache failures fall back to the
// store, and the fresh count is stored under the generation observed before
// counting so a concurrent invalidation wins.
func (s *NotificationService) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	var (
		gen       int64
		cacheable bool
	)
	if s.Cache != nil {
		n, g, ok, err := s.Cache.Get(ctx, recipientID)
		switch {
		case err != nil:
			s.logger().Warn("notifications: unread cache get failed", "err", err, "user_id", recipientID)
		case ok:
			return n, nil
		default:
			gen, cacheable = g, true
		}
	}

	n, err := s.Store.CountUnread(ctx, recipientID)
	if err != nil {
		return 0, err
	}
	if cacheable {
		if err := s.Cache.Set(ctx, recipientID, gen, n); err != nil {
			s.logger().Warn("notifications: unread cache set failed", "err", err, "user_id", recipientID)
		}
	}
	return n, nil
}

func (s *NotificationService) RegisterToken(ctx context.Context, userID, token, platform string) (domain.NotificationToken, error) {
	if s.Tokens == nil {
		return domain.NotificationToken{}, errors.New("notifications unavailable")
	}
	token = strings.TrimSpace(token)
	platform = strings.TrimSpace(strings.ToLower(platform))
	if token == "" || platform == "" {
		return domain.NotificationToken{}, domain.NewValidationError(map[string]string{"token": "required", "platform": "required"})
	}
	switch platform {
	case "android", "ios":
	default:
		return domain.NotificationToken{}, domain.NewValidationError(map[string]string{"platform": "must be ios or android"})
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	when := now().UTC().Truncate(time.Millisecond)
	return s.Tokens.UpsertToken(ctx, userID, token, platform, when)
}

func (s *NotificationService) DeleteToken(ctx context.Context, userID, token string) error {
	if s.Tokens == nil {
		return errors.New("notifications unavailable")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.NewValidationError(map[string]string{"token": "required"})
	}
	return s.Tokens.DeleteToken(ctx, userID, token)
}

// Deliver fans committed notifications out to the cache, NATS and FCM.
// Failures are logged and counted; they never reach the caller.
func (s *NotificationService) Deliver(ctx context.Context, notes ...domain.Notification) {
	if len(notes) == 0 {
		return
	}
	timeout := s.DeliveryTimeout
	if timeout <= 0 {
		timeout = defaultDeliveryTimeout
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	recipients := make([]string, 0, len(notes))
	for _, n := range notes {
		recipients = append(recipients, n.RecipientID)
	}
	s.invalidate(ctx, recipients...)

	for _, n := range notes {
		if s.Publisher != nil {
			if err := s.Publisher.PublishNotification(ctx, n); err != nil {
				metrics.DeliveryFailed("nats")
				s.logger().Error("notifications: publish failed", "err", err, "notification_id", n.ID, "kind", n.Kind)
			}
		}
		s.push(ctx, n)
	}
}

func (s *NotificationService) invalidate(ctx context.Context, recipientIDs ...string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(ctx, recipientIDs...); err != nil {
		s.logger().Warn("notifications: unread cache invalidate failed", "err", err)
	}
}

func (s *NotificationService) push(ctx context.Context, n domain.Notification) {
	if s.Tokens == nil || s.Sender == nil {
		return
	}
	logger := s.logger()

	tokens, err := s.Tokens.ListTokens(ctx, n.RecipientID)
	if err != nil {
		metrics.DeliveryFailed("fcm")
		logger.Error("notifications: list tokens failed", "err", err, "user_id", n.RecipientID)
		return
	}
	if len(tokens) == 0 {
		return
	}

	payload := map[string]string{
		"type":            string(n.Kind),
		"notification_id": n.ID,
		"sender_id":       n.SenderID,
		"message":         n.Message,
	}
	dataOnlyMsg := notifications.Message{Data: payload}
	iosAlertMsg := notifications.Message{
		Data: payload,
		Notification: &notifications.Notification{
			Title: pushTitle(n.Kind),
			Body:  n.Message,
		},
	}

	for _, token := range tokens {
		msg := dataOnlyMsg
		if strings.TrimSpace(strings.ToLower(token.Platform)) == "ios" {
			msg = iosAlertMsg
		}
		if err := s.Sender.Send(ctx, token.Token, msg); err != nil {
			if errors.Is(err, notifications.ErrInvalidToken) {
				if delErr := s.Tokens.DeleteToken(ctx, n.RecipientID, token.Token); delErr != nil {
					logger.Error("notifications: delete invalid token failed", "err", delErr, "user_id", n.RecipientID)
				}
				continue
			}
			metrics.DeliveryFailed("fcm")
			logger.Error("notifications: send failed", "err", err, "user_id", n.RecipientID)
		}
	}
}

func pushTitle(kind domain.NotificationKind) string {
	switch kind {
	case domain.NotificationFollow:
		return "New follower"
	case domain.NotificationFriendRequest:
		return "Friend request"
	case domain.NotificationConnection:
		return "Connection request"
	case domain.NotificationLike, domain.NotificationReaction:
		return "New reaction"
	case domain.NotificationComment:
		return "New comment"
	default:
		return "GreenCampus"
	}
}
