package domain

import "time"

// MaxTokensPerUser bounds push fan-out. Registering one more device drops
// the least recently refreshed one.
const MaxTokensPerUser = 10

type NotificationToken struct {
	ID        string    `json:"-"`
	UserID    string    `json:"-"`
	Token     string    `json:"token"`
	Platform  string    `json:"platform"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type NotificationKind string

const (
	NotificationFollow        NotificationKind = "follow"
	NotificationLike          NotificationKind = "like"
	NotificationReaction      NotificationKind = "reaction"
	NotificationComment       NotificationKind = "comment"
	NotificationFriendRequest NotificationKind = "friend_request"
	NotificationConnection    NotificationKind = "connection"
)

// Notification is append-only apart from IsRead. SenderID is empty for
// system notifications.
type Notification struct {
	ID          string           `json:"id"`
	RecipientID string           `json:"recipient_id"`
	SenderID    string           `json:"sender_id,omitempty"`
	Kind        NotificationKind `json:"kind"`
	Message     string           `json:"message"`
	IsRead      bool             `json:"is_read"`
	CreatedAt   time.Time        `json:"created_at"`
}
