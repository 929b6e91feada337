package domain

import "time"

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// User is an Identity record. The counters are derived from the follow and
// post ledgers and are only written by the services that own those ledgers.
type User struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	Username       string     `json:"username"`
	StudentID      string     `json:"student_id"`
	DisplayName    string     `json:"display_name,omitempty"`
	Department     string     `json:"department"`
	Batch          string     `json:"batch"`
	Phone          string     `json:"phone,omitempty"`
	Status         UserStatus `json:"status"`
	FollowersCount int        `json:"followers_count"`
	FollowingCount int        `json:"following_count"`
	PostsCount     int        `json:"posts_count"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
}

func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, DisplayName: u.DisplayName}
}

type UserWithPassword struct {
	User
	PasswordHash string
}

// NewUser carries the validated registration fields for a store insert.
type NewUser struct {
	Email        string
	StudentID    string
	DisplayName  string
	Department   string
	Batch        string
	Phone        string
	PasswordHash string
}

type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}
