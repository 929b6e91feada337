package domain

import (
	"fmt"
	"strings"
	"time"
)

type UserSummary struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
}

// RequestKind selects which request ledger an operation works on. Friend
// requests and professional connections share one state machine.
type RequestKind string

const (
	RequestKindFriend     RequestKind = "friend"
	RequestKindConnection RequestKind = "connection"
)

func (k RequestKind) Valid() bool {
	return k == RequestKindFriend || k == RequestKindConnection
}

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusAccepted RequestStatus = "accepted"
	RequestStatusDeclined RequestStatus = "declined"
)

func (s RequestStatus) Terminal() bool {
	return s == RequestStatusAccepted || s == RequestStatusDeclined
}

type Decision string

const (
	DecisionAccept  Decision = "accept"
	DecisionDecline Decision = "decline"
)

func (d Decision) Status() (RequestStatus, error) {
	switch d {
	case DecisionAccept:
		return RequestStatusAccepted, nil
	case DecisionDecline:
		return RequestStatusDeclined, nil
	default:
		return "", NewValidationError(map[string]string{"decision": "must be accept or decline"})
	}
}

// Request is a FriendRequest or a Connection row.
type Request struct {
	ID         string        `json:"id"`
	Kind       RequestKind   `json:"kind"`
	SenderID   string        `json:"sender_id"`
	ReceiverID string        `json:"receiver_id"`
	Status     RequestStatus `json:"status"`
	Message    string        `json:"message,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// Involves reports whether the request is between a and b in either direction.
func (r Request) Involves(a, b string) bool {
	return (r.SenderID == a && r.ReceiverID == b) || (r.SenderID == b && r.ReceiverID == a)
}

type FriendRequest struct {
	ID        string      `json:"id"`
	User      UserSummary `json:"user"`
	Message   string      `json:"message,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

type FriendsOverview struct {
	Friends  []UserSummary   `json:"friends"`
	Incoming []FriendRequest `json:"incoming_requests"`
	Outgoing []FriendRequest `json:"outgoing_requests"`
}

// Friendship is stored as a canonical pair with User1ID < User2ID.
type Friendship struct {
	User1ID   string    `json:"user1_id"`
	User2ID   string    `json:"user2_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Other returns the member of the pair that is not userID.
func (f Friendship) Other(userID string) (string, bool) {
	switch userID {
	case f.User1ID:
		return f.User2ID, true
	case f.User2ID:
		return f.User1ID, true
	}
	return "", false
}

// CanonicalPair orders two distinct ids so that the same unordered pair
// always maps to the same row. Ids compare case-insensitively.
func CanonicalPair(a, b string) (string, string) {
	a, b = strings.ToLower(strings.TrimSpace(a)), strings.ToLower(strings.TrimSpace(b))
	if a < b {
		return a, b
	}
	return b, a
}

type FollowEdge struct {
	FollowerID string    `json:"follower_id"`
	FolloweeID string    `json:"followee_id"`
	CreatedAt  time.Time `json:"created_at"`
}

type FollowCounts struct {
	Followers int `json:"followers_count"`
	Following int `json:"following_count"`
}

type FollowResult struct {
	Following      bool `json:"following"`
	FollowersCount int  `json:"followers_count"`
	FollowingCount int  `json:"following_count"`
}

type RespondResult struct {
	Request    Request     `json:"request"`
	Friendship *Friendship `json:"friendship,omitempty"`
}

type ConnectionStatus string

const (
	ConnectionStatusNone            ConnectionStatus = "none"
	ConnectionStatusConnected       ConnectionStatus = "connected"
	ConnectionStatusPendingOutgoing ConnectionStatus = "pending_outgoing"
	ConnectionStatusPendingIncoming ConnectionStatus = "pending_incoming"
	ConnectionStatusDeclined        ConnectionStatus = "declined"
)

// ReversePolicy decides what a request does when the receiver already has
// a request pending towards the sender.
type ReversePolicy string

const (
	ReversePolicyReject     ReversePolicy = "reject"
	ReversePolicyAutoAccept ReversePolicy = "auto-accept-reverse"
)

func ParseReversePolicy(s string) (ReversePolicy, error) {
	switch ReversePolicy(s) {
	case "", ReversePolicyReject:
		return ReversePolicyReject, nil
	case ReversePolicyAutoAccept:
		return ReversePolicyAutoAccept, nil
	default:
		return "", fmt.Errorf("unknown reverse request policy %q", s)
	}
}
