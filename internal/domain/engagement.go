package domain

import "time"

type PostType string

const (
	PostTypeStatus      PostType = "status"
	PostTypePhoto       PostType = "photo"
	PostTypeVideo       PostType = "video"
	PostTypeProject     PostType = "project"
	PostTypeAchievement PostType = "achievement"
	PostTypeJob         PostType = "job"
	PostTypeAcademic    PostType = "academic"
	PostTypeEvent       PostType = "event"
	PostTypePoll        PostType = "poll"
)

func ParsePostType(s string) (PostType, bool) {
	switch PostType(s) {
	case "":
		return PostTypeStatus, true
	case PostTypeStatus, PostTypePhoto, PostTypeVideo, PostTypeProject, PostTypeAchievement,
		PostTypeJob, PostTypeAcademic, PostTypeEvent, PostTypePoll:
		return PostType(s), true
	default:
		return "", false
	}
}

type ReactionKind string

const (
	ReactionLike  ReactionKind = "like"
	ReactionLove  ReactionKind = "love"
	ReactionHaha  ReactionKind = "haha"
	ReactionWow   ReactionKind = "wow"
	ReactionSad   ReactionKind = "sad"
	ReactionAngry ReactionKind = "angry"
)

var ReactionKinds = []ReactionKind{ReactionLike, ReactionLove, ReactionHaha, ReactionWow, ReactionSad, ReactionAngry}

func (k ReactionKind) Valid() bool {
	for _, v := range ReactionKinds {
		if v == k {
			return true
		}
	}
	return false
}

// ReactionCounts maps a reaction kind to the number of users holding it.
// Kinds with no reactions are absent.
type ReactionCounts map[ReactionKind]int

func (c ReactionCounts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// Post carries three independent engagement counters. LikesCount belongs to
// the legacy like toggle and is never reconciled with ReactionsCount.
// Private posts never appear in a feed.
type Post struct {
	ID             string         `json:"id"`
	AuthorID       string         `json:"author_id"`
	Content        string         `json:"content"`
	Type           PostType       `json:"post_type"`
	IsPublic       bool           `json:"is_public"`
	LikesCount     int            `json:"likes_count"`
	CommentsCount  int            `json:"comments_count"`
	ReactionsCount ReactionCounts `json:"reactions_count"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// FeedPage is one page of posts by the viewer and the users they follow,
// newest first.
type FeedPage struct {
	Posts   []Post `json:"posts"`
	Page    int    `json:"page"`
	HasNext bool   `json:"has_next"`
}

type Reaction struct {
	UserID    string       `json:"user_id"`
	PostID    string       `json:"post_id"`
	Kind      ReactionKind `json:"kind"`
	CreatedAt time.Time    `json:"created_at"`
}

type Like struct {
	UserID    string    `json:"user_id"`
	PostID    string    `json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type ReactResult struct {
	Kind           ReactionKind   `json:"reaction_type"`
	TotalReactions int            `json:"total_reactions"`
	ReactionsCount ReactionCounts `json:"reactions_count"`
}

type LikeResult struct {
	Liked      bool `json:"liked"`
	LikesCount int  `json:"likes_count"`
}

type CommentResult struct {
	Comment       Comment `json:"comment"`
	CommentsCount int     `json:"comments_count"`
}
