package service

import (
	"context"
	"strings"
	"time"

	"GreenCampusServer/internal/domain"
	"GreenCampusServer/internal/metrics"
)

const (
	maxContentLen = 5000
	feedPageSize  = 10
	maxFeedPage   = 1 << 20
)

// EngagementService owns posts, reactions, the legacy like toggle and
// comments. Every counter it touches is recomputed from ledger rows inside
// the transaction that changed them.
type EngagementService struct {
	Ledger   Ledger
	Posts    PostsReader
	Notifier Deliverer
	Now      func() time.Time

	NotifyReactions bool
	NotifyComments  bool
}

func (s *EngagementService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// CreatePost publishes a public post.
func (s *EngagementService) CreatePost(ctx context.Context, authorID, content, postType string) (domain.Post, error) {
	return s.CreatePostWithVisibility(ctx, authorID, content, postType, true)
}

func (s *EngagementService) CreatePostWithVisibility(ctx context.Context, authorID, content, postType string, public bool) (post domain.Post, err error) {
	defer func(start time.Time) { metrics.ObserveLedger("create_post", start, err) }(time.Now())

	if err := domain.NormalizeIDs(&authorID); err != nil {
		return domain.Post{}, err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return domain.Post{}, domain.ErrEmptyContent
	}
	if len(content) > maxContentLen {
		return domain.Post{}, domain.NewValidationError(map[string]string{"content": "too long"})
	}
	pt, ok := domain.ParsePostType(strings.TrimSpace(strings.ToLower(postType)))
	if !ok {
		return domain.Post{}, domain.NewValidationError(map[string]string{"post_type": "unknown post type"})
	}

	err = s.Ledger.InTx(ctx, func(tx LedgerTx) error {
		if _, err := tx.GetUser(ctx, authorID); err != nil {
			return err
		}
		now := s.now()
		post, err = tx.InsertPost(ctx, domain.Post{
			AuthorID:       authorID,
			Content:        content,
			Type:           pt,
			IsPublic:       public,
			ReactionsCount: domain.ReactionCounts{},
			CreatedAt:      now,
			UpdatedAt:      now,
		})
		if err != nil {
			return err
		}
		_, err = tx.RefreshPostsCount(ctx, authorID)
		return err
	})
	if err != nil {
		return domain.Post{}, err
	}
	return post, nil
}

func (s *EngagementService) GetPost(ctx context.Context, id string) (domain.Post, error) {
	if err := domain.NormalizeIDs(&id); err != nil {
		return domain.Post{}, err
	}
	return s.Posts.GetPost(ctx, id)
}

// Feed returns one page of the viewer's feed. Pages count from 1; anything
// lower reads as the first page.
func (s *EngagementService) Feed(ctx context.Context, userID string, page int) (domain.FeedPage, error) {
	if err := domain.NormalizeIDs(&userID); err != nil {
		return domain.FeedPage{}, err
	}
	if page < 1 {
		page = 1
	}
	if page > maxFeedPage {
		return domain.FeedPage{Posts: []domain.Post{}, Page: page}, nil
	}

	posts, err := s.Posts.ListFeed(ctx, userID, feedPageSize+1, (page-1)*feedPageSize)
	if err != nil {
		return domain.FeedPage{}, err
	}
	out := domain.FeedPage{Posts: posts, Page: page}
	if len(posts) > feedPageSize {
		out.Posts, out.HasNext = posts[:feedPageSize], true
	}
	return out, nil
}

// React replaces the actor's reaction on the post with kind.
func (s *EngagementService) React(ctx context.Context, actorID, postID, kind string) (res domain.ReactResult, err error) {
	defer func(start time.Time) { metrics.ObserveLedger("react", start, err) }(time.Now())

	if err := domain.NormalizeIDs(&actorID, &postID); err != nil {
		return domain.ReactResult{}, err
	}
	rk := domain.ReactionKind(strings.TrimSpace(strings.ToLower(kind)))
	if !rk.Valid() {
		return domain.ReactResult{}, domain.ErrInvalidKind
	}

	var notes []domain.Notification
	err = s.Ledger.InTx(ctx, func(tx LedgerTx) error {
		notes = nil
		actor, err := tx.GetUser(ctx, actorID)
		if err != nil {
			return err
		}
		post, err := tx.GetPost(ctx, postID)
		if err != nil {
			return err
		}

		now := s.now()
		if err := tx.DeleteReaction(ctx, actorID, post.ID); err != nil {
			return err
		}
		if err := tx.InsertReaction(ctx, domain.Reaction{UserID: actorID, PostID: post.ID, Kind: rk, CreatedAt: now}); err != nil {
			return err
		}
		counts, err := tx.RefreshReactionCounts(ctx, post.ID)
		if err != nil {
			return err
		}
		res = domain.ReactResult{Kind: rk, TotalReactions: counts.Total(), ReactionsCount: counts}

		if s.NotifyReactions && actorID != post.AuthorID {
			n, err := tx.InsertNotification(ctx, domain.Notification{
				RecipientID: post.AuthorID,
				SenderID:    actorID,
				Kind:        domain.NotificationReaction,
				Message:     actor.Name() + " reacted to your post",
				CreatedAt:   now,
			})
			if err != nil {
				return err
			}
			notes = append(notes, n)
		}
		return nil
	})
	if err != nil {
		return domain.ReactResult{}, err
	}

	s.deliver(ctx, notes)
	return res, nil
}

// ToggleLike flips the legacy like. It never touches reactions.
func (s *EngagementService) ToggleLike(ctx context.Context, actorID, postID string) (res domain.LikeResult, err error) {
	defer func(start time.Time) { metrics.ObserveLedger("toggle_like", start, err) }(time.Now())

	if err := domain.NormalizeIDs(&actorID, &postID); err != nil {
		return domain.LikeResult{}, err
	}

	var notes []domain.Notification
	err = s.Ledger.InTx(ctx, func(tx LedgerTx) error {
		notes = nil
		actor, err := tx.GetUser(ctx, actorID)
		if err != nil {
			return err
		}
		post, err := tx.GetPost(ctx, postID)
		if err != nil {
			return err
		}

		liked, err := tx.LikeExists(ctx, actorID, post.ID)
		if err != nil {
			return err
		}
		now := s.now()
		if liked {
			if err := tx.DeleteLike(ctx, actorID, post.ID); err != nil {
				return err
			}
		} else {
			if err := tx.InsertLike(ctx, domain.Like{UserID: actorID, PostID: post.ID, CreatedAt: now}); err != nil {
				return err
			}
			if actorID != post.AuthorID {
				n, err := tx.InsertNotification(ctx, domain.Notification{
					RecipientID: post.AuthorID,
					SenderID:    actorID,
					Kind:        domain.NotificationLike,
					Message:     actor.Name() + " liked your post",
					CreatedAt:   now,
				})
				if err != nil {
					return err
				}
				notes = append(notes, n)
			}
		}

		count, err := tx.RefreshLikesCount(ctx, post.ID)
		if err != nil {
			return err
		}
		res = domain.LikeResult{Liked: !liked, LikesCount: count}
		return nil
	})
	if err != nil {
		return domain.LikeResult{}, err
	}

	s.deliver(ctx, notes)
	return res, nil
}

func (s *EngagementService) Comment(ctx context.Context, actorID, postID, content string) (res domain.CommentResult, err error) {
	defer func(start time.Time) { metrics.ObserveLedger("comment", start, err) }(time.Now())

	if err := domain.NormalizeIDs(&actorID, &postID); err != nil {
		return domain.CommentResult{}, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.CommentResult{}, domain.ErrEmptyContent
	}
	if len(content) > maxContentLen {
		return domain.CommentResult{}, domain.NewValidationError(map[string]string{"content": "too long"})
	}

	var notes []domain.Notification
	err = s.Ledger.InTx(ctx, func(tx LedgerTx) error {
		notes = nil
		actor, err := tx.GetUser(ctx, actorID)
		if err != nil {
			return err
		}
		post, err := tx.GetPost(ctx, postID)
		if err != nil {
			return err
		}

		now := s.now()
		c, err := tx.InsertComment(ctx, domain.Comment{PostID: post.ID, AuthorID: actorID, Content: content, CreatedAt: now})
		if err != nil {
			return err
		}
		count, err := tx.RefreshCommentsCount(ctx, post.ID)
		if err != nil {
			return err
		}
		res = domain.CommentResult{Comment: c, CommentsCount: count}

		if s.NotifyComments && actorID != post.AuthorID {
			n, err := tx.InsertNotification(ctx, domain.Notification{
				RecipientID: post.AuthorID,
				SenderID:    actorID,
				Kind:        domain.NotificationComment,
				Message:     actor.Name() + " commented on your post",
				CreatedAt:   now,
			})
			if err != nil {
				return err
			}
			notes = append(notes, n)
		}
		return nil
	})
	if err != nil {
		return domain.CommentResult{}, err
	}

	s.deliver(ctx, notes)
	return res, nil
}

func (s *EngagementService) deliver(ctx context.Context, notes []domain.Notification) {
	if s.Notifier == nil || len(notes) == 0 {
		return
	}
	s.Notifier.Deliver(ctx, notes...)
}
