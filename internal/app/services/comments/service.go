// Package comments implements the comment resource service. Any
// authenticated identity may comment; mutations are owner-or-admin.
package comments

import (
	"context"
	"strings"
	"time"

	"github.com/inkwell-labs/blog_service/internal/app/domain/comment"
	"github.com/inkwell-labs/blog_service/internal/app/domain/post"
	"github.com/inkwell-labs/blog_service/internal/app/services"
	"github.com/inkwell-labs/blog_service/internal/app/storage"
	errs "github.com/inkwell-labs/blog_service/internal/errors"
	"github.com/inkwell-labs/blog_service/pkg/logger"
)

// DefaultListLimit caps unbounded comment listings.
const DefaultListLimit = 5

// Service owns comment business rules.
type Service struct {
	comments   storage.CommentStore
	posts      storage.PostStore
	identities storage.IdentityStore
	logger     *logger.Logger
}

// New creates the comment service. A nil logger falls back to a default one.
func New(comments storage.CommentStore, posts storage.PostStore, identities storage.IdentityStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("comment-service")
	}
	return &Service{comments: comments, posts: posts, identities: identities, logger: log}
}

// CreateInput carries the create request fields. AuthorID is the claimed
// author and must match the caller.
type CreateInput struct {
	Content  string `json:"content"`
	PostID   string `json:"postId"`
	AuthorID string `json:"userId"`
}

// ListInput mirrors the listing query parameters.
type ListInput struct {
	PostID     string
	StartIndex int
	Limit      int
}

// ListResult is the listing payload with the dashboard totals.
type ListResult struct {
	Comments          []comment.Comment
	TotalComments     int
	LastMonthComments int
}

// Create adds a comment to an existing post.
func (s *Service) Create(ctx context.Context, actor services.Actor, in CreateInput) (comment.Comment, error) {
	if !actor.Is(in.AuthorID) {
		return comment.Comment{}, errs.Forbidden("You are not allowed to create this comment")
	}
	if strings.TrimSpace(in.Content) == "" {
		return comment.Comment{}, errs.BadRequest("Comment content is required")
	}

	p, err := s.posts.GetPost(ctx, in.PostID)
	if err != nil {
		if err == storage.ErrNotFound {
			return comment.Comment{}, errs.NotFound("Post not found")
		}
		return comment.Comment{}, errs.Internal("failed to load post", err)
	}

	created, err := s.comments.CreateComment(ctx, comment.Comment{
		Content:  in.Content,
		PostID:   p.ID,
		AuthorID: actor.ID,
		Likes:    []string{},
	})
	if err != nil {
		return comment.Comment{}, errs.Internal("failed to create comment", err)
	}

	s.attach(ctx, created, p)
	s.logger.WithField("comment_id", created.ID).WithField("post_id", p.ID).Info("comment created")
	return created, nil
}

// attach records the comment on the post and on the author. Failures are
// logged; the comment itself is already committed.
func (s *Service) attach(ctx context.Context, c comment.Comment, p post.Post) {
	p.CommentIDs = append(p.CommentIDs, c.ID)
	if _, err := s.posts.UpdatePost(ctx, p); err != nil {
		s.logger.WithError(err).WithField("post_id", p.ID).Warn("failed to update post comment list")
	}

	author, err := s.identities.GetIdentity(ctx, c.AuthorID)
	if err != nil {
		s.logger.WithError(err).WithField("author_id", c.AuthorID).Warn("failed to load author for comment list update")
		return
	}
	author.CommentIDs = append(author.CommentIDs, c.ID)
	if _, err := s.identities.UpdateIdentity(ctx, author); err != nil {
		s.logger.WithError(err).WithField("author_id", c.AuthorID).Warn("failed to update author comment list")
	}
}

// ToggleLike flips the caller's like on a comment. Liking twice unlikes; the
// operation is idempotent per state.
func (s *Service) ToggleLike(ctx context.Context, actor services.Actor, id string) (comment.Comment, error) {
	c, err := s.comments.GetComment(ctx, id)
	if err != nil {
		if err == storage.ErrNotFound {
			return comment.Comment{}, errs.NotFound("Comment not found")
		}
		return comment.Comment{}, errs.Internal("failed to load comment", err)
	}

	if c.Liked(actor.ID) {
		likes := make([]string, 0, len(c.Likes)-1)
		for _, v := range c.Likes {
			if v != actor.ID {
				likes = append(likes, v)
			}
		}
		c.Likes = likes
	} else {
		c.Likes = append(c.Likes, actor.ID)
	}
	c.NumberOfLikes = len(c.Likes)

	updated, err := s.comments.UpdateComment(ctx, c)
	if err != nil {
		return comment.Comment{}, errs.Internal("failed to update comment", err)
	}
	return updated, nil
}

// Update edits a comment's content. Owner or admin only.
func (s *Service) Update(ctx context.Context, actor services.Actor, id, content string) (comment.Comment, error) {
	c, err := s.comments.GetComment(ctx, id)
	if err != nil {
		if err == storage.ErrNotFound {
			return comment.Comment{}, errs.NotFound("Comment not found")
		}
		return comment.Comment{}, errs.Internal("failed to load comment", err)
	}
	if !actor.Is(c.AuthorID) && !actor.IsAdmin {
		return comment.Comment{}, errs.Forbidden("You are not allowed to edit this comment")
	}
	if strings.TrimSpace(content) == "" {
		return comment.Comment{}, errs.BadRequest("Comment content is required")
	}

	c.Content = content
	updated, err := s.comments.UpdateComment(ctx, c)
	if err != nil {
		return comment.Comment{}, errs.Internal("failed to update comment", err)
	}
	return updated, nil
}

// Delete removes a comment and detaches it from its post and author. Owner
// or admin only; a second delete reports not found.
func (s *Service) Delete(ctx context.Context, actor services.Actor, id string) error {
	c, err := s.comments.GetComment(ctx, id)
	if err != nil {
		if err == storage.ErrNotFound {
			return errs.NotFound("Comment not found")
		}
		return errs.Internal("failed to load comment", err)
	}
	if !actor.Is(c.AuthorID) && !actor.IsAdmin {
		return errs.Forbidden("You are not allowed to delete this comment")
	}

	if err := s.comments.DeleteComment(ctx, id); err != nil {
		if err == storage.ErrNotFound {
			return errs.NotFound("Comment not found")
		}
		return errs.Internal("failed to delete comment", err)
	}

	s.detach(ctx, c)
	s.logger.WithField("comment_id", id).Info("comment deleted")
	return nil
}

// detach drops the comment from the post's and author's reference lists.
func (s *Service) detach(ctx context.Context, c comment.Comment) {
	if p, err := s.posts.GetPost(ctx, c.PostID); err == nil {
		p.CommentIDs = remove(p.CommentIDs, c.ID)
		if _, err := s.posts.UpdatePost(ctx, p); err != nil {
			s.logger.WithError(err).WithField("post_id", c.PostID).Warn("failed to update post comment list")
		}
	} else if err != storage.ErrNotFound {
		s.logger.WithError(err).WithField("post_id", c.PostID).Warn("failed to load post for comment cleanup")
	}

	if author, err := s.identities.GetIdentity(ctx, c.AuthorID); err == nil {
		author.CommentIDs = remove(author.CommentIDs, c.ID)
		if _, err := s.identities.UpdateIdentity(ctx, author); err != nil {
			s.logger.WithError(err).WithField("author_id", c.AuthorID).Warn("failed to update author comment list")
		}
	} else if err != storage.ErrNotFound {
		s.logger.WithError(err).WithField("author_id", c.AuthorID).Warn("failed to load author for comment cleanup")
	}
}

func remove(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// Get returns a single comment.
func (s *Service) Get(ctx context.Context, id string) (comment.Comment, error) {
	c, err := s.comments.GetComment(ctx, id)
	if err != nil {
		if err == storage.ErrNotFound {
			return comment.Comment{}, errs.NotFound("Comment not found")
		}
		return comment.Comment{}, errs.Internal("failed to load comment", err)
	}
	return c, nil
}

// List returns matching comments newest first plus the dashboard totals.
func (s *Service) List(ctx context.Context, in ListInput) (ListResult, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	comments, err := s.comments.ListComments(ctx, storage.CommentFilter{
		PostID:     in.PostID,
		StartIndex: in.StartIndex,
		Limit:      limit,
	})
	if err != nil {
		return ListResult{}, errs.Internal("failed to list comments", err)
	}
	total, err := s.comments.CountComments(ctx)
	if err != nil {
		return ListResult{}, errs.Internal("failed to count comments", err)
	}
	lastMonth, err := s.comments.CountCommentsSince(ctx, time.Now().AddDate(0, -1, 0))
	if err != nil {
		return ListResult{}, errs.Internal("failed to count recent comments", err)
	}
	return ListResult{Comments: comments, TotalComments: total, LastMonthComments: lastMonth}, nil
}
