// Package posts implements the post resource service. Posts are written by
// admins only; reads are public.
package posts

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/inkwell-labs/blog_service/internal/app/domain/post"
	"github.com/inkwell-labs/blog_service/internal/app/services"
	"github.com/inkwell-labs/blog_service/internal/app/storage"
	errs "github.com/inkwell-labs/blog_service/internal/errors"
	"github.com/inkwell-labs/blog_service/pkg/logger"
)

// DefaultListLimit caps unbounded post listings.
const DefaultListLimit = 9

var (
	whitespace  = regexp.MustCompile(`\s`)
	nonSlugChar = regexp.MustCompile(`[^a-z0-9-]`)
)

// Slugify derives the URL slug from a title: lowercase, each whitespace
// character becomes a hyphen, everything outside [a-z0-9-] is dropped.
// Runs of whitespace are preserved as runs of hyphens.
func Slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = whitespace.ReplaceAllString(s, "-")
	return nonSlugChar.ReplaceAllString(s, "")
}

// Service owns post business rules.
type Service struct {
	posts      storage.PostStore
	comments   storage.CommentStore
	identities storage.IdentityStore
	logger     *logger.Logger
}

// New creates the post service. A nil logger falls back to a default one.
func New(posts storage.PostStore, comments storage.CommentStore, identities storage.IdentityStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("post-service")
	}
	return &Service{posts: posts, comments: comments, identities: identities, logger: log}
}

// CreateInput carries the create request fields.
type CreateInput struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category"`
	Image    string `json:"image"`
}

// UpdateInput carries the update request fields. Empty fields are left as is.
type UpdateInput struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category"`
	Image    string `json:"image"`
}

// ListInput mirrors the public listing query parameters.
type ListInput struct {
	ID         string
	AuthorID   string
	Slug       string
	Category   string
	SearchTerm string
	StartIndex int
	Limit      int
	SortAsc    bool
}

// ListResult is the listing payload with the dashboard totals.
type ListResult struct {
	Posts          []post.Post
	TotalPosts     int
	LastMonthPosts int
}

// Create adds a post. Only admins may publish.
func (s *Service) Create(ctx context.Context, actor services.Actor, in CreateInput) (post.Post, error) {
	if !actor.IsAdmin {
		return post.Post{}, errs.Forbidden("Not authorized!")
	}
	title := strings.TrimSpace(in.Title)
	if title == "" || strings.TrimSpace(in.Content) == "" {
		return post.Post{}, errs.BadRequest("Please provide all required fields")
	}

	// Surface the duplicate before any write so a conflict leaves no trace.
	if _, err := s.posts.GetPostByTitle(ctx, title); err == nil {
		return post.Post{}, errs.Conflict("A post with this title already exists")
	} else if err != storage.ErrNotFound {
		return post.Post{}, errs.Internal("failed to check title", err)
	}

	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = post.DefaultCategory
	}
	image := strings.TrimSpace(in.Image)
	if image == "" {
		image = post.DefaultImage
	}

	created, err := s.posts.CreatePost(ctx, post.Post{
		Title:      title,
		Slug:       Slugify(title),
		Content:    in.Content,
		Category:   category,
		Image:      image,
		AuthorID:   actor.ID,
		CommentIDs: []string{},
	})
	if err != nil {
		if err == storage.ErrConflict {
			return post.Post{}, errs.Conflict("A post with this title already exists")
		}
		return post.Post{}, errs.Internal("failed to create post", err)
	}

	s.attachToAuthor(ctx, created)
	s.logger.WithField("post_id", created.ID).WithField("slug", created.Slug).Info("post created")
	return created, nil
}

// attachToAuthor records the post on the author's post list. Failures are
// logged; the post itself is already committed.
func (s *Service) attachToAuthor(ctx context.Context, p post.Post) {
	author, err := s.identities.GetIdentity(ctx, p.AuthorID)
	if err != nil {
		s.logger.WithError(err).WithField("author_id", p.AuthorID).Warn("failed to load author for post list update")
		return
	}
	author.PostIDs = append(author.PostIDs, p.ID)
	if _, err := s.identities.UpdateIdentity(ctx, author); err != nil {
		s.logger.WithError(err).WithField("author_id", p.AuthorID).Warn("failed to update author post list")
	}
}

// Update edits a post. Only admins may edit; a changed title recomputes the
// slug.
func (s *Service) Update(ctx context.Context, actor services.Actor, id string, in UpdateInput) (post.Post, error) {
	if !actor.IsAdmin {
		return post.Post{}, errs.Forbidden("Not authorized!")
	}
	current, err := s.posts.GetPost(ctx, id)
	if err != nil {
		if err == storage.ErrNotFound {
			return post.Post{}, errs.NotFound("Post not found")
		}
		return post.Post{}, errs.Internal("failed to load post", err)
	}

	if title := strings.TrimSpace(in.Title); title != "" && title != current.Title {
		if _, err := s.posts.GetPostByTitle(ctx, title); err == nil {
			return post.Post{}, errs.Conflict("A post with this title already exists")
		} else if err != storage.ErrNotFound {
			return post.Post{}, errs.Internal("failed to check title", err)
		}
		current.Title = title
		current.Slug = Slugify(title)
	}
	if in.Content != "" {
		current.Content = in.Content
	}
	if category := strings.TrimSpace(in.Category); category != "" {
		current.Category = category
	}
	if image := strings.TrimSpace(in.Image); image != "" {
		current.Image = image
	}

	updated, err := s.posts.UpdatePost(ctx, current)
	if err != nil {
		if err == storage.ErrConflict {
			return post.Post{}, errs.Conflict("A post with this title already exists")
		}
		return post.Post{}, errs.Internal("failed to update post", err)
	}
	return updated, nil
}

// Delete removes a post, its comments, and the author's reference to it.
func (s *Service) Delete(ctx context.Context, actor services.Actor, id string) error {
	if !actor.IsAdmin {
		return errs.Forbidden("Not authorized!")
	}
	p, err := s.posts.GetPost(ctx, id)
	if err != nil {
		if err == storage.ErrNotFound {
			return errs.NotFound("Post not found")
		}
		return errs.Internal("failed to load post", err)
	}

	if err := s.posts.DeletePost(ctx, id); err != nil {
		if err == storage.ErrNotFound {
			return errs.NotFound("Post not found")
		}
		return errs.Internal("failed to delete post", err)
	}

	s.cascadeDelete(ctx, p)
	s.logger.WithField("post_id", id).Info("post deleted")
	return nil
}

// cascadeDelete removes the post's comments and detaches it from the author.
// Each failure is logged and the rest of the cleanup continues.
func (s *Service) cascadeDelete(ctx context.Context, p post.Post) {
	comments, err := s.comments.ListComments(ctx, storage.CommentFilter{PostID: p.ID})
	if err != nil {
		s.logger.WithError(err).WithField("post_id", p.ID).Warn("failed to list comments for cascade delete")
	} else {
		for _, c := range comments {
			if err := s.comments.DeleteComment(ctx, c.ID); err != nil && err != storage.ErrNotFound {
				s.logger.WithError(err).WithField("comment_id", c.ID).Warn("failed to delete comment during cascade")
			}
		}
	}

	author, err := s.identities.GetIdentity(ctx, p.AuthorID)
	if err != nil {
		if err != storage.ErrNotFound {
			s.logger.WithError(err).WithField("author_id", p.AuthorID).Warn("failed to load author for post list cleanup")
		}
		return
	}
	author.PostIDs = remove(author.PostIDs, p.ID)
	if _, err := s.identities.UpdateIdentity(ctx, author); err != nil {
		s.logger.WithError(err).WithField("author_id", p.AuthorID).Warn("failed to update author post list")
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

// Get returns a single post.
func (s *Service) Get(ctx context.Context, id string) (post.Post, error) {
	p, err := s.posts.GetPost(ctx, id)
	if err != nil {
		if err == storage.ErrNotFound {
			return post.Post{}, errs.NotFound("Post not found")
		}
		return post.Post{}, errs.Internal("failed to load post", err)
	}
	return p, nil
}

// List returns matching posts plus the dashboard totals.
func (s *Service) List(ctx context.Context, in ListInput) (ListResult, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	posts, err := s.posts.ListPosts(ctx, storage.PostFilter{
		ID:         in.ID,
		AuthorID:   in.AuthorID,
		Slug:       in.Slug,
		Category:   in.Category,
		SearchTerm: in.SearchTerm,
		StartIndex: in.StartIndex,
		Limit:      limit,
		SortAsc:    in.SortAsc,
	})
	if err != nil {
		return ListResult{}, errs.Internal("failed to list posts", err)
	}
	total, err := s.posts.CountPosts(ctx)
	if err != nil {
		return ListResult{}, errs.Internal("failed to count posts", err)
	}
	lastMonth, err := s.posts.CountPostsSince(ctx, time.Now().AddDate(0, -1, 0))
	if err != nil {
		return ListResult{}, errs.Internal("failed to count recent posts", err)
	}
	return ListResult{Posts: posts, TotalPosts: total, LastMonthPosts: lastMonth}, nil
}
