// Package storage declares the persistence interfaces for the blog domain.
// Implementations: storage/memory (tests, local dev) and storage/postgres.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/inkwell-labs/blog_service/internal/app/domain/comment"
	"github.com/inkwell-labs/blog_service/internal/app/domain/identity"
	"github.com/inkwell-labs/blog_service/internal/app/domain/post"
)

// ErrNotFound is returned when the referenced entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write violates a uniqueness constraint.
var ErrConflict = errors.New("already exists")

// IdentityFilter narrows identity listings.
type IdentityFilter struct {
	ExcludeID  string
	StartIndex int
	Limit      int
	SortAsc    bool
}

// PostFilter narrows post listings. String matches are case-insensitive
// substring matches except Slug and ID, which are exact.
type PostFilter struct {
	ID         string
	AuthorID   string
	Slug       string
	Category   string
	SearchTerm string
	StartIndex int
	Limit      int
	SortAsc    bool
}

// CommentFilter narrows comment listings.
type CommentFilter struct {
	PostID     string
	StartIndex int
	Limit      int
}

// IdentityStore persists identity records.
type IdentityStore interface {
	CreateIdentity(ctx context.Context, ident identity.Identity) (identity.Identity, error)
	UpdateIdentity(ctx context.Context, ident identity.Identity) (identity.Identity, error)
	GetIdentity(ctx context.Context, id string) (identity.Identity, error)
	GetIdentityByEmail(ctx context.Context, email string) (identity.Identity, error)
	ListIdentities(ctx context.Context, f IdentityFilter) ([]identity.Identity, error)
	DeleteIdentity(ctx context.Context, id string) error
	CountIdentities(ctx context.Context) (int, error)
	CountIdentitiesSince(ctx context.Context, since time.Time) (int, error)
}

// PostStore persists posts.
type PostStore interface {
	CreatePost(ctx context.Context, p post.Post) (post.Post, error)
	UpdatePost(ctx context.Context, p post.Post) (post.Post, error)
	GetPost(ctx context.Context, id string) (post.Post, error)
	GetPostByTitle(ctx context.Context, title string) (post.Post, error)
	ListPosts(ctx context.Context, f PostFilter) ([]post.Post, error)
	DeletePost(ctx context.Context, id string) error
	CountPosts(ctx context.Context) (int, error)
	CountPostsSince(ctx context.Context, since time.Time) (int, error)
}

// CommentStore persists comments.
type CommentStore interface {
	CreateComment(ctx context.Context, c comment.Comment) (comment.Comment, error)
	UpdateComment(ctx context.Context, c comment.Comment) (comment.Comment, error)
	GetComment(ctx context.Context, id string) (comment.Comment, error)
	ListComments(ctx context.Context, f CommentFilter) ([]comment.Comment, error)
	DeleteComment(ctx context.Context, id string) error
	CountComments(ctx context.Context) (int, error)
	CountCommentsSince(ctx context.Context, since time.Time) (int, error)
}
