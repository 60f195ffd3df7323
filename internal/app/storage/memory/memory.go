// Package memory provides in-memory implementations of the storage
// interfaces. Used by tests and by deployments without a database.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/inkwell-labs/blog_service/internal/app/domain/comment"
	"github.com/inkwell-labs/blog_service/internal/app/domain/identity"
	"github.com/inkwell-labs/blog_service/internal/app/domain/post"
	"github.com/inkwell-labs/blog_service/internal/app/storage"
)

// IdentityStore keeps identities in a map guarded by a RWMutex.
type IdentityStore struct {
	mu    sync.RWMutex
	items map[string]identity.Identity
}

// NewIdentityStore creates an empty identity store.
func NewIdentityStore() *IdentityStore {
	return &IdentityStore{items: map[string]identity.Identity{}}
}

func cloneIdentity(i identity.Identity) identity.Identity {
	out := i
	out.PostIDs = append([]string(nil), i.PostIDs...)
	out.CommentIDs = append([]string(nil), i.CommentIDs...)
	return out
}

func (s *IdentityStore) CreateIdentity(ctx context.Context, ident identity.Identity) (identity.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.items {
		if strings.EqualFold(existing.Email, ident.Email) || existing.Username == ident.Username {
			return identity.Identity{}, storage.ErrConflict
		}
	}
	if ident.ID == "" {
		ident.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	ident.CreatedAt = now
	ident.UpdatedAt = now
	s.items[ident.ID] = cloneIdentity(ident)
	return cloneIdentity(ident), nil
}

func (s *IdentityStore) UpdateIdentity(ctx context.Context, ident identity.Identity) (identity.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.items[ident.ID]
	if !ok {
		return identity.Identity{}, storage.ErrNotFound
	}
	for id, existing := range s.items {
		if id == ident.ID {
			continue
		}
		if strings.EqualFold(existing.Email, ident.Email) || existing.Username == ident.Username {
			return identity.Identity{}, storage.ErrConflict
		}
	}
	ident.CreatedAt = current.CreatedAt
	ident.UpdatedAt = time.Now().UTC()
	s.items[ident.ID] = cloneIdentity(ident)
	return cloneIdentity(ident), nil
}

func (s *IdentityStore) GetIdentity(ctx context.Context, id string) (identity.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ident, ok := s.items[id]
	if !ok {
		return identity.Identity{}, storage.ErrNotFound
	}
	return cloneIdentity(ident), nil
}

func (s *IdentityStore) GetIdentityByEmail(ctx context.Context, email string) (identity.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ident := range s.items {
		if strings.EqualFold(ident.Email, email) {
			return cloneIdentity(ident), nil
		}
	}
	return identity.Identity{}, storage.ErrNotFound
}

func (s *IdentityStore) ListIdentities(ctx context.Context, f storage.IdentityFilter) ([]identity.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]identity.Identity, 0, len(s.items))
	for _, ident := range s.items {
		if f.ExcludeID != "" && ident.ID == f.ExcludeID {
			continue
		}
		out = append(out, cloneIdentity(ident))
	}
	sort.Slice(out, func(i, j int) bool {
		if f.SortAsc {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return paginateIdentities(out, f.StartIndex, f.Limit), nil
}

func paginateIdentities(items []identity.Identity, start, limit int) []identity.Identity {
	if start < 0 {
		start = 0
	}
	if start >= len(items) {
		return []identity.Identity{}
	}
	items = items[start:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func (s *IdentityStore) DeleteIdentity(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *IdentityStore) CountIdentities(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items), nil
}

func (s *IdentityStore) CountIdentitiesSince(ctx context.Context, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, ident := range s.items {
		if !ident.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// PostStore keeps posts in a map guarded by a RWMutex.
type PostStore struct {
	mu    sync.RWMutex
	items map[string]post.Post
}

// NewPostStore creates an empty post store.
func NewPostStore() *PostStore {
	return &PostStore{items: map[string]post.Post{}}
}

func clonePost(p post.Post) post.Post {
	out := p
	out.CommentIDs = append([]string(nil), p.CommentIDs...)
	return out
}

func (s *PostStore) CreatePost(ctx context.Context, p post.Post) (post.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.items {
		if existing.Title == p.Title || existing.Slug == p.Slug {
			return post.Post{}, storage.ErrConflict
		}
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.items[p.ID] = clonePost(p)
	return clonePost(p), nil
}

func (s *PostStore) UpdatePost(ctx context.Context, p post.Post) (post.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.items[p.ID]
	if !ok {
		return post.Post{}, storage.ErrNotFound
	}
	for id, existing := range s.items {
		if id == p.ID {
			continue
		}
		if existing.Title == p.Title || existing.Slug == p.Slug {
			return post.Post{}, storage.ErrConflict
		}
	}
	p.CreatedAt = current.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	s.items[p.ID] = clonePost(p)
	return clonePost(p), nil
}

func (s *PostStore) GetPost(ctx context.Context, id string) (post.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.items[id]
	if !ok {
		return post.Post{}, storage.ErrNotFound
	}
	return clonePost(p), nil
}

func (s *PostStore) GetPostByTitle(ctx context.Context, title string) (post.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.items {
		if p.Title == title {
			return clonePost(p), nil
		}
	}
	return post.Post{}, storage.ErrNotFound
}

func matchPost(p post.Post, f storage.PostFilter) bool {
	if f.ID != "" && p.ID != f.ID {
		return false
	}
	if f.AuthorID != "" && p.AuthorID != f.AuthorID {
		return false
	}
	if f.Slug != "" && p.Slug != f.Slug {
		return false
	}
	if f.Category != "" && !strings.Contains(strings.ToLower(p.Category), strings.ToLower(f.Category)) {
		return false
	}
	if f.SearchTerm != "" {
		term := strings.ToLower(f.SearchTerm)
		if !strings.Contains(strings.ToLower(p.Title), term) && !strings.Contains(strings.ToLower(p.Content), term) {
			return false
		}
	}
	return true
}

func (s *PostStore) ListPosts(ctx context.Context, f storage.PostFilter) ([]post.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]post.Post, 0, len(s.items))
	for _, p := range s.items {
		if matchPost(p, f) {
			out = append(out, clonePost(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if f.SortAsc {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	start := f.StartIndex
	if start < 0 {
		start = 0
	}
	if start >= len(out) {
		return []post.Post{}, nil
	}
	out = out[start:]
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *PostStore) DeletePost(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *PostStore) CountPosts(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items), nil
}

func (s *PostStore) CountPostsSince(ctx context.Context, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, p := range s.items {
		if !p.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// CommentStore keeps comments in a map guarded by a RWMutex.
type CommentStore struct {
	mu    sync.RWMutex
	items map[string]comment.Comment
}

// NewCommentStore creates an empty comment store.
func NewCommentStore() *CommentStore {
	return &CommentStore{items: map[string]comment.Comment{}}
}

func cloneComment(c comment.Comment) comment.Comment {
	out := c
	out.Likes = append([]string(nil), c.Likes...)
	return out
}

func (s *CommentStore) CreateComment(ctx context.Context, c comment.Comment) (comment.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	s.items[c.ID] = cloneComment(c)
	return cloneComment(c), nil
}

func (s *CommentStore) UpdateComment(ctx context.Context, c comment.Comment) (comment.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.items[c.ID]
	if !ok {
		return comment.Comment{}, storage.ErrNotFound
	}
	c.CreatedAt = current.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	s.items[c.ID] = cloneComment(c)
	return cloneComment(c), nil
}

func (s *CommentStore) GetComment(ctx context.Context, id string) (comment.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.items[id]
	if !ok {
		return comment.Comment{}, storage.ErrNotFound
	}
	return cloneComment(c), nil
}

func (s *CommentStore) ListComments(ctx context.Context, f storage.CommentFilter) ([]comment.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]comment.Comment, 0, len(s.items))
	for _, c := range s.items {
		if f.PostID != "" && c.PostID != f.PostID {
			continue
		}
		out = append(out, cloneComment(c))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	start := f.StartIndex
	if start < 0 {
		start = 0
	}
	if start >= len(out) {
		return []comment.Comment{}, nil
	}
	out = out[start:]
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *CommentStore) DeleteComment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *CommentStore) CountComments(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items), nil
}

func (s *CommentStore) CountCommentsSince(ctx context.Context, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, c := range s.items {
		if !c.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}
