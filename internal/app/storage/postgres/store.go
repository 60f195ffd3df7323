// Package postgres implements the storage interfaces on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/inkwell-labs/blog_service/internal/app/domain/comment"
	"github.com/inkwell-labs/blog_service/internal/app/domain/identity"
	"github.com/inkwell-labs/blog_service/internal/app/domain/post"
	"github.com/inkwell-labs/blog_service/internal/app/storage"
)

const uniqueViolation = "23505"

// Store implements IdentityStore, PostStore and CommentStore on a single
// database handle.
type Store struct {
	db *sql.DB
}

// New wraps an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to the database and verifies the connection. Non-positive
// pool sizes fall back to defaults.
func Open(ctx context.Context, dsn string, maxOpenConns, maxIdleConns int) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if maxOpenConns <= 0 {
		maxOpenConns = 25
	}
	if maxIdleConns <= 0 {
		maxIdleConns = 5
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying handle for migrations.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database handle.
func (s *Store) Close() error { return s.db.Close() }

func mapWriteErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return storage.ErrConflict
	}
	return err
}

func (s *Store) CreateIdentity(ctx context.Context, ident identity.Identity) (identity.Identity, error) {
	if ident.ID == "" {
		ident.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	ident.CreatedAt = now
	ident.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO identities (id, username, email, password_hash, profile_image, is_admin, post_ids, comment_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		ident.ID, ident.Username, ident.Email, ident.PasswordHash, ident.ProfileImage, ident.IsAdmin,
		pq.Array(ident.PostIDs), pq.Array(ident.CommentIDs), ident.CreatedAt, ident.UpdatedAt)
	if err != nil {
		return identity.Identity{}, mapWriteErr(err)
	}
	return ident, nil
}

func (s *Store) UpdateIdentity(ctx context.Context, ident identity.Identity) (identity.Identity, error) {
	ident.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE identities
		SET username = $2, email = $3, password_hash = $4, profile_image = $5, is_admin = $6, post_ids = $7, comment_ids = $8, updated_at = $9
		WHERE id = $1`,
		ident.ID, ident.Username, ident.Email, ident.PasswordHash, ident.ProfileImage, ident.IsAdmin,
		pq.Array(ident.PostIDs), pq.Array(ident.CommentIDs), ident.UpdatedAt)
	if err != nil {
		return identity.Identity{}, mapWriteErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return identity.Identity{}, storage.ErrNotFound
	}
	return s.GetIdentity(ctx, ident.ID)
}

const identityColumns = "id, username, email, password_hash, profile_image, is_admin, post_ids, comment_ids, created_at, updated_at"

func scanIdentity(row interface{ Scan(...any) error }) (identity.Identity, error) {
	var ident identity.Identity
	var postIDs, commentIDs pq.StringArray
	err := row.Scan(&ident.ID, &ident.Username, &ident.Email, &ident.PasswordHash, &ident.ProfileImage,
		&ident.IsAdmin, &postIDs, &commentIDs, &ident.CreatedAt, &ident.UpdatedAt)
	if err != nil {
		return identity.Identity{}, err
	}
	ident.PostIDs = []string(postIDs)
	ident.CommentIDs = []string(commentIDs)
	return ident, nil
}

func (s *Store) GetIdentity(ctx context.Context, id string) (identity.Identity, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+identityColumns+" FROM identities WHERE id = $1", id)
	ident, err := scanIdentity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return identity.Identity{}, storage.ErrNotFound
	}
	return ident, err
}

func (s *Store) GetIdentityByEmail(ctx context.Context, email string) (identity.Identity, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+identityColumns+" FROM identities WHERE lower(email) = lower($1)", email)
	ident, err := scanIdentity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return identity.Identity{}, storage.ErrNotFound
	}
	return ident, err
}

func (s *Store) ListIdentities(ctx context.Context, f storage.IdentityFilter) ([]identity.Identity, error) {
	order := "DESC"
	if f.SortAsc {
		order = "ASC"
	}
	query := "SELECT " + identityColumns + " FROM identities WHERE ($1 = '' OR id <> $1) ORDER BY created_at " + order + " OFFSET $2"
	args := []any{f.ExcludeID, f.StartIndex}
	if f.Limit > 0 {
		query += " LIMIT $3"
		args = append(args, f.Limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []identity.Identity{}
	for rows.Next() {
		ident, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ident)
	}
	return out, rows.Err()
}

func (s *Store) DeleteIdentity(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM identities WHERE id = $1", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) CountIdentities(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM identities").Scan(&n)
	return n, err
}

func (s *Store) CountIdentitiesSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM identities WHERE created_at >= $1", since).Scan(&n)
	return n, err
}

const postColumns = "id, title, slug, content, category, image, author_id, comment_ids, created_at, updated_at"

func scanPost(row interface{ Scan(...any) error }) (post.Post, error) {
	var p post.Post
	var commentIDs pq.StringArray
	err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Content, &p.Category, &p.Image, &p.AuthorID,
		&commentIDs, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return post.Post{}, err
	}
	p.CommentIDs = []string(commentIDs)
	return p, nil
}

func (s *Store) CreatePost(ctx context.Context, p post.Post) (post.Post, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (id, title, slug, content, category, image, author_id, comment_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.Title, p.Slug, p.Content, p.Category, p.Image, p.AuthorID,
		pq.Array(p.CommentIDs), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return post.Post{}, mapWriteErr(err)
	}
	return p, nil
}

func (s *Store) UpdatePost(ctx context.Context, p post.Post) (post.Post, error) {
	p.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE posts
		SET title = $2, slug = $3, content = $4, category = $5, image = $6, comment_ids = $7, updated_at = $8
		WHERE id = $1`,
		p.ID, p.Title, p.Slug, p.Content, p.Category, p.Image, pq.Array(p.CommentIDs), p.UpdatedAt)
	if err != nil {
		return post.Post{}, mapWriteErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return post.Post{}, storage.ErrNotFound
	}
	return s.GetPost(ctx, p.ID)
}

func (s *Store) GetPost(ctx context.Context, id string) (post.Post, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+postColumns+" FROM posts WHERE id = $1", id)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return post.Post{}, storage.ErrNotFound
	}
	return p, err
}

func (s *Store) GetPostByTitle(ctx context.Context, title string) (post.Post, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+postColumns+" FROM posts WHERE title = $1", title)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return post.Post{}, storage.ErrNotFound
	}
	return p, err
}

func (s *Store) ListPosts(ctx context.Context, f storage.PostFilter) ([]post.Post, error) {
	order := "DESC"
	if f.SortAsc {
		order = "ASC"
	}
	query := `SELECT ` + postColumns + ` FROM posts
		WHERE ($1 = '' OR id = $1)
		  AND ($2 = '' OR author_id = $2)
		  AND ($3 = '' OR slug = $3)
		  AND ($4 = '' OR category ILIKE '%' || $4 || '%')
		  AND ($5 = '' OR title ILIKE '%' || $5 || '%' OR content ILIKE '%' || $5 || '%')
		ORDER BY created_at ` + order + ` OFFSET $6`
	args := []any{f.ID, f.AuthorID, f.Slug, f.Category, f.SearchTerm, f.StartIndex}
	if f.Limit > 0 {
		query += " LIMIT $7"
		args = append(args, f.Limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []post.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM posts WHERE id = $1", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) CountPosts(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM posts").Scan(&n)
	return n, err
}

func (s *Store) CountPostsSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM posts WHERE created_at >= $1", since).Scan(&n)
	return n, err
}

const commentColumns = "id, content, post_id, author_id, likes, number_of_likes, created_at, updated_at"

func scanComment(row interface{ Scan(...any) error }) (comment.Comment, error) {
	var c comment.Comment
	var likes pq.StringArray
	err := row.Scan(&c.ID, &c.Content, &c.PostID, &c.AuthorID, &likes, &c.NumberOfLikes, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return comment.Comment{}, err
	}
	c.Likes = []string(likes)
	return c, nil
}

func (s *Store) CreateComment(ctx context.Context, c comment.Comment) (comment.Comment, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (id, content, post_id, author_id, likes, number_of_likes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.Content, c.PostID, c.AuthorID, pq.Array(c.Likes), c.NumberOfLikes, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return comment.Comment{}, mapWriteErr(err)
	}
	return c, nil
}

func (s *Store) UpdateComment(ctx context.Context, c comment.Comment) (comment.Comment, error) {
	c.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE comments SET content = $2, likes = $3, number_of_likes = $4, updated_at = $5 WHERE id = $1`,
		c.ID, c.Content, pq.Array(c.Likes), c.NumberOfLikes, c.UpdatedAt)
	if err != nil {
		return comment.Comment{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return comment.Comment{}, storage.ErrNotFound
	}
	return s.GetComment(ctx, c.ID)
}

func (s *Store) GetComment(ctx context.Context, id string) (comment.Comment, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+commentColumns+" FROM comments WHERE id = $1", id)
	c, err := scanComment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return comment.Comment{}, storage.ErrNotFound
	}
	return c, err
}

func (s *Store) ListComments(ctx context.Context, f storage.CommentFilter) ([]comment.Comment, error) {
	query := "SELECT " + commentColumns + " FROM comments WHERE ($1 = '' OR post_id = $1) ORDER BY created_at DESC OFFSET $2"
	args := []any{f.PostID, f.StartIndex}
	if f.Limit > 0 {
		query += " LIMIT $3"
		args = append(args, f.Limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []comment.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) DeleteComment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM comments WHERE id = $1", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) CountComments(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM comments").Scan(&n)
	return n, err
}

func (s *Store) CountCommentsSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM comments WHERE created_at >= $1", since).Scan(&n)
	return n, err
}
