package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/inkwell-labs/blog_service/internal/app/domain/comment"
	"github.com/inkwell-labs/blog_service/internal/app/domain/identity"
	"github.com/inkwell-labs/blog_service/internal/app/domain/post"
	"github.com/inkwell-labs/blog_service/internal/app/storage"
	"github.com/inkwell-labs/blog_service/internal/platform/migrations"
)

// openTestStore connects to the database named by TEST_POSTGRES_DSN and
// applies migrations. Tests are skipped when the variable is unset.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := Open(ctx, dsn, 4, 2)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := store.DB().Stats().MaxOpenConnections; got != 4 {
		t.Fatalf("pool size not applied: MaxOpenConnections = %d, want 4", got)
	}
	t.Cleanup(func() { store.Close() })

	if err := migrations.Apply(ctx, store.DB()); err != nil {
		t.Fatalf("migrations.Apply: %v", err)
	}
	for _, table := range []string{"comments", "posts", "identities"} {
		if _, err := store.DB().ExecContext(ctx, "DELETE FROM "+table); err != nil {
			t.Fatalf("truncate %s: %v", table, err)
		}
	}
	return store
}

func TestPostgresIdentityRoundtrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	created, err := store.CreateIdentity(ctx, identity.Identity{
		Username: "alicewriter", Email: "alice@example.com", PasswordHash: "hash",
		ProfileImage: identity.DefaultProfileImage, PostIDs: []string{}, CommentIDs: []string{},
	})
	if err != nil {
		t.Fatalf("CreateIdentity: %v", err)
	}

	if _, err := store.CreateIdentity(ctx, identity.Identity{
		Username: "alicewriter", Email: "other@example.com", PasswordHash: "hash",
		PostIDs: []string{}, CommentIDs: []string{},
	}); err != storage.ErrConflict {
		t.Fatalf("expected unique violation to map to ErrConflict, got %v", err)
	}

	byEmail, err := store.GetIdentityByEmail(ctx, "ALICE@example.com")
	if err != nil {
		t.Fatalf("GetIdentityByEmail: %v", err)
	}
	if byEmail.ID != created.ID {
		t.Fatalf("lookup mismatch: %q vs %q", byEmail.ID, created.ID)
	}

	created.PostIDs = []string{"p1", "p2"}
	updated, err := store.UpdateIdentity(ctx, created)
	if err != nil {
		t.Fatalf("UpdateIdentity: %v", err)
	}
	if len(updated.PostIDs) != 2 {
		t.Fatalf("array column roundtrip failed: %v", updated.PostIDs)
	}

	if err := store.DeleteIdentity(ctx, created.ID); err != nil {
		t.Fatalf("DeleteIdentity: %v", err)
	}
	if _, err := store.GetIdentity(ctx, created.ID); err != storage.ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestPostgresPostFilters(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	seed := []post.Post{
		{Title: "Go Routines", Slug: "go-routines", Content: "about concurrency", Category: "Tech", Image: "i", AuthorID: "a1", CommentIDs: []string{}},
		{Title: "Sourdough", Slug: "sourdough", Content: "bread", Category: "Food", Image: "i", AuthorID: "a2", CommentIDs: []string{}},
	}
	for _, p := range seed {
		if _, err := store.CreatePost(ctx, p); err != nil {
			t.Fatalf("CreatePost %q: %v", p.Title, err)
		}
	}

	tech, err := store.ListPosts(ctx, storage.PostFilter{Category: "tech"})
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if len(tech) != 1 || tech[0].Title != "Go Routines" {
		t.Fatalf("unexpected category match %v", tech)
	}

	search, err := store.ListPosts(ctx, storage.PostFilter{SearchTerm: "CONCURRENCY"})
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if len(search) != 1 {
		t.Fatalf("expected 1 search match, got %d", len(search))
	}

	n, err := store.CountPostsSince(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("CountPostsSince: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 recent posts, got %d", n)
	}
}

func TestPostgresCommentRoundtrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	created, err := store.CreateComment(ctx, comment.Comment{
		Content: "nice", PostID: "p1", AuthorID: "a1", Likes: []string{},
	})
	if err != nil {
		t.Fatalf("CreateComment: %v", err)
	}

	created.Likes = []string{"a2"}
	created.NumberOfLikes = 1
	updated, err := store.UpdateComment(ctx, created)
	if err != nil {
		t.Fatalf("UpdateComment: %v", err)
	}
	if updated.NumberOfLikes != 1 || len(updated.Likes) != 1 {
		t.Fatalf("likes roundtrip failed: %+v", updated)
	}

	if err := store.DeleteComment(ctx, created.ID); err != nil {
		t.Fatalf("DeleteComment: %v", err)
	}
	if err := store.DeleteComment(ctx, created.ID); err != storage.ErrNotFound {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}
