package memory

import (
	"context"
	"testing"

	"github.com/inkwell-labs/blog_service/internal/app/domain/identity"
	"github.com/inkwell-labs/blog_service/internal/app/domain/post"
	"github.com/inkwell-labs/blog_service/internal/app/storage"
)

func TestIdentityStoreConflicts(t *testing.T) {
	store := NewIdentityStore()
	ctx := context.Background()

	first, err := store.CreateIdentity(ctx, identity.Identity{Username: "alicewriter", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("CreateIdentity: %v", err)
	}

	if _, err := store.CreateIdentity(ctx, identity.Identity{Username: "alicewriter", Email: "other@example.com"}); err != storage.ErrConflict {
		t.Fatalf("expected username conflict, got %v", err)
	}
	if _, err := store.CreateIdentity(ctx, identity.Identity{Username: "otherwriter", Email: "ALICE@example.com"}); err != storage.ErrConflict {
		t.Fatalf("expected case-insensitive email conflict, got %v", err)
	}

	byEmail, err := store.GetIdentityByEmail(ctx, "Alice@Example.com")
	if err != nil {
		t.Fatalf("GetIdentityByEmail: %v", err)
	}
	if byEmail.ID != first.ID {
		t.Fatalf("lookup returned %q, want %q", byEmail.ID, first.ID)
	}
}

func TestIdentityStoreReturnsCopies(t *testing.T) {
	store := NewIdentityStore()
	ctx := context.Background()

	created, err := store.CreateIdentity(ctx, identity.Identity{
		Username: "alicewriter", Email: "alice@example.com", PostIDs: []string{"p1"},
	})
	if err != nil {
		t.Fatalf("CreateIdentity: %v", err)
	}

	created.PostIDs[0] = "mutated"
	fresh, _ := store.GetIdentity(ctx, created.ID)
	if fresh.PostIDs[0] != "p1" {
		t.Fatal("store state mutated through a returned copy")
	}
}

func TestPostStoreFiltering(t *testing.T) {
	store := NewPostStore()
	ctx := context.Background()

	seed := []post.Post{
		{Title: "Go Routines", Slug: "go-routines", Content: "about concurrency", Category: "Tech", AuthorID: "a1"},
		{Title: "Sourdough", Slug: "sourdough", Content: "bread and more bread", Category: "Food", AuthorID: "a2"},
		{Title: "Channels", Slug: "channels", Content: "more Concurrency", Category: "Tech", AuthorID: "a1"},
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
	if len(tech) != 2 {
		t.Fatalf("expected 2 tech posts, got %d", len(tech))
	}

	search, err := store.ListPosts(ctx, storage.PostFilter{SearchTerm: "CONCURRENCY"})
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if len(search) != 2 {
		t.Fatalf("expected 2 search matches, got %d", len(search))
	}

	bySlug, err := store.ListPosts(ctx, storage.PostFilter{Slug: "sourdough"})
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if len(bySlug) != 1 || bySlug[0].Title != "Sourdough" {
		t.Fatalf("unexpected slug match %v", bySlug)
	}

	byAuthor, err := store.ListPosts(ctx, storage.PostFilter{AuthorID: "a1", Limit: 1})
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if len(byAuthor) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(byAuthor))
	}
}

func TestPostStoreTitleConflict(t *testing.T) {
	store := NewPostStore()
	ctx := context.Background()

	if _, err := store.CreatePost(ctx, post.Post{Title: "Same", Slug: "same"}); err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if _, err := store.CreatePost(ctx, post.Post{Title: "Same", Slug: "same-2"}); err != storage.ErrConflict {
		t.Fatalf("expected title conflict, got %v", err)
	}
	if _, err := store.CreatePost(ctx, post.Post{Title: "Other", Slug: "same"}); err != storage.ErrConflict {
		t.Fatalf("expected slug conflict, got %v", err)
	}
}

func TestDeleteMissingReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	if err := NewPostStore().DeletePost(ctx, "missing"); err != storage.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := NewCommentStore().DeleteComment(ctx, "missing"); err != storage.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := NewIdentityStore().DeleteIdentity(ctx, "missing"); err != storage.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
