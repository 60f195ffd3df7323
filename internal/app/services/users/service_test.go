package users

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/inkwell-labs/blog_service/internal/app/domain/identity"
	"github.com/inkwell-labs/blog_service/internal/app/services"
	"github.com/inkwell-labs/blog_service/internal/app/storage/memory"
	errs "github.com/inkwell-labs/blog_service/internal/errors"
)

func seed(t *testing.T, store *memory.IdentityStore, username, email string, isAdmin bool) identity.Identity {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	ident, err := store.CreateIdentity(context.Background(), identity.Identity{
		Username: username, Email: email, PasswordHash: string(hash), IsAdmin: isAdmin,
		PostIDs: []string{}, CommentIDs: []string{},
	})
	if err != nil {
		t.Fatalf("seed %s: %v", username, err)
	}
	return ident
}

func actor(ident identity.Identity) services.Actor {
	return services.Actor{ID: ident.ID, Email: ident.Email, IsAdmin: ident.IsAdmin}
}

func TestListAdminOnlyAndExcludesCaller(t *testing.T) {
	store := memory.NewIdentityStore()
	svc := New(store, bcrypt.MinCost, nil)
	ctx := context.Background()

	admin := seed(t, store, "adminuser1", "admin@example.com", true)
	alice := seed(t, store, "alicewriter", "alice@example.com", false)
	seed(t, store, "bobwriter1", "bob@example.com", false)

	if _, err := svc.List(ctx, actor(alice), ListInput{}); errs.Status(err) != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %v", err)
	}

	result, err := svc.List(ctx, actor(admin), ListInput{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(result.Users) != 2 {
		t.Fatalf("expected caller excluded, got %d users", len(result.Users))
	}
	for _, u := range result.Users {
		if u.ID == admin.ID {
			t.Fatal("listing must not contain the caller")
		}
	}
	if result.TotalUsers != 3 {
		t.Fatalf("expected total 3, got %d", result.TotalUsers)
	}
}

func TestListDefaultLimit(t *testing.T) {
	store := memory.NewIdentityStore()
	svc := New(store, bcrypt.MinCost, nil)
	ctx := context.Background()

	admin := seed(t, store, "adminuser1", "admin@example.com", true)
	for i := 0; i < 12; i++ {
		seed(t, store, fmt.Sprintf("reader%04d", i), fmt.Sprintf("reader%d@example.com", i), false)
	}

	result, err := svc.List(ctx, actor(admin), ListInput{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(result.Users) != DefaultListLimit {
		t.Fatalf("expected default limit %d, got %d users", DefaultListLimit, len(result.Users))
	}
	if result.TotalUsers != 13 {
		t.Fatalf("expected total 13, got %d", result.TotalUsers)
	}

	result, err = svc.List(ctx, actor(admin), ListInput{Limit: 3})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(result.Users) != 3 {
		t.Fatalf("expected explicit limit 3, got %d users", len(result.Users))
	}
}

func TestUpdateSelfRehashesPassword(t *testing.T) {
	store := memory.NewIdentityStore()
	svc := New(store, bcrypt.MinCost, nil)
	ctx := context.Background()

	alice := seed(t, store, "alicewriter", "alice@example.com", false)

	updated, err := svc.Update(ctx, actor(alice), alice.ID, UpdateInput{Password: "newpassword"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.PasswordHash == alice.PasswordHash {
		t.Fatal("expected password hash to change")
	}
	stored, _ := store.GetIdentity(ctx, alice.ID)
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("newpassword")); err != nil {
		t.Fatalf("new password does not verify: %v", err)
	}
}

func TestUpdateValidatesUsername(t *testing.T) {
	store := memory.NewIdentityStore()
	svc := New(store, bcrypt.MinCost, nil)

	alice := seed(t, store, "alicewriter", "alice@example.com", false)

	_, err := svc.Update(context.Background(), actor(alice), alice.ID, UpdateInput{Username: "Bad Name"})
	se := errs.GetServiceError(err)
	if se == nil || se.HTTPStatus != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %v", err)
	}
}

func TestUpdateValidatesEmail(t *testing.T) {
	store := memory.NewIdentityStore()
	svc := New(store, bcrypt.MinCost, nil)
	ctx := context.Background()

	alice := seed(t, store, "alicewriter", "alice@example.com", false)

	_, err := svc.Update(ctx, actor(alice), alice.ID, UpdateInput{Email: "not-an-email"})
	se := errs.GetServiceError(err)
	if se == nil || se.HTTPStatus != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %v", err)
	}
	stored, _ := store.GetIdentity(ctx, alice.ID)
	if stored.Email != "alice@example.com" {
		t.Fatalf("malformed email persisted: %q", stored.Email)
	}

	updated, err := svc.Update(ctx, actor(alice), alice.ID, UpdateInput{Email: "alice@new.example.com"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Email != "alice@new.example.com" {
		t.Fatalf("expected email change, got %q", updated.Email)
	}
}

func TestUpdateForbiddenForStranger(t *testing.T) {
	store := memory.NewIdentityStore()
	svc := New(store, bcrypt.MinCost, nil)

	alice := seed(t, store, "alicewriter", "alice@example.com", false)
	bob := seed(t, store, "bobwriter1", "bob@example.com", false)

	if _, err := svc.Update(context.Background(), actor(bob), alice.ID, UpdateInput{Username: "hijacker1"}); errs.Status(err) != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
}

func TestAdminMayUpdateAnyone(t *testing.T) {
	store := memory.NewIdentityStore()
	svc := New(store, bcrypt.MinCost, nil)

	admin := seed(t, store, "adminuser1", "admin@example.com", true)
	alice := seed(t, store, "alicewriter", "alice@example.com", false)

	updated, err := svc.Update(context.Background(), actor(admin), alice.ID, UpdateInput{Username: "renameduser"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Username != "renameduser" {
		t.Fatalf("expected rename, got %q", updated.Username)
	}
}

func TestDeleteSelfOrAdmin(t *testing.T) {
	store := memory.NewIdentityStore()
	svc := New(store, bcrypt.MinCost, nil)
	ctx := context.Background()

	admin := seed(t, store, "adminuser1", "admin@example.com", true)
	alice := seed(t, store, "alicewriter", "alice@example.com", false)
	bob := seed(t, store, "bobwriter1", "bob@example.com", false)

	if err := svc.Delete(ctx, actor(bob), alice.ID); errs.Status(err) != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
	if err := svc.Delete(ctx, actor(alice), alice.ID); err != nil {
		t.Fatalf("self delete: %v", err)
	}
	if err := svc.Delete(ctx, actor(admin), bob.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if err := svc.Delete(ctx, actor(admin), bob.ID); errs.Status(err) != http.StatusNotFound {
		t.Fatalf("expected 404 on repeat delete, got %v", err)
	}
}
