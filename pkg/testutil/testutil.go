// Package testutil provides helpers for exercising the application in tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	app "github.com/inkwell-labs/blog_service/internal/app"
	"github.com/inkwell-labs/blog_service/internal/app/domain/identity"
	"github.com/inkwell-labs/blog_service/internal/app/storage"
	"github.com/inkwell-labs/blog_service/internal/app/storage/memory"
	"github.com/inkwell-labs/blog_service/internal/token"
	"github.com/inkwell-labs/blog_service/pkg/logger"
)

// TestSecret signs tokens in tests.
const TestSecret = "test-secret"

// TestBcryptCost keeps hashing fast in tests.
const TestBcryptCost = bcrypt.MinCost

// NewTokenManager returns a token manager with a short test TTL.
func NewTokenManager() *token.Manager {
	return token.NewManager(TestSecret, time.Hour)
}

// NewApplication builds an application on fresh in-memory stores.
func NewApplication(t *testing.T) (*app.Application, app.Stores, *token.Manager) {
	t.Helper()
	stores := app.Stores{
		Identities: memory.NewIdentityStore(),
		Posts:      memory.NewPostStore(),
		Comments:   memory.NewCommentStore(),
	}
	tokens := NewTokenManager()
	application, err := app.New(stores, app.Options{Tokens: tokens, BcryptCost: TestBcryptCost}, logger.NewDefault("test"))
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	return application, stores, tokens
}

// SeedIdentity inserts an identity with the given password and returns it.
func SeedIdentity(t *testing.T, store storage.IdentityStore, username, email, password string, isAdmin bool) identity.Identity {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), TestBcryptCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	ident, err := store.CreateIdentity(context.Background(), identity.Identity{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		ProfileImage: identity.DefaultProfileImage,
		IsAdmin:      isAdmin,
		PostIDs:      []string{},
		CommentIDs:   []string{},
	})
	if err != nil {
		t.Fatalf("seed identity: %v", err)
	}
	return ident
}

// Token signs a session token for the identity.
func Token(t *testing.T, tokens *token.Manager, ident identity.Identity) string {
	t.Helper()
	signed, err := tokens.Sign(ident.ID, ident.Email, ident.IsAdmin)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}
