// Package auth implements credential issuance: signup, login, federated
// login, and logout.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/inkwell-labs/blog_service/internal/app/domain/identity"
	"github.com/inkwell-labs/blog_service/internal/app/storage"
	errs "github.com/inkwell-labs/blog_service/internal/errors"
	"github.com/inkwell-labs/blog_service/internal/token"
	"github.com/inkwell-labs/blog_service/pkg/logger"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-z0-9]+$`)
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// Service issues sessions against the identity store.
type Service struct {
	identities storage.IdentityStore
	tokens     *token.Manager
	denylist   token.Denylist
	bcryptCost int
	logger     *logger.Logger
}

// New creates the auth service. denylist may be nil, which disables forced
// logout. A nil logger falls back to a default one.
func New(identities storage.IdentityStore, tokens *token.Manager, denylist token.Denylist, bcryptCost int, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("auth-service")
	}
	if bcryptCost == 0 {
		bcryptCost = 12
	}
	return &Service{
		identities: identities,
		tokens:     tokens,
		denylist:   denylist,
		bcryptCost: bcryptCost,
		logger:     log,
	}
}

// SignupInput carries the signup request fields.
type SignupInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginInput carries the login request fields.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// GoogleInput carries the federated login fields.
type GoogleInput struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	ProfileImage string `json:"googlePhotoUrl"`
}

// Session is the result of a successful login.
type Session struct {
	Identity identity.Identity
	Token    string
}

// ValidateUsername checks the username rules and returns the first violation.
func ValidateUsername(username string) error {
	if len(username) < 7 || len(username) > 20 {
		return errs.Validation("Username must be between 7 and 20 characters")
	}
	if strings.Contains(username, " ") {
		return errs.Validation("Username cannot contain spaces")
	}
	if username != strings.ToLower(username) {
		return errs.Validation("Username must be lowercase")
	}
	if !usernamePattern.MatchString(username) {
		return errs.Validation("Username can only contain letters and numbers")
	}
	return nil
}

// ValidatePassword checks the password rules.
func ValidatePassword(password string) error {
	if len(password) < 6 {
		return errs.Validation("Password must be at least 6 characters")
	}
	return nil
}

// ValidateEmail checks the address shape shared by signup and profile
// updates.
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return errs.Validation("Invalid email address")
	}
	return nil
}

// Signup registers a new identity. The response deliberately carries no
// token; the caller logs in afterwards.
func (s *Service) Signup(ctx context.Context, in SignupInput) (identity.Identity, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if username == "" || email == "" || in.Password == "" {
		return identity.Identity{}, errs.BadRequest("All fields are required")
	}
	if err := ValidateUsername(username); err != nil {
		return identity.Identity{}, err
	}
	if err := ValidateEmail(email); err != nil {
		return identity.Identity{}, err
	}
	if err := ValidatePassword(in.Password); err != nil {
		return identity.Identity{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return identity.Identity{}, errs.Internal("failed to hash password", err)
	}

	created, err := s.identities.CreateIdentity(ctx, identity.Identity{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		ProfileImage: identity.DefaultProfileImage,
		PostIDs:      []string{},
		CommentIDs:   []string{},
	})
	if err != nil {
		if err == storage.ErrConflict {
			return identity.Identity{}, errs.Conflict("Username or email already in use")
		}
		return identity.Identity{}, errs.Internal("failed to create user", err)
	}

	s.logger.WithField("user_id", created.ID).Info("user signed up")
	return created, nil
}

// Login verifies credentials and issues a session token.
func (s *Service) Login(ctx context.Context, in LoginInput) (Session, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return Session{}, errs.BadRequest("All fields are required")
	}

	ident, err := s.identities.GetIdentityByEmail(ctx, email)
	if err != nil {
		if err == storage.ErrNotFound {
			return Session{}, errs.NotFound("User not found!")
		}
		return Session{}, errs.Internal("failed to look up user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(ident.PasswordHash), []byte(in.Password)); err != nil {
		return Session{}, errs.Unauthenticated("Invalid password!")
	}

	return s.issue(ident)
}

// GoogleLogin signs in an existing identity by email or provisions a new one.
// Provisioned identities get an unguessable random password, so the account
// is only reachable through federated login until the password is changed.
func (s *Service) GoogleLogin(ctx context.Context, in GoogleInput) (Session, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return Session{}, errs.BadRequest("All fields are required")
	}

	ident, err := s.identities.GetIdentityByEmail(ctx, email)
	if err == nil {
		return s.issue(ident)
	}
	if err != storage.ErrNotFound {
		return Session{}, errs.Internal("failed to look up user", err)
	}

	password, err := randomPassword()
	if err != nil {
		return Session{}, errs.Internal("failed to generate password", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return Session{}, errs.Internal("failed to hash password", err)
	}

	username, err := deriveUsername(in.Name)
	if err != nil {
		return Session{}, errs.Internal("failed to derive username", err)
	}
	profileImage := in.ProfileImage
	if profileImage == "" {
		profileImage = identity.DefaultProfileImage
	}

	created, err := s.identities.CreateIdentity(ctx, identity.Identity{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		ProfileImage: profileImage,
		PostIDs:      []string{},
		CommentIDs:   []string{},
	})
	if err != nil {
		if err == storage.ErrConflict {
			return Session{}, errs.Conflict("Username or email already in use")
		}
		return Session{}, errs.Internal("failed to create user", err)
	}

	s.logger.WithField("user_id", created.ID).Info("federated user provisioned")
	return s.issue(created)
}

// Logout revokes the presented token when a denylist is configured. Without
// one, sessions end only by expiry and logout is an acknowledgement.
func (s *Service) Logout(ctx context.Context, rawToken string) error {
	if s.denylist == nil || rawToken == "" {
		return nil
	}
	claims, err := s.tokens.Parse(rawToken)
	if err != nil {
		// Expired or garbage tokens need no revocation.
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.denylist.Revoke(ctx, token.Hash(rawToken), ttl); err != nil {
		return errs.Internal("failed to revoke session", err)
	}
	s.logger.WithField("user_id", claims.UserID).Info("session revoked")
	return nil
}

func (s *Service) issue(ident identity.Identity) (Session, error) {
	signed, err := s.tokens.Sign(ident.ID, ident.Email, ident.IsAdmin)
	if err != nil {
		return Session{}, errs.Internal("failed to sign token", err)
	}
	return Session{Identity: ident, Token: signed}, nil
}

func randomPassword() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// deriveUsername lowercases the display name, strips spaces, and appends four
// random digits to dodge collisions.
func deriveUsername(name string) (string, error) {
	base := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "")
	if base == "" {
		base = "user"
	}
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", base, n.Int64()), nil
}
