// Package users implements the user resource service: admin listings,
// profile reads, and self-or-admin mutations.
package users

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/inkwell-labs/blog_service/internal/app/domain/identity"
	"github.com/inkwell-labs/blog_service/internal/app/services"
	"github.com/inkwell-labs/blog_service/internal/app/services/auth"
	"github.com/inkwell-labs/blog_service/internal/app/storage"
	errs "github.com/inkwell-labs/blog_service/internal/errors"
	"github.com/inkwell-labs/blog_service/pkg/logger"
)

// DefaultListLimit caps unbounded user listings.
const DefaultListLimit = 9

// Service owns user business rules.
type Service struct {
	identities storage.IdentityStore
	bcryptCost int
	logger     *logger.Logger
}

// New creates the user service. A nil logger falls back to a default one.
func New(identities storage.IdentityStore, bcryptCost int, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("user-service")
	}
	if bcryptCost == 0 {
		bcryptCost = 12
	}
	return &Service{identities: identities, bcryptCost: bcryptCost, logger: log}
}

// UpdateInput carries the update request fields. Empty fields are left as is.
type UpdateInput struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	ProfileImage string `json:"profileImage"`
}

// ListInput mirrors the admin listing query parameters.
type ListInput struct {
	StartIndex int
	Limit      int
	SortAsc    bool
}

// ListResult is the listing payload with the dashboard totals.
type ListResult struct {
	Users          []identity.Identity
	TotalUsers     int
	LastMonthUsers int
}

// List returns identities other than the caller. Admin only.
func (s *Service) List(ctx context.Context, actor services.Actor, in ListInput) (ListResult, error) {
	if !actor.IsAdmin {
		return ListResult{}, errs.Forbidden("You are not allowed to see all users")
	}
	limit := in.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	users, err := s.identities.ListIdentities(ctx, storage.IdentityFilter{
		ExcludeID:  actor.ID,
		StartIndex: in.StartIndex,
		Limit:      limit,
		SortAsc:    in.SortAsc,
	})
	if err != nil {
		return ListResult{}, errs.Internal("failed to list users", err)
	}
	total, err := s.identities.CountIdentities(ctx)
	if err != nil {
		return ListResult{}, errs.Internal("failed to count users", err)
	}
	lastMonth, err := s.identities.CountIdentitiesSince(ctx, time.Now().AddDate(0, -1, 0))
	if err != nil {
		return ListResult{}, errs.Internal("failed to count recent users", err)
	}
	return ListResult{Users: users, TotalUsers: total, LastMonthUsers: lastMonth}, nil
}

// Get returns a single identity.
func (s *Service) Get(ctx context.Context, id string) (identity.Identity, error) {
	ident, err := s.identities.GetIdentity(ctx, id)
	if err != nil {
		if err == storage.ErrNotFound {
			return identity.Identity{}, errs.NotFound("User not found")
		}
		return identity.Identity{}, errs.Internal("failed to load user", err)
	}
	return ident, nil
}

// Update edits an identity. Callers may edit themselves; admins may edit
// anyone. A provided password is validated and re-hashed.
func (s *Service) Update(ctx context.Context, actor services.Actor, id string, in UpdateInput) (identity.Identity, error) {
	if !actor.Is(id) && !actor.IsAdmin {
		return identity.Identity{}, errs.Forbidden("You are not allowed to update this user")
	}
	ident, err := s.identities.GetIdentity(ctx, id)
	if err != nil {
		if err == storage.ErrNotFound {
			return identity.Identity{}, errs.NotFound("User not found")
		}
		return identity.Identity{}, errs.Internal("failed to load user", err)
	}

	if username := strings.TrimSpace(in.Username); username != "" {
		if err := auth.ValidateUsername(username); err != nil {
			return identity.Identity{}, err
		}
		ident.Username = username
	}
	if email := strings.TrimSpace(in.Email); email != "" {
		if err := auth.ValidateEmail(email); err != nil {
			return identity.Identity{}, err
		}
		ident.Email = email
	}
	if in.Password != "" {
		if err := auth.ValidatePassword(in.Password); err != nil {
			return identity.Identity{}, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
		if err != nil {
			return identity.Identity{}, errs.Internal("failed to hash password", err)
		}
		ident.PasswordHash = string(hash)
	}
	if image := strings.TrimSpace(in.ProfileImage); image != "" {
		ident.ProfileImage = image
	}

	updated, err := s.identities.UpdateIdentity(ctx, ident)
	if err != nil {
		if err == storage.ErrConflict {
			return identity.Identity{}, errs.Conflict("Username or email already in use")
		}
		return identity.Identity{}, errs.Internal("failed to update user", err)
	}
	return updated, nil
}

// Delete removes an identity. Callers may delete themselves; admins may
// delete anyone.
func (s *Service) Delete(ctx context.Context, actor services.Actor, id string) error {
	if !actor.Is(id) && !actor.IsAdmin {
		return errs.Forbidden("You are not allowed to delete this user")
	}
	if err := s.identities.DeleteIdentity(ctx, id); err != nil {
		if err == storage.ErrNotFound {
			return errs.NotFound("User not found")
		}
		return errs.Internal("failed to delete user", err)
	}
	s.logger.WithField("user_id", id).Info("user deleted")
	return nil
}
