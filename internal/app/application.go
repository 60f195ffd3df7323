package app

import (
	"context"
	"fmt"

	authsvc "github.com/inkwell-labs/blog_service/internal/app/services/auth"
	commentsvc "github.com/inkwell-labs/blog_service/internal/app/services/comments"
	postsvc "github.com/inkwell-labs/blog_service/internal/app/services/posts"
	usersvc "github.com/inkwell-labs/blog_service/internal/app/services/users"
	"github.com/inkwell-labs/blog_service/internal/app/storage"
	"github.com/inkwell-labs/blog_service/internal/app/storage/memory"
	"github.com/inkwell-labs/blog_service/internal/app/system"
	"github.com/inkwell-labs/blog_service/internal/token"
	"github.com/inkwell-labs/blog_service/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Identities storage.IdentityStore
	Posts      storage.PostStore
	Comments   storage.CommentStore
}

// Options carries the non-store collaborators.
type Options struct {
	Tokens     *token.Manager
	Denylist   token.Denylist
	BcryptCost int
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Auth     *authsvc.Service
	Posts    *postsvc.Service
	Comments *commentsvc.Service
	Users    *usersvc.Service
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}
	if opts.Tokens == nil {
		return nil, fmt.Errorf("token manager is required")
	}

	if stores.Identities == nil {
		stores.Identities = memory.NewIdentityStore()
	}
	if stores.Posts == nil {
		stores.Posts = memory.NewPostStore()
	}
	if stores.Comments == nil {
		stores.Comments = memory.NewCommentStore()
	}

	manager := system.NewManager()

	authService := authsvc.New(stores.Identities, opts.Tokens, opts.Denylist, opts.BcryptCost, log)
	postService := postsvc.New(stores.Posts, stores.Comments, stores.Identities, log)
	commentService := commentsvc.New(stores.Comments, stores.Posts, stores.Identities, log)
	userService := usersvc.New(stores.Identities, opts.BcryptCost, log)

	for _, name := range []string{"auth", "posts", "comments", "users"} {
		if err := manager.Register(system.NoopService{ServiceName: name}); err != nil {
			return nil, fmt.Errorf("register %s service: %w", name, err)
		}
	}

	return &Application{
		manager:  manager,
		log:      log,
		Auth:     authService,
		Posts:    postService,
		Comments: commentService,
		Users:    userService,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
