// Package middleware provides HTTP middleware for the blog service.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/inkwell-labs/blog_service/internal/app/services"
	errs "github.com/inkwell-labs/blog_service/internal/errors"
	"github.com/inkwell-labs/blog_service/internal/httputil"
	"github.com/inkwell-labs/blog_service/internal/token"
	"github.com/inkwell-labs/blog_service/pkg/logger"
)

type contextKey string

const (
	actorKey contextKey = "actor"
	tokenKey contextKey = "rawToken"
)

// AuthMiddleware validates Bearer session tokens and attaches the caller's
// identity to the request context.
type AuthMiddleware struct {
	tokens   *token.Manager
	denylist token.Denylist
	logger   *logger.Logger
}

// NewAuthMiddleware creates the session validator. denylist may be nil.
func NewAuthMiddleware(tokens *token.Manager, denylist token.Denylist, log *logger.Logger) *AuthMiddleware {
	if log == nil {
		log = logger.NewDefault("auth-middleware")
	}
	return &AuthMiddleware{tokens: tokens, denylist: denylist, logger: log}
}

// Handler rejects requests without a valid token. Expired, malformed,
// badly signed, and revoked tokens all read as unauthenticated.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, raw, err := m.authenticate(r)
		if err != nil {
			m.respondError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), actorKey, actor)
		ctx = context.WithValue(ctx, tokenKey, raw)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Optional attaches the caller's identity when a valid token is present but
// lets anonymous requests through.
func (m *AuthMiddleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, raw, err := m.authenticate(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), actorKey, actor)
		ctx = context.WithValue(ctx, tokenKey, raw)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) authenticate(r *http.Request) (services.Actor, string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return services.Actor{}, "", errs.Unauthenticated("Missing Authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return services.Actor{}, "", errs.Unauthenticated("Invalid Authorization header format")
	}
	raw := parts[1]

	claims, err := m.tokens.Parse(raw)
	if err != nil {
		return services.Actor{}, "", errs.Unauthenticated("Invalid or expired token")
	}

	if m.denylist != nil {
		revoked, err := m.denylist.IsRevoked(r.Context(), token.Hash(raw))
		if err != nil {
			m.logger.WithError(err).Warn("denylist lookup failed")
			return services.Actor{}, "", errs.Internal("failed to verify session", err)
		}
		if revoked {
			return services.Actor{}, "", errs.Unauthenticated("Session has been revoked")
		}
	}

	return services.Actor{ID: claims.UserID, Email: claims.Email, IsAdmin: claims.IsAdmin}, raw, nil
}

// Identify names the caller behind a request without enforcing the token.
// Invalid or missing credentials read as anonymous. Intended for audit
// attribution, where a bad token must not fail the request.
func (m *AuthMiddleware) Identify(r *http.Request) services.Actor {
	actor, _, err := m.authenticate(r)
	if err != nil {
		return services.Actor{}
	}
	return actor
}

func (m *AuthMiddleware) respondError(w http.ResponseWriter, r *http.Request, err error) {
	httputil.WriteServiceError(w, err)
	m.logger.WithError(err).WithFields(map[string]interface{}{
		"path":   r.URL.Path,
		"method": r.Method,
	}).Warn("authentication failed")
}

// GetActor extracts the authenticated caller from the context. The zero
// Actor means anonymous.
func GetActor(ctx context.Context) services.Actor {
	if a, ok := ctx.Value(actorKey).(services.Actor); ok {
		return a
	}
	return services.Actor{}
}

// GetRawToken returns the validated bearer token for the request, if any.
func GetRawToken(ctx context.Context) string {
	if t, ok := ctx.Value(tokenKey).(string); ok {
		return t
	}
	return ""
}
