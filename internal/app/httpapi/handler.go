// Package httpapi exposes the application services over REST.
package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	app "github.com/inkwell-labs/blog_service/internal/app"
	"github.com/inkwell-labs/blog_service/internal/app/metrics"
	authsvc "github.com/inkwell-labs/blog_service/internal/app/services/auth"
	commentsvc "github.com/inkwell-labs/blog_service/internal/app/services/comments"
	postsvc "github.com/inkwell-labs/blog_service/internal/app/services/posts"
	usersvc "github.com/inkwell-labs/blog_service/internal/app/services/users"
	"github.com/inkwell-labs/blog_service/internal/httputil"
	"github.com/inkwell-labs/blog_service/internal/middleware"
	"github.com/inkwell-labs/blog_service/pkg/logger"
)

// Options configures the HTTP surface.
type Options struct {
	Auth      *middleware.AuthMiddleware
	CORS      *middleware.CORSMiddleware
	AuthLimit *middleware.RateLimiter
	AuditMax  int
	AuditFile string
	Logger    *logger.Logger
}

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app   *app.Application
	auth  *middleware.AuthMiddleware
	audit *auditLog
	log   *logger.Logger
}

// NewHandler returns the router exposing the REST API.
func NewHandler(application *app.Application, opts Options) (http.Handler, error) {
	log := opts.Logger
	if log == nil {
		log = logger.NewDefault("httpapi")
	}

	sink, err := newFileAuditSink(opts.AuditFile)
	if err != nil {
		return nil, fmt.Errorf("open audit sink: %w", err)
	}

	h := &handler{
		app:   application,
		auth:  opts.Auth,
		audit: newAuditLog(opts.AuditMax, sink),
		log:   log,
	}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		httputil.WriteError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	requireAuth := opts.Auth.Handler
	optionalAuth := opts.Auth.Optional
	limited := func(next http.HandlerFunc) http.Handler {
		if opts.AuthLimit == nil {
			return next
		}
		return opts.AuthLimit.Handler(next)
	}

	r.Handle("/auth/signup", limited(h.signup)).Methods(http.MethodPost)
	r.Handle("/auth/login", limited(h.login)).Methods(http.MethodPost)
	r.Handle("/auth/google", limited(h.google)).Methods(http.MethodPost)
	r.Handle("/auth/logout", optionalAuth(http.HandlerFunc(h.logout))).Methods(http.MethodPost)

	r.HandleFunc("/post/posts", h.listPosts).Methods(http.MethodGet)
	r.Handle("/post/create", requireAuth(http.HandlerFunc(h.createPost))).Methods(http.MethodPost)
	r.Handle("/post/update/{id}", requireAuth(http.HandlerFunc(h.updatePost))).Methods(http.MethodPut)
	r.Handle("/post/delete/{id}", requireAuth(http.HandlerFunc(h.deletePost))).Methods(http.MethodDelete)

	r.Handle("/comment/create", requireAuth(http.HandlerFunc(h.createComment))).Methods(http.MethodPost)
	r.Handle("/comment/likeComment/{id}", requireAuth(http.HandlerFunc(h.likeComment))).Methods(http.MethodPut)
	r.Handle("/comment/update/{id}", requireAuth(http.HandlerFunc(h.updateComment))).Methods(http.MethodPut)
	r.Handle("/comment/delete/{id}", requireAuth(http.HandlerFunc(h.deleteComment))).Methods(http.MethodDelete)
	r.HandleFunc("/comment/comments", h.listComments).Methods(http.MethodGet)

	r.Handle("/user/users", requireAuth(http.HandlerFunc(h.listUsers))).Methods(http.MethodGet)
	r.Handle("/user/delete/{id}", requireAuth(http.HandlerFunc(h.deleteUser))).Methods(http.MethodDelete)
	r.Handle("/user/{id}", requireAuth(http.HandlerFunc(h.getUser))).Methods(http.MethodGet)
	r.Handle("/user/{id}", requireAuth(http.HandlerFunc(h.updateUser))).Methods(http.MethodPut)

	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.Handle("/admin/audit", requireAuth(http.HandlerFunc(h.adminAudit))).Methods(http.MethodGet)

	var root http.Handler = r
	root = h.auditMiddleware(root)
	root = metrics.InstrumentHandler(root)
	if opts.CORS != nil {
		root = opts.CORS.Handler(root)
	}
	return root, nil
}

// auditMiddleware records every request after it completes. The actor is
// resolved here rather than read from the context: route-level auth runs
// inside the router, so its context values never reach this wrapper.
func (h *handler) auditMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		actor := h.auth.Identify(r)
		resource, targetID := auditTarget(r.URL.Path)
		h.audit.add(auditEntry{
			Time:       time.Now().UTC(),
			User:       actor.ID,
			Admin:      actor.IsAdmin,
			Path:       r.URL.Path,
			Method:     r.Method,
			Resource:   resource,
			TargetID:   targetID,
			Status:     rec.status,
			RemoteAddr: r.RemoteAddr,
			UserAgent:  r.UserAgent(),
		})
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func decodeJSON(body io.Reader, v interface{}) error {
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON payload: %w", err)
	}
	return nil
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func sortAsc(r *http.Request) bool {
	return strings.EqualFold(r.URL.Query().Get("sort"), "asc")
}

func (h *handler) signup(w http.ResponseWriter, r *http.Request) {
	var in authsvc.SignupInput
	if err := decodeJSON(r.Body, &in); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if _, err := h.app.Auth.Signup(r.Context(), in); err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	metrics.RecordSignup()
	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Signup successful",
	})
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var in authsvc.LoginInput
	if err := decodeJSON(r.Body, &in); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	session, err := h.app.Auth.Login(r.Context(), in)
	if err != nil {
		metrics.RecordLogin("failure")
		httputil.WriteServiceError(w, err)
		return
	}
	metrics.RecordLogin("success")
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user":    session.Identity,
		"token":   session.Token,
		"userId":  session.Identity.ID,
		"message": "Login successful",
	})
}

func (h *handler) google(w http.ResponseWriter, r *http.Request) {
	var in authsvc.GoogleInput
	if err := decodeJSON(r.Body, &in); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	session, err := h.app.Auth.GoogleLogin(r.Context(), in)
	if err != nil {
		metrics.RecordLogin("failure")
		httputil.WriteServiceError(w, err)
		return
	}
	metrics.RecordLogin("success")
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user":    session.Identity,
		"token":   session.Token,
		"userId":  session.Identity.ID,
		"message": "Login successful",
	})
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Auth.Logout(r.Context(), middleware.GetRawToken(r.Context())); err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": "User has been logged out",
	})
}

func (h *handler) listPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.app.Posts.List(r.Context(), postsvc.ListInput{
		ID:         q.Get("postId"),
		AuthorID:   q.Get("userId"),
		Slug:       q.Get("slug"),
		Category:   q.Get("category"),
		SearchTerm: q.Get("searchTerm"),
		StartIndex: queryInt(r, "startIndex", 0),
		Limit:      queryInt(r, "limit", 0),
		SortAsc:    sortAsc(r),
	})
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"posts":          result.Posts,
		"totalPosts":     result.TotalPosts,
		"lastMonthPosts": result.LastMonthPosts,
		"message":        "Posts retrieved successfully",
	})
}

func (h *handler) createPost(w http.ResponseWriter, r *http.Request) {
	var in postsvc.CreateInput
	if err := decodeJSON(r.Body, &in); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	created, err := h.app.Posts.Create(r.Context(), middleware.GetActor(r.Context()), in)
	metrics.RecordPostWrite("create", err == nil)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"post":    created,
		"message": "Post created successfully",
	})
}

func (h *handler) updatePost(w http.ResponseWriter, r *http.Request) {
	var in postsvc.UpdateInput
	if err := decodeJSON(r.Body, &in); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	updated, err := h.app.Posts.Update(r.Context(), middleware.GetActor(r.Context()), mux.Vars(r)["id"], in)
	metrics.RecordPostWrite("update", err == nil)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"post":    updated,
		"message": "Post updated successfully",
	})
}

func (h *handler) deletePost(w http.ResponseWriter, r *http.Request) {
	err := h.app.Posts.Delete(r.Context(), middleware.GetActor(r.Context()), mux.Vars(r)["id"])
	metrics.RecordPostWrite("delete", err == nil)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": "The post has been deleted",
	})
}

func (h *handler) createComment(w http.ResponseWriter, r *http.Request) {
	var in commentsvc.CreateInput
	if err := decodeJSON(r.Body, &in); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	created, err := h.app.Comments.Create(r.Context(), middleware.GetActor(r.Context()), in)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"comment": created,
		"message": "Comment created successfully",
	})
}

func (h *handler) likeComment(w http.ResponseWriter, r *http.Request) {
	updated, err := h.app.Comments.ToggleLike(r.Context(), middleware.GetActor(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"comment": updated,
		"message": "Comment like toggled",
	})
}

func (h *handler) updateComment(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Content string `json:"content"`
	}
	if err := decodeJSON(r.Body, &in); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	updated, err := h.app.Comments.Update(r.Context(), middleware.GetActor(r.Context()), mux.Vars(r)["id"], in.Content)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"comment": updated,
		"message": "Comment updated successfully",
	})
}

func (h *handler) deleteComment(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Comments.Delete(r.Context(), middleware.GetActor(r.Context()), mux.Vars(r)["id"]); err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Comment has been deleted",
	})
}

func (h *handler) listComments(w http.ResponseWriter, r *http.Request) {
	result, err := h.app.Comments.List(r.Context(), commentsvc.ListInput{
		PostID:     r.URL.Query().Get("postId"),
		StartIndex: queryInt(r, "startIndex", 0),
		Limit:      queryInt(r, "limit", 0),
	})
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"comments":          result.Comments,
		"totalComments":     result.TotalComments,
		"lastMonthComments": result.LastMonthComments,
		"message":           "Comments retrieved successfully",
	})
}

func (h *handler) listUsers(w http.ResponseWriter, r *http.Request) {
	result, err := h.app.Users.List(r.Context(), middleware.GetActor(r.Context()), usersvc.ListInput{
		StartIndex: queryInt(r, "startIndex", 0),
		Limit:      queryInt(r, "limit", 0),
		SortAsc:    sortAsc(r),
	})
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"users":          result.Users,
		"totalUsers":     result.TotalUsers,
		"lastMonthUsers": result.LastMonthUsers,
		"message":        "Users retrieved successfully",
	})
}

func (h *handler) getUser(w http.ResponseWriter, r *http.Request) {
	ident, err := h.app.Users.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user":    ident,
		"message": "User retrieved successfully",
	})
}

func (h *handler) updateUser(w http.ResponseWriter, r *http.Request) {
	var in usersvc.UpdateInput
	if err := decodeJSON(r.Body, &in); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	updated, err := h.app.Users.Update(r.Context(), middleware.GetActor(r.Context()), mux.Vars(r)["id"], in)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user":    updated,
		"message": "User updated successfully",
	})
}

func (h *handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Users.Delete(r.Context(), middleware.GetActor(r.Context()), mux.Vars(r)["id"]); err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": "User has been deleted",
	})
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
	})
}

func (h *handler) adminAudit(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())
	if !actor.IsAdmin {
		httputil.WriteError(w, http.StatusForbidden, "You are not allowed to view the audit log")
		return
	}
	limit := queryInt(r, "limit", 0)
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"entries": h.audit.listLimit(limit),
		"message": "Audit entries retrieved successfully",
	})
}
