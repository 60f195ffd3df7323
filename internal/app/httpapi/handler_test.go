package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/inkwell-labs/blog_service/internal/middleware"
	"github.com/inkwell-labs/blog_service/pkg/testutil"
)

func newTestHandler(t *testing.T) (http.Handler, *testFixture) {
	t.Helper()
	application, stores, tokens := testutil.NewApplication(t)

	handler, err := NewHandler(application, Options{
		Auth: middleware.NewAuthMiddleware(tokens, nil, nil),
		CORS: middleware.NewCORSMiddleware([]string{"*"}),
	})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	admin := testutil.SeedIdentity(t, stores.Identities, "adminuser1", "admin@example.com", "hunter22", true)
	reader := testutil.SeedIdentity(t, stores.Identities, "readeruser", "reader@example.com", "hunter22", false)

	return handler, &testFixture{
		adminToken:  testutil.Token(t, tokens, admin),
		readerToken: testutil.Token(t, tokens, reader),
		adminID:     admin.ID,
		readerID:    reader.ID,
	}
}

type testFixture struct {
	adminToken  string
	readerToken string
	adminID     string
	readerID    string
}

func do(t *testing.T, handler http.Handler, method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	payload := map[string]interface{}{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, payload
}

func TestSignupLoginFlow(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec, _ := do(t, handler, http.MethodPost, "/auth/signup", "", map[string]string{
		"username": "alicewriter",
		"email":    "alice@example.com",
		"password": "hunter22",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec, payload := do(t, handler, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "hunter22",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	if payload["token"] == "" || payload["token"] == nil {
		t.Fatal("expected a token in the login response")
	}
	user, ok := payload["user"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected user object, got %v", payload["user"])
	}
	if _, leaked := user["passwordHash"]; leaked {
		t.Fatal("password hash leaked in login response")
	}
	if _, leaked := user["password"]; leaked {
		t.Fatal("password leaked in login response")
	}
}

func TestLoginErrorEnvelope(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec, payload := do(t, handler, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "nobody@example.com",
		"password": "hunter22",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if payload["success"] != false {
		t.Fatalf("expected success=false, got %v", payload["success"])
	}
	if payload["statusCode"] != float64(http.StatusNotFound) {
		t.Fatalf("expected statusCode 404, got %v", payload["statusCode"])
	}
	if payload["message"] != "User not found!" {
		t.Fatalf("unexpected message %q", payload["message"])
	}
}

func TestPostLifecycle(t *testing.T) {
	handler, f := newTestHandler(t)

	// Unauthenticated create is rejected outright.
	rec, _ := do(t, handler, http.MethodPost, "/post/create", "", map[string]string{
		"title": "First Post", "content": "body",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous create status = %d", rec.Code)
	}

	rec, payload := do(t, handler, http.MethodPost, "/post/create", f.adminToken, map[string]string{
		"title": "First Post", "content": "body",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	created := payload["post"].(map[string]interface{})
	postID := created["id"].(string)
	if created["slug"] != "first-post" {
		t.Fatalf("unexpected slug %v", created["slug"])
	}

	// Non-admin update is forbidden and leaves the post unchanged.
	rec, payload = do(t, handler, http.MethodPut, "/post/update/"+postID, f.readerToken, map[string]string{
		"title": "Hijacked",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("reader update status = %d", rec.Code)
	}
	if payload["message"] != "Not authorized!" {
		t.Fatalf("unexpected message %q", payload["message"])
	}

	rec, payload = do(t, handler, http.MethodGet, "/post/posts?slug=first-post", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	posts := payload["posts"].([]interface{})
	if len(posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(posts))
	}
	if posts[0].(map[string]interface{})["title"] != "First Post" {
		t.Fatal("forbidden update must not change the post")
	}
	if payload["totalPosts"] != float64(1) {
		t.Fatalf("expected totalPosts 1, got %v", payload["totalPosts"])
	}

	// Duplicate title conflicts as 400.
	rec, _ = do(t, handler, http.MethodPost, "/post/create", f.adminToken, map[string]string{
		"title": "First Post", "content": "other",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate create status = %d", rec.Code)
	}

	rec, _ = do(t, handler, http.MethodDelete, "/post/delete/"+postID, f.adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec, _ = do(t, handler, http.MethodDelete, "/post/delete/"+postID, f.adminToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d", rec.Code)
	}
}

func TestCommentLifecycle(t *testing.T) {
	handler, f := newTestHandler(t)

	_, payload := do(t, handler, http.MethodPost, "/post/create", f.adminToken, map[string]string{
		"title": "Commented Post", "content": "body",
	})
	postID := payload["post"].(map[string]interface{})["id"].(string)

	rec, payload := do(t, handler, http.MethodPost, "/comment/create", f.readerToken, map[string]string{
		"content": "great read", "postId": postID, "userId": f.readerID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("comment create status = %d, body %s", rec.Code, rec.Body.String())
	}
	commentID := payload["comment"].(map[string]interface{})["id"].(string)

	// Claiming another author is forbidden.
	rec, _ = do(t, handler, http.MethodPost, "/comment/create", f.readerToken, map[string]string{
		"content": "spoofed", "postId": postID, "userId": f.adminID,
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("spoofed author status = %d", rec.Code)
	}

	rec, payload = do(t, handler, http.MethodPut, "/comment/likeComment/"+commentID, f.adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("like status = %d", rec.Code)
	}
	liked := payload["comment"].(map[string]interface{})
	if liked["numberOfLikes"] != float64(1) {
		t.Fatalf("expected 1 like, got %v", liked["numberOfLikes"])
	}

	rec, payload = do(t, handler, http.MethodPut, "/comment/likeComment/"+commentID, f.adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unlike status = %d", rec.Code)
	}
	if payload["comment"].(map[string]interface{})["numberOfLikes"] != float64(0) {
		t.Fatal("expected the second toggle to remove the like")
	}

	rec, _ = do(t, handler, http.MethodDelete, "/comment/delete/"+commentID, f.readerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec, _ = do(t, handler, http.MethodDelete, "/comment/delete/"+commentID, f.readerToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d", rec.Code)
	}
}

func TestUserRoutes(t *testing.T) {
	handler, f := newTestHandler(t)

	rec, _ := do(t, handler, http.MethodGet, "/user/users", f.readerToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("reader listing status = %d", rec.Code)
	}

	rec, payload := do(t, handler, http.MethodGet, "/user/users", f.adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin listing status = %d", rec.Code)
	}
	users := payload["users"].([]interface{})
	for _, u := range users {
		if u.(map[string]interface{})["id"] == f.adminID {
			t.Fatal("listing must exclude the caller")
		}
	}

	rec, payload = do(t, handler, http.MethodGet, "/user/"+f.readerID, f.readerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get user status = %d", rec.Code)
	}
	if payload["user"].(map[string]interface{})["username"] != "readeruser" {
		t.Fatalf("unexpected user payload %v", payload["user"])
	}

	rec, _ = do(t, handler, http.MethodDelete, "/user/delete/"+f.adminID, f.readerToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("stranger delete status = %d", rec.Code)
	}
}

func TestOpsEndpoints(t *testing.T) {
	handler, f := newTestHandler(t)

	rec, _ := do(t, handler, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}

	rec, _ = do(t, handler, http.MethodGet, "/admin/audit", f.readerToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("reader audit status = %d", rec.Code)
	}

	rec, payload := do(t, handler, http.MethodGet, "/admin/audit", f.adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin audit status = %d", rec.Code)
	}
	entries, ok := payload["entries"].([]interface{})
	if !ok || len(entries) == 0 {
		t.Fatalf("expected audit entries in response, got %v", payload["entries"])
	}
	// The forbidden reader attempt above must be on record.
	var sawReaderAttempt bool
	for _, e := range entries {
		entry := e.(map[string]interface{})
		if entry["user"] == f.readerID && entry["status"] == float64(http.StatusForbidden) {
			sawReaderAttempt = true
		}
	}
	if !sawReaderAttempt {
		t.Fatal("expected the forbidden audit read to be recorded")
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	metricsRec := httptest.NewRecorder()
	handler.ServeHTTP(metricsRec, req)
	if metricsRec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", metricsRec.Code)
	}
}
