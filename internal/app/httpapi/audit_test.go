package httpapi

import (
	"testing"
	"time"
)

func TestAuditTarget(t *testing.T) {
	tests := []struct {
		path     string
		resource string
		targetID string
	}{
		{"/auth/login", "auth", ""},
		{"/post/posts", "post", ""},
		{"/post/delete/p1", "post", "p1"},
		{"/comment/likeComment/c1", "comment", "c1"},
		{"/user/users", "user", ""},
		{"/user/u1", "user", "u1"},
		{"/user/delete/u1", "user", "u1"},
		{"/healthz", "", ""},
		{"/", "", ""},
	}
	for _, tc := range tests {
		resource, targetID := auditTarget(tc.path)
		if resource != tc.resource || targetID != tc.targetID {
			t.Errorf("auditTarget(%q) = (%q, %q), want (%q, %q)",
				tc.path, resource, targetID, tc.resource, tc.targetID)
		}
	}
}

func TestAuditLogTrimsToMax(t *testing.T) {
	log := newAuditLog(3, nil)
	for i := 0; i < 5; i++ {
		log.add(auditEntry{Time: time.Now().UTC(), Status: 200 + i})
	}
	entries := log.list()
	if len(entries) != 3 {
		t.Fatalf("expected 3 retained entries, got %d", len(entries))
	}
	if entries[0].Status != 202 {
		t.Fatalf("expected oldest retained entry to be 202, got %d", entries[0].Status)
	}

	limited := log.listLimit(2)
	if len(limited) != 2 || limited[1].Status != 204 {
		t.Fatalf("unexpected limited view %v", limited)
	}
}
