package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"palisade/internal/domain"
)

const testBundle = `package palisade.authz

default allow = false

allow {
	input.action != "product:delete"
}

deny[msg] {
	input.action == "product:delete"
	msg := {"code": "DELETE_FORBIDDEN", "message": "delete is disabled by policy"}
}

result = {"allow": allow, "deny": deny}
`

func writeBundle(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "authz.rego")
	if err := os.WriteFile(path, []byte(testBundle), 0o600); err != nil {
		t.Fatalf("write bundle: %v", err)
	}
	return path
}

func TestEngine_AllowAndDeny(t *testing.T) {
	engine, err := NewEngineFromBundlePath(context.Background(), writeBundle(t), "test-bundle")
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	allowed, err := engine.Evaluate(context.Background(), domain.PolicyInput{
		Subject:     "user-1",
		Tenant:      "acme",
		Authorities: []string{"ROLE_MANAGER"},
		Action:      "product:create",
		Resource:    "product",
	})
	if err != nil {
		t.Fatalf("evaluate allow: %v", err)
	}
	if !allowed.Allowed || len(allowed.Deny) != 0 {
		t.Fatalf("expected allow, got %+v", allowed)
	}

	denied, err := engine.Evaluate(context.Background(), domain.PolicyInput{
		Subject:  "user-1",
		Tenant:   "acme",
		Action:   "product:delete",
		Resource: "product",
	})
	if err != nil {
		t.Fatalf("evaluate deny: %v", err)
	}
	if denied.Allowed {
		t.Fatal("expected deny")
	}
	if len(denied.Deny) != 1 || denied.Deny[0].Code != "DELETE_FORBIDDEN" {
		t.Fatalf("unexpected deny reasons: %+v", denied.Deny)
	}
}

func TestEngine_MissingBundlePath(t *testing.T) {
	if _, err := NewEngineFromBundlePath(context.Background(), "", "x"); err == nil {
		t.Fatal("expected error for empty bundle path")
	}
}
