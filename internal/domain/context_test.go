package domain

import (
	"context"
	"testing"
)

func TestPrincipalFromDefaultsToAnonymous(t *testing.T) {
	p := PrincipalFrom(context.Background())
	if p.Authenticated {
		t.Fatal("default principal must not be authenticated")
	}
	if p.Username != AnonymousUsername {
		t.Fatalf("username = %q, want %q", p.Username, AnonymousUsername)
	}
	if len(p.Authorities) != 0 {
		t.Fatalf("anonymous principal must carry no authorities, got %v", p.Authorities)
	}
	if p.Subject != "" {
		t.Fatalf("anonymous principal must carry no subject, got %q", p.Subject)
	}
}

func TestPrincipalRoundTrip(t *testing.T) {
	want := Principal{Username: "ada", Subject: "sub-1", Authenticated: true}
	ctx := WithPrincipal(context.Background(), want)
	got := PrincipalFrom(ctx)
	if got.Username != "ada" || !got.Authenticated {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	// A derived context sees the same principal; a sibling does not.
	if p := PrincipalFrom(context.Background()); p.Authenticated {
		t.Fatal("principal leaked into an unrelated context")
	}
}

func TestTenantFrom(t *testing.T) {
	if _, ok := TenantFrom(context.Background()); ok {
		t.Fatal("tenant must be unset on a fresh context")
	}

	ctx := WithTenant(context.Background(), "acme")
	tenantID, ok := TenantFrom(ctx)
	if !ok || tenantID != "acme" {
		t.Fatalf("got %q/%v, want acme/true", tenantID, ok)
	}

	// Empty string counts as unset, not as a real tenant.
	if _, ok := TenantFrom(WithTenant(context.Background(), "")); ok {
		t.Fatal("empty tenant must read back as unset")
	}
}

func TestIsSystemTenant(t *testing.T) {
	if IsSystemTenant(context.Background()) {
		t.Fatal("unset tenant is not the system tenant")
	}
	if IsSystemTenant(WithTenant(context.Background(), "acme")) {
		t.Fatal("regular tenant is not the system tenant")
	}
	if !IsSystemTenant(WithTenant(context.Background(), SystemTenant)) {
		t.Fatal("expected system tenant to be recognized")
	}
	// No case folding: only the exact sentinel bypasses isolation.
	if IsSystemTenant(WithTenant(context.Background(), "SYSTEM")) {
		t.Fatal("sentinel comparison must be exact")
	}
}

func TestFullName(t *testing.T) {
	cases := []struct {
		name string
		p    Principal
		want string
	}{
		{"both names", Principal{Username: "ada", FirstName: "Ada", LastName: "Lovelace"}, "Ada Lovelace"},
		{"first only", Principal{Username: "ada", FirstName: "Ada"}, "ada"},
		{"last only", Principal{Username: "ada", LastName: "Lovelace"}, "ada"},
		{"neither", Principal{Username: "ada"}, "ada"},
		{"anonymous", Anonymous(), AnonymousUsername},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.p.FullName(); got != tc.want {
				t.Fatalf("FullName() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCorrelationIDRoundTrip(t *testing.T) {
	if got := CorrelationIDFrom(context.Background()); got != "" {
		t.Fatalf("expected empty correlation id, got %q", got)
	}
	ctx := WithCorrelationID(context.Background(), "corr-7")
	if got := CorrelationIDFrom(ctx); got != "corr-7" {
		t.Fatalf("got %q, want corr-7", got)
	}
}
