// Package claims turns a verified token's claim set into a principal.
// Everything here is a pure transformation over the claim map; malformed
// claim shapes degrade to absent values instead of raising, because
// downstream authorization treats "no role" as "no permission".
package claims

import (
	"strings"

	"palisade/internal/domain"
)

const authorityPrefix = "ROLE_"

// roleSource describes one claim layout that may carry roles. Adding a new
// layout means adding a row here, not touching call sites.
type roleSource struct {
	claim  string
	nested string // key of a list inside a map-valued claim, "" for a flat list
}

var roleSources = []roleSource{
	{claim: "realm_access", nested: "roles"},
	{claim: "roles"},
	{claim: "groups"},
}

// PrincipalFromClaims builds an authenticated principal from a verified
// claim set. A nil claim map yields the anonymous principal.
func PrincipalFromClaims(claims map[string]any) domain.Principal {
	if claims == nil {
		return domain.Anonymous()
	}
	p := domain.Principal{
		Username:      stringClaim(claims, "preferred_username"),
		Email:         stringClaim(claims, "email"),
		FirstName:     stringClaim(claims, "given_name"),
		LastName:      stringClaim(claims, "family_name"),
		Subject:       stringClaim(claims, "sub"),
		Authorities:   Authorities(claims),
		Authenticated: true,
	}
	if p.Username == "" {
		p.Username = p.Subject
	}
	return p
}

// Authorities extracts every role source, normalizes each entry to
// canonical ROLE_<UPPER> form, and unions the results with set semantics.
func Authorities(claims map[string]any) []string {
	var raw []string
	for _, src := range roleSources {
		raw = append(raw, rolesFromSource(claims, src)...)
	}
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		canonical := NormalizeAuthority(r)
		if canonical == "" {
			continue
		}
		if _, ok := seen[canonical]; ok {
			continue
		}
		seen[canonical] = struct{}{}
		out = append(out, canonical)
	}
	return out
}

// NormalizeAuthority maps a raw role claim in any case, with or without
// the ROLE_ prefix, to its canonical form. Idempotent: normalizing an
// already-canonical authority is a no-op.
func NormalizeAuthority(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	upper := strings.ToUpper(trimmed)
	if strings.HasPrefix(upper, authorityPrefix) {
		return upper
	}
	return authorityPrefix + upper
}

// TenantFromClaims returns the tenant asserted by the token, preferring
// the configured claim and falling back to the legacy "tenant" name.
func TenantFromClaims(claims map[string]any, tenantClaim string) string {
	if tenantClaim == "" {
		tenantClaim = "tenant_id"
	}
	if tenant := stringClaim(claims, tenantClaim); tenant != "" {
		return tenant
	}
	return stringClaim(claims, "tenant")
}

func rolesFromSource(claims map[string]any, src roleSource) []string {
	value, ok := claims[src.claim]
	if !ok {
		return nil
	}
	if src.nested != "" {
		wrapper, ok := value.(map[string]any)
		if !ok {
			return nil
		}
		value = wrapper[src.nested]
	}
	list, ok := value.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, entry := range list {
		if role, ok := entry.(string); ok {
			out = append(out, role)
		}
	}
	return out
}

func stringClaim(claims map[string]any, name string) string {
	value, _ := claims[name].(string)
	return strings.TrimSpace(value)
}
