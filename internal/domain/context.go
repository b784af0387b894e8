package domain

import "context"

// SystemTenant is the reserved tenant value that disables row isolation.
// It must only be set by trusted internal code paths (wiring, background
// jobs); the HTTP boundary refuses it when it arrives in a token claim.
const SystemTenant = "system"

type principalContextKey struct{}
type tenantContextKey struct{}
type correlationContextKey struct{}
type clientIPContextKey struct{}

// WithPrincipal attaches the request's principal to the context. The value
// lives and dies with the request context; nothing is cleared by hand and
// pooled workers can never observe another request's principal.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFrom returns the principal for the current request, or the
// anonymous principal when none was set.
func PrincipalFrom(ctx context.Context) Principal {
	if p, ok := ctx.Value(principalContextKey{}).(Principal); ok {
		return p
	}
	return Anonymous()
}

// WithTenant attaches the active tenant id to the context. Work handed to
// another goroutine must carry the derived context along explicitly; a
// missing tenant downstream means deny-by-default, never open access.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantContextKey{}, tenantID)
}

// TenantFrom returns the active tenant id and whether one is set.
func TenantFrom(ctx context.Context) (string, bool) {
	tenantID, ok := ctx.Value(tenantContextKey{}).(string)
	if !ok || tenantID == "" {
		return "", false
	}
	return tenantID, true
}

// IsSystemTenant reports whether the reserved system tenant is active.
func IsSystemTenant(ctx context.Context) bool {
	tenantID, ok := TenantFrom(ctx)
	return ok && tenantID == SystemTenant
}

// WithCorrelationID attaches the id that ties related audit entries
// together across services.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationContextKey{}, id)
}

// CorrelationIDFrom returns the correlation id for the current request,
// or "" when none was set.
func CorrelationIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(correlationContextKey{}).(string)
	return id
}

// WithClientIP attaches the caller's address for audit entries.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// ClientIPFrom returns the caller's address, or "" when unknown.
func ClientIPFrom(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}
