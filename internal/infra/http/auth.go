package http

import (
	"context"
	"net/http"
	"strings"

	"palisade/internal/domain"
	"palisade/internal/infra/auth/claims"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const correlationHeader = "X-Correlation-ID"

// identity populates the request context: correlation id, client ip, and
// the principal and tenant extracted from the bearer token. A missing
// token yields the anonymous principal and no tenant; only a present but
// invalid token is an error. The values die with the request context, so
// nothing leaks into the next request on a reused connection.
func (s *Server) identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		correlationID := strings.TrimSpace(c.GetHeader(correlationHeader))
		if correlationID == "" {
			correlationID = uuid.NewString()
		}
		c.Header(correlationHeader, correlationID)
		ctx = domain.WithCorrelationID(ctx, correlationID)
		ctx = domain.WithClientIP(ctx, c.ClientIP())

		if s.cfg.AuthMode == "none" {
			ctx = headerIdentity(c, ctx)
			c.Request = c.Request.WithContext(ctx)
			c.Next()
			return
		}

		if s.authInitErr != nil || s.authenticator == nil {
			writeErrorCode(c, http.StatusInternalServerError, "AUTH_CONFIG_ERROR", "auth configuration error")
			c.Abort()
			return
		}

		token := extractBearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
			return
		}

		credential, err := s.authenticator.Authenticate(ctx, token)
		if err != nil {
			writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid bearer token")
			c.Abort()
			return
		}
		// The system tenant never comes from an end-user token; only
		// internal wiring may activate it.
		if credential.TenantID == domain.SystemTenant {
			writeErrorCode(c, http.StatusUnauthorized, "RESERVED_TENANT", "reserved tenant")
			c.Abort()
			return
		}

		ctx = domain.WithPrincipal(ctx, credential.Principal)
		if credential.TenantID != "" {
			ctx = domain.WithTenant(ctx, credential.TenantID)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// headerIdentity builds the principal from gateway-injected headers. Used
// only in "none" auth mode, where the upstream proxy is the trust
// boundary and has already verified the caller.
func headerIdentity(c *gin.Context, ctx context.Context) context.Context {
	subject := strings.TrimSpace(c.GetHeader("X-Principal-Subject"))
	if subject == "" {
		return ctx
	}
	p := domain.Principal{
		Username:      strings.TrimSpace(c.GetHeader("X-Principal-Username")),
		Subject:       subject,
		Authenticated: true,
	}
	if p.Username == "" {
		p.Username = subject
	}
	for _, role := range splitCSV(c.GetHeader("X-Principal-Roles")) {
		p.Authorities = append(p.Authorities, claims.NormalizeAuthority(role))
	}
	ctx = domain.WithPrincipal(ctx, p)
	if tenantID := strings.TrimSpace(c.GetHeader("X-Principal-Tenant")); tenantID != "" {
		ctx = domain.WithTenant(ctx, tenantID)
	}
	return ctx
}

func extractBearerToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(value), "bearer ") {
		return ""
	}
	return strings.TrimSpace(value[len("bearer "):])
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}
