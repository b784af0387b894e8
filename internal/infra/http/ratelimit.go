package http

import (
	"net/http"
	"strconv"
	"time"

	"palisade/internal/domain"
	"palisade/internal/infra/ratelimit"

	"github.com/gin-gonic/gin"
)

// rateLimit enforces the fixed-window limit per tenant, or per tenant and
// subject when configured. Requests without a tenant share one bucket.
func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.rateLimiter == nil || s.rateLimitRequests <= 0 {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		tenantID, _ := domain.TenantFrom(ctx)
		if tenantID == "" {
			tenantID = "unscoped"
		}
		subject := ""
		if s.rateLimitWithSubject {
			subject = domain.PrincipalFrom(ctx).Subject
		}
		key := ratelimit.Key(tenantID, subject)

		decision, err := s.rateLimiter.Allow(ctx, key, s.rateLimitRequests, s.rateLimitWindow)
		if err != nil {
			if s.rateLimitFailClosed {
				writeErrorCode(c, http.StatusTooManyRequests, "RATE_LIMIT_UNAVAILABLE", "rate limiter unavailable")
				c.Abort()
				return
			}
			c.Next()
			return
		}
		writeRateLimitHeaders(c, decision)
		if !decision.Allowed {
			writeErrorCode(c, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded")
			c.Abort()
			return
		}
		c.Next()
	}
}

func writeRateLimitHeaders(c *gin.Context, decision domain.RateLimitDecision) {
	if decision.Limit > 0 {
		c.Header("RateLimit-Limit", strconv.Itoa(decision.Limit))
	}
	if decision.Remaining >= 0 {
		c.Header("RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	}
	if !decision.ResetAt.IsZero() {
		c.Header("RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
		if !decision.Allowed {
			retryAfter := int64(time.Until(decision.ResetAt).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
		}
	}
}
