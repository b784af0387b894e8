package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr    string
	PostgresDSN string
	LogLevel    string
	ServiceName string

	AuthMode             string
	OIDCIssuerURL        string
	OIDCAudience         string
	OIDCJWKSURL          string
	OIDCClockSkewSecs    int
	OIDCJWKSCacheTTLSecs int
	OIDCJWKSMaxStaleSecs int
	TenantClaim          string

	AuditMaxPayloadBytes int

	PolicyBundlePath string
	PolicyBundleID   string

	RateLimitRequests       int
	RateLimitWindowSeconds  int
	RateLimitIncludeSubject bool
	RateLimitFailClosed     bool
	RateLimitMaxKeys        int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:                addr,
		PostgresDSN:             os.Getenv("POSTGRES_DSN"),
		LogLevel:                envDefault("LOG_LEVEL", "info"),
		ServiceName:             envDefault("SERVICE_NAME", "palisade"),
		AuthMode:                envDefault("AUTH_MODE", "oidc"),
		OIDCIssuerURL:           os.Getenv("OIDC_ISSUER_URL"),
		OIDCAudience:            os.Getenv("OIDC_AUDIENCE"),
		OIDCJWKSURL:             os.Getenv("OIDC_JWKS_URL"),
		OIDCClockSkewSecs:       envIntDefault("OIDC_CLOCK_SKEW_SECONDS", 60),
		OIDCJWKSCacheTTLSecs:    envIntDefault("OIDC_JWKS_CACHE_TTL_SECONDS", 300),
		OIDCJWKSMaxStaleSecs:    envIntDefault("OIDC_JWKS_MAX_STALE_SECONDS", 900),
		TenantClaim:             envDefault("TENANT_CLAIM", "tenant_id"),
		AuditMaxPayloadBytes:    envIntDefault("AUDIT_MAX_PAYLOAD_BYTES", 4096),
		PolicyBundlePath:        os.Getenv("POLICY_BUNDLE_PATH"),
		PolicyBundleID:          envDefault("POLICY_BUNDLE_ID", "default"),
		RateLimitRequests:       envIntDefault("RATE_LIMIT_REQUESTS", 0),
		RateLimitWindowSeconds:  envIntDefault("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitIncludeSubject: envBoolDefault("RATE_LIMIT_INCLUDE_SUBJECT", false),
		RateLimitFailClosed:     envBoolDefault("RATE_LIMIT_FAIL_CLOSED", false),
		RateLimitMaxKeys:        envIntDefault("RATE_LIMIT_MAX_KEYS", 10000),
		RedisAddr:               os.Getenv("REDIS_ADDR"),
		RedisPassword:           os.Getenv("REDIS_PASSWORD"),
		RedisDB:                 envIntDefault("REDIS_DB", 0),
	}
}

func (c Config) RateLimitWindow() time.Duration {
	if c.RateLimitWindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func envBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "Yes":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "No":
		return false
	default:
		return def
	}
}
