package oidc

import (
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"palisade/internal/config"
	"palisade/internal/domain"
	"palisade/internal/infra/auth/claims"

	"go.uber.org/zap"
)

const (
	defaultHTTPTimeout = 5 * time.Second
	discoveryPath      = "/.well-known/openid-configuration"
)

// Authenticator verifies RS256 bearer tokens against the issuer's JWKS and
// extracts the credential consumed by the rest of the system.
type Authenticator struct {
	issuer      string
	audience    string
	jwksURL     string
	clockSkew   time.Duration
	tenantClaim string
	jwks        *jwksCache
}

type options struct {
	httpClient *http.Client
	logger     *zap.Logger
}

type Option func(*options)

func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithLogger attaches a logger for key-cache refresh diagnostics.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.logger = log
		}
	}
}

func NewAuthenticator(cfg config.Config, opts ...Option) (*Authenticator, error) {
	issuer := strings.TrimSpace(cfg.OIDCIssuerURL)
	if issuer == "" {
		return nil, errors.New("OIDC_ISSUER_URL is required")
	}
	o := options{httpClient: &http.Client{Timeout: defaultHTTPTimeout}}
	for _, opt := range opts {
		opt(&o)
	}
	jwksURL := strings.TrimSpace(cfg.OIDCJWKSURL)
	if jwksURL == "" {
		discovered, err := discoverJWKSURL(context.Background(), o.httpClient, issuer)
		if err != nil {
			return nil, err
		}
		jwksURL = discovered
	}
	jwks := newJWKSCache(jwksURL, o.httpClient, jwksCacheConfig{
		TTL:      time.Duration(cfg.OIDCJWKSCacheTTLSecs) * time.Second,
		MaxStale: time.Duration(cfg.OIDCJWKSMaxStaleSecs) * time.Second,
		Logger:   o.logger,
	})
	return &Authenticator{
		issuer:      issuer,
		audience:    strings.TrimSpace(cfg.OIDCAudience),
		jwksURL:     jwksURL,
		clockSkew:   time.Duration(cfg.OIDCClockSkewSecs) * time.Second,
		tenantClaim: cfg.TenantClaim,
		jwks:        jwks,
	}, nil
}

// Authenticate verifies the token and returns the extracted credential.
// Every verification failure collapses to ErrUnauthorized; callers get no
// oracle about which check failed.
func (a *Authenticator) Authenticate(ctx context.Context, bearerToken string) (domain.Credential, error) {
	if a == nil {
		return domain.Credential{}, domain.ErrUnauthorized
	}
	tokenString := strings.TrimSpace(bearerToken)
	if tokenString == "" {
		return domain.Credential{}, domain.ErrUnauthorized
	}
	header, claimSet, signingInput, signature, err := parseJWT(tokenString)
	if err != nil {
		return domain.Credential{}, domain.ErrUnauthorized
	}
	if alg, _ := header["alg"].(string); alg != "RS256" {
		return domain.Credential{}, domain.ErrUnauthorized
	}
	if typ, ok := header["typ"].(string); ok {
		if typ != "" && strings.ToUpper(typ) != "JWT" {
			return domain.Credential{}, domain.ErrUnauthorized
		}
	}
	kid, _ := header["kid"].(string)
	pubKey, err := a.jwks.getKey(ctx, kid)
	if err != nil {
		return domain.Credential{}, domain.ErrUnauthorized
	}
	if err := verifyRS256(pubKey, signingInput, signature); err != nil {
		return domain.Credential{}, domain.ErrUnauthorized
	}
	if err := a.validateClaims(claimSet); err != nil {
		return domain.Credential{}, domain.ErrUnauthorized
	}
	return domain.Credential{
		Principal: claims.PrincipalFromClaims(claimSet),
		TenantID:  claims.TenantFromClaims(claimSet, a.tenantClaim),
	}, nil
}

func discoverJWKSURL(ctx context.Context, client *http.Client, issuer string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(issuer, "/")+discoveryPath, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.New("oidc discovery failed")
	}
	var payload struct {
		JWKSURI string `json:"jwks_uri"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if payload.JWKSURI == "" {
		return "", errors.New("oidc discovery missing jwks_uri")
	}
	return payload.JWKSURI, nil
}

func parseJWT(token string) (map[string]any, map[string]any, string, []byte, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, nil, "", nil, errors.New("invalid token format")
	}
	headerBytes, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, nil, "", nil, err
	}
	claimsBytes, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, nil, "", nil, err
	}
	signature, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, nil, "", nil, err
	}
	var header map[string]any
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, nil, "", nil, err
	}
	var claimSet map[string]any
	if err := json.Unmarshal(claimsBytes, &claimSet); err != nil {
		return nil, nil, "", nil, err
	}
	signingInput := parts[0] + "." + parts[1]
	return header, claimSet, signingInput, signature, nil
}

func verifyRS256(pubKey *rsa.PublicKey, signingInput string, signature []byte) error {
	hash := sha256.Sum256([]byte(signingInput))
	return rsa.VerifyPKCS1v15(pubKey, crypto.SHA256, hash[:], signature)
}

func (a *Authenticator) validateClaims(claimSet map[string]any) error {
	now := time.Now()
	if a.issuer != "" {
		if iss, _ := claimSet["iss"].(string); iss != a.issuer {
			return errors.New("issuer mismatch")
		}
	}
	if a.audience != "" {
		if !audienceMatches(claimSet["aud"], a.audience) {
			return errors.New("audience mismatch")
		}
	}
	exp, ok := parseNumericDate(claimSet["exp"])
	if !ok {
		return errors.New("exp claim required")
	}
	if now.After(exp.Add(a.clockSkew)) {
		return errors.New("token expired")
	}
	if nbf, ok := parseNumericDate(claimSet["nbf"]); ok {
		if now.Add(a.clockSkew).Before(nbf) {
			return errors.New("token not yet valid")
		}
	}
	return nil
}

func parseNumericDate(value any) (time.Time, bool) {
	switch v := value.(type) {
	case float64:
		return time.Unix(int64(v), 0), true
	case int64:
		return time.Unix(v, 0), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return time.Time{}, false
		}
		return time.Unix(n, 0), true
	default:
		return time.Time{}, false
	}
}

func audienceMatches(raw any, expected string) bool {
	switch v := raw.(type) {
	case string:
		return v == expected
	case []any:
		for _, entry := range v {
			if s, ok := entry.(string); ok && s == expected {
				return true
			}
		}
	}
	return false
}
