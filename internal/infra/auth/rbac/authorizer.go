package rbac

import (
	"context"
	"errors"

	"palisade/internal/domain"
	"palisade/internal/infra/auth/claims"
)

// Well-known role names. Checks accept any case and prefix variant; the
// constants are the bare names.
const (
	RoleAdmin   = "ADMIN"
	RoleManager = "MANAGER"
	RoleUser    = "USER"
)

// AuthzError carries a machine-readable denial code for the HTTP layer.
type AuthzError struct {
	Code string
	Err  error
}

func (e *AuthzError) Error() string {
	if e == nil {
		return ""
	}
	return e.Code
}

func (e *AuthzError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// HasRole reports whether the principal holds the role. The argument is
// normalized to canonical form; the principal's authority set already is,
// so the lookup itself is byte-exact.
func HasRole(p domain.Principal, role string) bool {
	return p.HasAuthority(claims.NormalizeAuthority(role))
}

func IsAdmin(p domain.Principal) bool   { return HasRole(p, RoleAdmin) }
func IsManager(p domain.Principal) bool { return HasRole(p, RoleManager) }
func IsUser(p domain.Principal) bool    { return HasRole(p, RoleUser) }

// Authorizer answers yes/no authorization questions. It only reports; the
// caller decides whether a denial rejects the request. Policy is the
// optional engine consulted after the role check allows.
type Authorizer struct {
	Policy domain.PolicyEvaluator
}

func NewAuthorizer() *Authorizer {
	return &Authorizer{}
}

// Require passes when the principal is authenticated and holds at least
// one of the given roles (admins always qualify), and the policy engine,
// when configured, raises no deny. Policy evaluation failures deny; an
// unavailable policy engine must not widen access.
func (a *Authorizer) Require(ctx context.Context, p domain.Principal, action string, roles ...string) error {
	if !p.Authenticated {
		return domain.ErrUnauthorized
	}
	if !a.holdsAny(p, roles) {
		return &AuthzError{Code: "MISSING_ROLE", Err: domain.ErrForbidden}
	}
	if a == nil || a.Policy == nil {
		return nil
	}
	tenantID, _ := domain.TenantFrom(ctx)
	decision, err := a.Policy.Evaluate(ctx, domain.PolicyInput{
		Subject:     p.Subject,
		Tenant:      tenantID,
		Authorities: p.Authorities,
		Action:      action,
		Resource:    resourceOf(action),
	})
	if err != nil {
		return &AuthzError{Code: "POLICY_UNAVAILABLE", Err: domain.ErrForbidden}
	}
	if !decision.Allowed {
		code := "POLICY_DENIED"
		if len(decision.Deny) > 0 && decision.Deny[0].Code != "" {
			code = decision.Deny[0].Code
		}
		return &AuthzError{Code: code, Err: domain.ErrForbidden}
	}
	return nil
}

func (a *Authorizer) holdsAny(p domain.Principal, roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	if IsAdmin(p) {
		return true
	}
	for _, role := range roles {
		if HasRole(p, role) {
			return true
		}
	}
	return false
}

// resourceOf derives the resource segment from an "entity:verb" action.
func resourceOf(action string) string {
	for i := 0; i < len(action); i++ {
		if action[i] == ':' {
			return action[:i]
		}
	}
	return action
}

func IsAuthzError(err error) (*AuthzError, bool) {
	var authz *AuthzError
	if errors.As(err, &authz) {
		return authz, true
	}
	return nil, false
}
