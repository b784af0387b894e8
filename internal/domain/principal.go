package domain

import "context"

// AnonymousUsername is the sentinel username carried by the unauthenticated
// principal.
const AnonymousUsername = "anonymous"

// Principal is the authenticated identity for one request. Instances are
// built once from a verified token and treated as immutable afterwards.
type Principal struct {
	Username    string
	Email       string
	FirstName   string
	LastName    string
	Subject     string
	Authorities []string

	Authenticated bool
}

// Anonymous returns the principal used when no credential is present.
// Absence of identity is a normal state, not an error.
func Anonymous() Principal {
	return Principal{Username: AnonymousUsername}
}

// HasAuthority reports whether the principal carries the given canonical
// authority. The argument must already be in ROLE_<UPPER> form; comparison
// is byte-exact because authorities are normalized exactly once at
// extraction time.
func (p Principal) HasAuthority(canonical string) bool {
	for _, a := range p.Authorities {
		if a == canonical {
			return true
		}
	}
	return false
}

// FullName joins first and last name when both are present and falls back
// to the username otherwise.
func (p Principal) FullName() string {
	if p.FirstName != "" && p.LastName != "" {
		return p.FirstName + " " + p.LastName
	}
	return p.Username
}

// Credential is the outcome of verifying a bearer token: the extracted
// principal plus the tenant the token asserts membership of. The token
// issuer is trusted to assert tenant membership; see the trust note on
// WithTenant.
type Credential struct {
	Principal Principal
	TenantID  string
}

// Authenticator verifies a bearer token and extracts the credential.
type Authenticator interface {
	Authenticate(ctx context.Context, bearerToken string) (Credential, error)
}
