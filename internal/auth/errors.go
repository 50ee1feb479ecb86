package auth

import "errors"

var (
	// ErrUnauthenticated is returned when no session and no valid credential
	// pair identify the caller.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden is returned when the resolved identity lacks the admin flag
	// required for the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrBackendMismatch is returned when a federated login targets an account
	// whose recorded backend tag names a different authentication method and
	// the provider is not configured to override it.
	ErrBackendMismatch = errors.New("backend mismatch, please contact the administrator")

	// ErrUnknownProvider is returned when a login names an OAuth provider that
	// is not configured.
	ErrUnknownProvider = errors.New("unknown oauth provider")

	// ErrNoIDToken is returned when an OIDC-capable provider's token response
	// doesn't contain an ID token.
	ErrNoIDToken = errors.New("no id_token in token response")

	// ErrNoLogin is returned when a provider's userinfo response carries no
	// login to resolve an account against.
	ErrNoLogin = errors.New("no login in userinfo response")

	// ErrLDAPDisabled is returned when LDAP authentication is disabled via
	// configuration.
	ErrLDAPDisabled = errors.New("ldap authentication is disabled")

	// ErrInvalidLDAPCredentials is returned when the directory server rejects
	// the user bind.
	ErrInvalidLDAPCredentials = errors.New("invalid ldap credentials")
)
