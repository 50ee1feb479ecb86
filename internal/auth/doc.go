// Package auth resolves the identity behind a request and reconciles
// federated logins against the account directory.
//
// # Identity resolution
//
// Resolver produces the minimal {id, admin} projection for a request by
// trying, in order:
//  1. the session cookie, mapping an opaque token to a username
//  2. the X-Secret-ID / X-Secret header pair, verified against the
//     credential store
//
// If neither yields a username the request is unauthenticated. The directory
// projection is loaded fresh on every resolution; a session or credential
// referencing a since-deleted account fails the same way as no identity at
// all. An admin caller may assume another identity via X-User-Override,
// which is logged as an impersonation event. A missing override target fails
// the whole resolution rather than silently falling back to the caller.
//
// # Backend reconciliation
//
// Every directory record carries a backend tag ("local", "ldap" or
// "oauth:<provider>") recording how the account authenticates. Reconciler
// enforces the tag on each federated login: unseen logins create a non-admin
// account tagged with the provider, matching tags proceed, and mismatched
// tags are rejected unless the provider is configured to override, in which
// case the account is re-homed under the new tag.
//
// # Login backends
//
// LDAPProvider binds a username/password pair against the directory server.
// Registry holds the OAuth2 providers built from configuration, handling the
// authorization code exchange and the userinfo fetch; providers with an
// issuer URL configured additionally verify the OIDC ID token.
package auth
