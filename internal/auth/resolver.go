package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/authnd/authnd/internal/db/controller/credential"
	"github.com/authnd/authnd/internal/db/controller/user"
	"github.com/authnd/authnd/internal/db/models"
	"github.com/authnd/authnd/internal/web/session"
)

// Request headers consumed during resolution.
const (
	// HeaderSecretID names the credential to verify.
	HeaderSecretID = "X-Secret-ID"
	// HeaderSecret carries the credential's plaintext secret.
	HeaderSecret = "X-Secret"
	// HeaderUserOverride names the identity an admin caller wants to assume.
	HeaderUserOverride = "X-User-Override"
)

// Resolver produces the identity behind a request. It owns no state of its
// own; it orchestrates the session store, the credential store and the user
// directory.
type Resolver struct {
	directory   *user.Directory
	credentials *credential.Store
	cookieName  string
}

// NewResolver creates a resolver over the given stores. cookieName is the
// session cookie to check first.
func NewResolver(directory *user.Directory, credentials *credential.Store, cookieName string) *Resolver {
	return &Resolver{
		directory:   directory,
		credentials: credentials,
		cookieName:  cookieName,
	}
}

// Resolve determines the identity of the caller. The session cookie wins
// over the credential header pair; an invalid or missing session falls
// through to the credential check rather than failing. The directory
// projection is loaded fresh, so a stale session or credential naming a
// deleted account resolves to nothing.
func (r *Resolver) Resolve(c *fiber.Ctx) (*models.Identity, error) {
	username, err := r.resolveUsername(c)
	if err != nil {
		return nil, err
	}

	if username == "" {
		return nil, ErrUnauthenticated
	}

	identity, err := r.directory.GetIdentity(c.Context(), username)
	if errors.Is(err, user.ErrUserNotFound) {
		return nil, ErrUnauthenticated
	}

	if err != nil {
		return nil, err
	}

	return r.applyOverride(c, identity)
}

// RequireUser is an alias for Resolve, present for call-site symmetry with
// RequireAdmin.
func (r *Resolver) RequireUser(c *fiber.Ctx) (*models.Identity, error) {
	return r.Resolve(c)
}

// RequireAdmin resolves the caller and rejects non-admin identities.
func (r *Resolver) RequireAdmin(c *fiber.Ctx) (*models.Identity, error) {
	identity, err := r.Resolve(c)
	if err != nil {
		return nil, err
	}

	if !identity.Admin {
		return nil, ErrForbidden
	}

	return identity, nil
}

// resolveUsername tries the session, then the credential header pair. An
// empty username with a nil error means neither source identified a caller.
func (r *Resolver) resolveUsername(c *fiber.Ctx) (string, error) {
	if token := c.Cookies(r.cookieName); token != "" {
		data := new(session.Data)
		if err := data.Read(token); err == nil && data.Username != "" {
			return data.Username, nil
		}
	}

	id := c.Get(HeaderSecretID)
	secret := c.Get(HeaderSecret)

	if id == "" || secret == "" {
		return "", nil
	}

	owner, err := r.credentials.Verify(c.Context(), id, secret)

	// an unknown id and a wrong secret look the same to the caller
	if errors.Is(err, credential.ErrCredentialNotFound) ||
		errors.Is(err, credential.ErrCredentialInvalid) {
		return "", nil
	}

	if err != nil {
		return "", err
	}

	return owner, nil
}

// applyOverride re-resolves the identity when an admin caller requests
// impersonation. The override header is inert for non-admin callers. A
// missing target fails the whole resolution, never falls back to the
// caller's own identity.
func (r *Resolver) applyOverride(c *fiber.Ctx, identity *models.Identity) (*models.Identity, error) {
	if !identity.Admin {
		return identity, nil
	}

	target := c.Get(HeaderUserOverride)
	if target == "" || target == identity.ID {
		return identity, nil
	}

	overridden, err := r.directory.GetIdentity(c.Context(), target)
	if errors.Is(err, user.ErrUserNotFound) {
		log.Warn().Str("actor", identity.ID).Str("target", target).
			Msg("impersonation target not found")

		return nil, ErrUnauthenticated
	}

	if err != nil {
		return nil, err
	}

	log.Info().Str("actor", identity.ID).Str("target", target).
		Msg("impersonation")

	return overridden, nil
}
