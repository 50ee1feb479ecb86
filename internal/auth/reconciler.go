package auth

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/authnd/authnd/internal/db/controller/user"
)

// Userinfo is the profile a login backend resolved for the authenticated
// caller. Login is the account identifier; Email and Name populate new
// directory records.
type Userinfo struct {
	Login string `json:"login"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Reconciler enforces the backend-of-record invariant after a successful
// external login: an account authenticates through the backend that created
// it unless the backend's policy allows re-homing.
type Reconciler struct {
	directory *user.Directory
}

// NewReconciler creates a reconciler over the directory.
func NewReconciler(directory *user.Directory) *Reconciler {
	return &Reconciler{directory: directory}
}

// Reconcile runs the backend state machine for a login through backend
// (e.g. "oauth:github" or "ldap"). Unseen logins create a non-admin account
// tagged with backend. A recorded tag that matches proceeds unchanged. A
// mismatched tag is rejected with ErrBackendMismatch unless override is set,
// in which case the account is re-homed under the new tag.
func (r *Reconciler) Reconcile(ctx context.Context, backend string, override bool, info Userinfo) error {
	if info.Login == "" {
		return ErrNoLogin
	}

	u, err := r.directory.Get(ctx, info.Login, []string{"username", "backend"})

	if errors.Is(err, user.ErrUserNotFound) {
		if _, err := r.directory.CreateExternal(ctx, info.Login, info.Email, info.Name, backend); err != nil {
			return err
		}

		log.Info().Str("username", info.Login).Str("backend", backend).
			Msg("account created from external login")

		return nil
	}

	if err != nil {
		return err
	}

	if u.Backend == backend {
		return nil
	}

	if !override {
		log.Warn().Str("username", info.Login).
			Str("recorded", u.Backend).Str("attempted", backend).
			Msg("login rejected, backend tag mismatch")

		return ErrBackendMismatch
	}

	// re-homing changes how the account authenticates, hence the warning
	log.Warn().Str("username", info.Login).
		Str("recorded", u.Backend).Str("attempted", backend).
		Msg("backend tag overridden")

	return r.directory.UpdateBackend(ctx, info.Login, backend)
}
