// Package models contains database model definitions.
package models

import (
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog/log"
)

const (
	// BackendLocal marks accounts that authenticate with a local password.
	BackendLocal = "local"
	// BackendLDAP marks accounts that authenticate against the LDAP directory.
	BackendLDAP = "ldap"
	// BackendOAuthPrefix prefixes the provider name for federated accounts,
	// e.g. "oauth:github".
	BackendOAuthPrefix = "oauth:"
)

// OAuthBackend returns the backend tag recorded for a federated provider.
func OAuthBackend(provider string) string {
	return BackendOAuthPrefix + provider
}

// IsOAuthBackend reports whether a backend tag names a federated provider.
func IsOAuthBackend(backend string) bool {
	return strings.HasPrefix(backend, BackendOAuthPrefix)
}

// User represents a directory record. The username is the identifier the
// rest of the system resolves against; the backend tag records how the
// account authenticates.
type User struct {
	ID uint64 `gorm:"primaryKey" json:"-"`
	// Username is the unique identifier used for resolution.
	Username string `gorm:"unique;size:100;not null" json:"username"`
	Email    string `gorm:"size:255" json:"email"`
	// Name is the display name, populated from federated userinfo.
	Name string `gorm:"size:255" json:"name"`
	// Admin grants the binary privileged flag used for authorization decisions.
	Admin bool `gorm:"not null;default:false" json:"admin"`
	// Password is the Argon2id hashed password (local backend only).
	Password string `gorm:"size:255" json:"-"`
	// Backend records the authentication method bound to this account.
	Backend   string `gorm:"size:100;not null;default:'local'" json:"backend"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Identity is the minimal projection used for authorization decisions.
// It never carries secrets and is loaded fresh per resolution.
type Identity struct {
	ID    string `json:"id"`
	Admin bool   `json:"admin"`
}

// Identity returns the authorization projection of the user.
func (u *User) Identity() Identity {
	return Identity{ID: u.Username, Admin: u.Admin}
}

// HashPassword hashes a plaintext password using the Argon2id algorithm.
func HashPassword(password string) string {
	hashedPassword, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		log.Fatal().Msgf("failed to hash password: %v", err)
	}

	return hashedPassword
}

// VerifyPassword verifies a plaintext password against the stored hash.
// Returns false for accounts without a local password.
func (u *User) VerifyPassword(password string) bool {
	if u.Password == "" {
		return false
	}

	match, err := argon2id.ComparePasswordAndHash(password, u.Password)
	if err != nil {
		log.Error().Msgf("failed to verify password: %v", err)
		return false
	}

	return match
}
