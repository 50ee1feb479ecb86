package models

import "time"

// Credential is an owner-scoped bearer secret. The plaintext secret exists
// only transiently at creation time; only the Argon2id hash is persisted.
type Credential struct {
	// ID is an opaque, collision-resistant identifier (uuid v4).
	ID string `gorm:"primaryKey;size:36;uniqueIndex:idx_credentials_id_owner" json:"id"`
	// Owner references User.Username. Every read and write except Verify
	// carries the owner in its predicate.
	Owner string `gorm:"size:100;not null;index;uniqueIndex:idx_credentials_id_owner" json:"owner"`
	// SecretHash is owned exclusively by the credential store; it is never
	// part of any field projection and never serialized.
	SecretHash  string    `gorm:"size:255;not null" json:"-"`
	Description string    `gorm:"size:255" json:"description"`
	Created     time.Time `gorm:"column:created" json:"created"`
}
