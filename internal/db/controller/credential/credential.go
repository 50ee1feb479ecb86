// Package credential owns the bearer credential lifecycle: issue, verify,
// revoke. No other package reads or writes the stored secret hash.
package credential

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/authnd/authnd/internal/config"
	"github.com/authnd/authnd/internal/db/models"
	"github.com/authnd/authnd/internal/db/store"
	"github.com/authnd/authnd/internal/uniuri"
)

var (
	// ErrCredentialNotFound is returned when no credential matches the
	// given id (and owner, where the owner is part of the predicate).
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrCredentialInvalid is returned when the candidate secret does not
	// match the stored hash.
	ErrCredentialInvalid = errors.New("credential secret mismatch")

	// ErrCredentialIDCollision is returned when a generated credential id
	// already exists. With uuid v4 ids this is astronomically unlikely and
	// treated as a hard error rather than retried.
	ErrCredentialIDCollision = errors.New("credential id collision")
)

// Projectable and sortable columns. The secret hash is deliberately absent
// from both.
var (
	Fields = []string{"id", "owner", "created", "description"}
	Sorts  = []string{"id", "created", "description"}
)

// Issued is the creation response: the only place the plaintext secret is
// ever returned.
type Issued struct {
	ID          string    `json:"id"`
	Secret      string    `json:"secret"`
	Created     time.Time `json:"created"`
	Description string    `json:"description"`
}

// Store issues, verifies and revokes bearer credentials.
type Store struct {
	crud      *store.Store[models.Credential]
	params    *argon2id.Params
	secretLen int
	// hashSem bounds concurrent argon2id work so CPU-bound hashing can not
	// starve I/O-bound request handling.
	hashSem chan struct{}
}

// NewStore creates a credential store with hashing parameters from config.
func NewStore(db *gorm.DB, sec config.Security) *Store {
	return &Store{
		crud: store.New[models.Credential](db, Fields, Sorts),
		params: &argon2id.Params{
			Memory:      sec.Argon2Memory,
			Iterations:  sec.Argon2Iterations,
			Parallelism: sec.Argon2Parallelism,
			SaltLength:  16,
			KeyLength:   32,
		},
		secretLen: sec.SecretLength,
		hashSem:   make(chan struct{}, sec.HashWorkers),
	}
}

func (s *Store) acquireHashSlot(ctx context.Context) (release func(), err error) {
	select {
	case s.hashSem <- struct{}{}:
		return func() { <-s.hashSem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Create issues a new credential for owner. The returned Issued carries the
// plaintext secret exactly once; only its hash is persisted.
func (s *Store) Create(ctx context.Context, owner, description string) (*Issued, error) {
	id := uuid.NewString()
	secret := uniuri.NewLenChars(s.secretLen, uniuri.SecretChars)
	created := time.Now().UTC()

	release, err := s.acquireHashSlot(ctx)
	if err != nil {
		return nil, err
	}

	hash, err := argon2id.CreateHash(secret, s.params)

	release()

	if err != nil {
		return nil, fmt.Errorf("failed to hash credential secret: %w", err)
	}

	cred := models.Credential{
		ID:          id,
		Owner:       owner,
		SecretHash:  hash,
		Description: description,
		Created:     created,
	}

	if err := s.crud.Create(ctx, &cred); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrCredentialIDCollision
		}

		return nil, err
	}

	log.Info().Str("owner", owner).Str("credential_id", id).Msg("credential issued")

	return &Issued{
		ID:          id,
		Secret:      secret,
		Created:     created,
		Description: description,
	}, nil
}

// Verify looks up a credential by id alone and compares the candidate
// secret against the stored hash. Any caller presenting a valid header pair
// authenticates as the credential's owner.
func (s *Store) Verify(ctx context.Context, id, candidate string) (string, error) {
	var cred models.Credential

	err := s.crud.DB().WithContext(ctx).
		Select("owner", "secret_hash").
		Where("id = ?", id).
		First(&cred).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrCredentialNotFound
	}

	if err != nil {
		return "", err
	}

	release, err := s.acquireHashSlot(ctx)
	if err != nil {
		return "", err
	}

	match, err := argon2id.ComparePasswordAndHash(candidate, cred.SecretHash)

	release()

	if err != nil {
		return "", fmt.Errorf("failed to compare credential secret: %w", err)
	}

	if !match {
		return "", ErrCredentialInvalid
	}

	return cred.Owner, nil
}

// Get loads a single credential scoped to its owner.
func (s *Store) Get(ctx context.Context, id, owner string, fields []string) (*models.Credential, error) {
	cred, err := s.crud.Get(ctx, map[string]any{"id": id, "owner": owner}, fields)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrCredentialNotFound
	}

	return cred, err
}

// Search lists an owner's credentials with projection, sort and pagination.
func (s *Store) Search(ctx context.Context, owner string, q store.Query) ([]models.Credential, int64, error) {
	return s.crud.Search(ctx, map[string]any{"owner": owner}, q)
}

// Update changes the description of an owner's credential.
func (s *Store) Update(ctx context.Context, id, owner, description string, fields []string) (*models.Credential, error) {
	err := s.crud.Update(ctx,
		map[string]any{"id": id, "owner": owner},
		map[string]any{"description": description})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrCredentialNotFound
	}

	if err != nil {
		return nil, err
	}

	return s.Get(ctx, id, owner, fields)
}

// Delete removes a credential only when both id and owner match, binding
// authorization into the delete predicate itself.
func (s *Store) Delete(ctx context.Context, id, owner string) error {
	n, err := s.crud.Delete(ctx, map[string]any{"id": id, "owner": owner})
	if err != nil {
		return err
	}

	if n == 0 {
		return ErrCredentialNotFound
	}

	log.Info().Str("owner", owner).Str("credential_id", id).Msg("credential revoked")

	return nil
}

// DeleteAllForOwner removes every credential of owner as part of account
// teardown. Zero matches is success, not an error.
func (s *Store) DeleteAllForOwner(ctx context.Context, owner string) error {
	n, err := s.crud.Delete(ctx, map[string]any{"owner": owner})
	if err != nil {
		return err
	}

	if n > 0 {
		log.Info().Str("owner", owner).Int64("count", n).Msg("credentials revoked for owner")
	}

	return nil
}
