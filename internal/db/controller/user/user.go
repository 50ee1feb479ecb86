// Package user implements the directory of identities: minimal projections
// for authorization decisions plus record management for local and
// federated accounts.
package user

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/authnd/authnd/internal/db/models"
	"github.com/authnd/authnd/internal/db/store"
)

var (
	// ErrUserNotFound is returned when no directory record matches.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists is returned when creating a user whose username is taken.
	ErrUserExists = errors.New("user already exists")

	// ErrInvalidPassword is returned when a local password check fails.
	ErrInvalidPassword = errors.New("invalid password")
)

// Projectable and sortable columns. The password hash is absent from both.
var (
	Fields = []string{"username", "email", "name", "admin", "backend", "created_at"}
	Sorts  = []string{"username", "created_at"}
)

// Directory provides lookups and record management over user accounts.
type Directory struct {
	crud *store.Store[models.User]
}

// NewDirectory creates a directory over db.
func NewDirectory(db *gorm.DB) *Directory {
	return &Directory{
		crud: store.New[models.User](db, Fields, Sorts),
	}
}

// Get loads a user record by username with the given projection.
func (d *Directory) Get(ctx context.Context, username string, fields []string) (*models.User, error) {
	u, err := d.crud.Get(ctx, map[string]any{"username": username}, fields)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}

	return u, err
}

// GetIdentity loads the minimal {id, admin} projection for username.
func (d *Directory) GetIdentity(ctx context.Context, username string) (*models.Identity, error) {
	u, err := d.Get(ctx, username, []string{"username", "admin"})
	if err != nil {
		return nil, err
	}

	identity := u.Identity()

	return &identity, nil
}

// Exists reports ErrUserNotFound when username has no directory record.
func (d *Directory) Exists(ctx context.Context, username string) error {
	_, err := d.Get(ctx, username, []string{"username"})
	return err
}

// Create adds a local account with a hashed password.
func (d *Directory) Create(ctx context.Context, username, email, name, password string, admin bool) (*models.User, error) {
	u := models.User{
		Username: username,
		Email:    email,
		Name:     name,
		Admin:    admin,
		Backend:  models.BackendLocal,
	}

	if password != "" {
		u.Password = models.HashPassword(password)
	}

	if err := d.crud.Create(ctx, &u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrUserExists
		}

		return nil, err
	}

	return &u, nil
}

// CreateExternal adds a non-admin account established through a federated
// login, tagged with the provider's backend.
func (d *Directory) CreateExternal(ctx context.Context, username, email, name, backend string) (*models.User, error) {
	u := models.User{
		Username: username,
		Email:    email,
		Name:     name,
		Admin:    false,
		Backend:  backend,
	}

	if err := d.crud.Create(ctx, &u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrUserExists
		}

		return nil, err
	}

	return &u, nil
}

// UpdateBackend re-homes an account's authentication method. Callers are
// expected to have checked the reconciliation policy first.
func (d *Directory) UpdateBackend(ctx context.Context, username, backend string) error {
	err := d.crud.Update(ctx,
		map[string]any{"username": username},
		map[string]any{"backend": backend})
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}

	return err
}

// SetPassword replaces the local password hash for username.
func (d *Directory) SetPassword(ctx context.Context, username, password string) error {
	err := d.crud.Update(ctx,
		map[string]any{"username": username},
		map[string]any{"password": models.HashPassword(password)})
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}

	return err
}

// CheckLocalCredentials verifies a username/password pair against the local
// backend and returns the username on success.
func (d *Directory) CheckLocalCredentials(ctx context.Context, username, password string) (string, error) {
	var u models.User

	err := d.crud.DB().WithContext(ctx).
		Select("username", "password").
		Where("username = ? AND backend = ?", username, models.BackendLocal).
		First(&u).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrUserNotFound
	}

	if err != nil {
		return "", err
	}

	if !u.VerifyPassword(password) {
		return "", ErrInvalidPassword
	}

	return u.Username, nil
}

// Delete removes the directory record. Credential teardown is driven by the
// caller, not from here.
func (d *Directory) Delete(ctx context.Context, username string) error {
	n, err := d.crud.Delete(ctx, map[string]any{"username": username})
	if err != nil {
		return err
	}

	if n == 0 {
		return ErrUserNotFound
	}

	return nil
}

// Search lists directory records with projection, sort and pagination.
func (d *Directory) Search(ctx context.Context, q store.Query) ([]models.User, int64, error) {
	return d.crud.Search(ctx, map[string]any{}, q)
}
