package credential

import (
	"context"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/authnd/authnd/internal/config"
	"github.com/authnd/authnd/internal/db/models"
	"github.com/authnd/authnd/internal/db/store"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	err = db.AutoMigrate(&models.Credential{})
	require.NoError(t, err, "failed to migrate test database")

	return db
}

// testSecurity uses deliberately cheap hashing parameters to keep tests fast.
func testSecurity() config.Security {
	return config.Security{
		Argon2Memory:      1024,
		Argon2Iterations:  1,
		Argon2Parallelism: 1,
		HashWorkers:       2,
		SecretLength:      128,
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(setupTestDB(t), testSecurity())
}

func TestLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// issue
	issued, err := s.Create(ctx, "alice", "ci-token")
	require.NoError(t, err)
	require.NotNil(t, issued)
	assert.Len(t, issued.Secret, 128)
	assert.Equal(t, "ci-token", issued.Description)
	assert.NotEmpty(t, issued.ID)

	// the freshly issued secret verifies and resolves the owner
	owner, err := s.Verify(ctx, issued.ID, issued.Secret)
	require.NoError(t, err)
	assert.Equal(t, "alice", owner)

	// a wrong secret is a mismatch, not a miss
	_, err = s.Verify(ctx, issued.ID, "wrong-secret")
	require.ErrorIs(t, err, ErrCredentialInvalid)

	// delete by a non-owner leaves the row intact
	err = s.Delete(ctx, issued.ID, "bob")
	require.ErrorIs(t, err, ErrCredentialNotFound)

	owner, err = s.Verify(ctx, issued.ID, issued.Secret)
	require.NoError(t, err)
	assert.Equal(t, "alice", owner)

	// delete by the owner removes it
	require.NoError(t, s.Delete(ctx, issued.ID, "alice"))

	_, err = s.Verify(ctx, issued.ID, issued.Secret)
	require.ErrorIs(t, err, ErrCredentialNotFound)
}

func TestCreate_SecretNeverStoredInPlaintext(t *testing.T) {
	db := setupTestDB(t)
	s := NewStore(db, testSecurity())

	issued, err := s.Create(context.Background(), "alice", "")
	require.NoError(t, err)

	var row models.Credential
	require.NoError(t, db.First(&row, "id = ?", issued.ID).Error)

	assert.NotEqual(t, issued.Secret, row.SecretHash)
	assert.NotContains(t, row.SecretHash, issued.Secret)
	assert.True(t, strings.HasPrefix(row.SecretHash, "$argon2id$"),
		"stored hash must be an argon2id digest, got %q", row.SecretHash)
}

func TestVerify_UnknownID(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Verify(context.Background(), "no-such-id", "whatever")
	require.ErrorIs(t, err, ErrCredentialNotFound)
}

func TestVerify_ContextCancelled(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	issued, err := s.Create(ctx, "alice", "")
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	_, err = s.Verify(cancelled, issued.ID, issued.Secret)
	require.Error(t, err)
}

func TestDeleteAllForOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for range 3 {
		_, err := s.Create(ctx, "alice", "")
		require.NoError(t, err)
	}

	_, err := s.Create(ctx, "bob", "")
	require.NoError(t, err)

	require.NoError(t, s.DeleteAllForOwner(ctx, "alice"))

	_, total, err := s.Search(ctx, "alice", store.Query{Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)

	// bob's credential survives
	_, total, err = s.Search(ctx, "bob", store.Query{Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	// idempotent: zero matches is success
	require.NoError(t, s.DeleteAllForOwner(ctx, "alice"))
}

func TestGet_OwnerScopeAndProjection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	issued, err := s.Create(ctx, "alice", "laptop")
	require.NoError(t, err)

	got, err := s.Get(ctx, issued.ID, "alice", []string{"id", "description"})
	require.NoError(t, err)
	assert.Equal(t, issued.ID, got.ID)
	assert.Equal(t, "laptop", got.Description)
	assert.Empty(t, got.SecretHash, "secret hash must never be projected")

	// owner scope on reads
	_, err = s.Get(ctx, issued.ID, "bob", nil)
	require.ErrorIs(t, err, ErrCredentialNotFound)

	// the hash cannot be requested through the projection
	_, err = s.Get(ctx, issued.ID, "alice", []string{"secret_hash"})
	require.ErrorIs(t, err, store.ErrFieldNotAllowed)
}

func TestSearch_SortAndPaging(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := range 12 {
		_, err := s.Create(ctx, "alice", "cred-"+string(rune('a'+i)))
		require.NoError(t, err)
	}

	items, total, err := s.Search(ctx, "alice", store.Query{
		Limit: 10,
		Sort:  "description",
		Order: store.Descending,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 12, total)
	require.Len(t, items, 10)
	assert.Equal(t, "cred-l", items[0].Description)

	items, _, err = s.Search(ctx, "alice", store.Query{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	issued, err := s.Create(ctx, "alice", "old")
	require.NoError(t, err)

	got, err := s.Update(ctx, issued.ID, "alice", "new", []string{"id", "description"})
	require.NoError(t, err)
	assert.Equal(t, "new", got.Description)

	// update is owner scoped as well
	_, err = s.Update(ctx, issued.ID, "bob", "hijack", nil)
	require.ErrorIs(t, err, ErrCredentialNotFound)

	// update never rotates the secret
	owner, err := s.Verify(ctx, issued.ID, issued.Secret)
	require.NoError(t, err)
	assert.Equal(t, "alice", owner)
}
