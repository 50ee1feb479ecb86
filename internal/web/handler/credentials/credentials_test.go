package credentials

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/authnd/authnd/internal/config"
	"github.com/authnd/authnd/internal/db/models"
	"github.com/authnd/authnd/internal/web/session"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Credential{}))

	return db
}

func newTestConfig() *config.Config {
	return &config.Config{
		DevMode: true,
		Webserver: config.Webserver{
			Session: config.Session{ExpiryTime: time.Minute, CookieName: "session"},
		},
		Security: config.Security{
			Argon2Memory:      1024,
			Argon2Iterations:  1,
			Argon2Parallelism: 1,
			HashWorkers:       2,
			SecretLength:      64,
		},
	}
}

type fixture struct {
	app *fiber.App
	svc *Service
}

func setup(t *testing.T) *fixture {
	t.Helper()

	session.Init(session.NewMemoryStorage())

	app := fiber.New()
	svc := new(Service)
	require.NoError(t, svc.Init(app, newTestConfig(), newTestDB(t)))

	return &fixture{app: app, svc: svc}
}

func (f *fixture) seedUser(t *testing.T, username string, admin bool) {
	t.Helper()

	_, err := f.svc.directory.Create(context.Background(), username, "", "", "pw", admin)
	require.NoError(t, err)
}

// login returns a session cookie for username.
func (f *fixture) login(t *testing.T, username string) *http.Cookie {
	t.Helper()

	token, err := session.GenerateSessionID()
	require.NoError(t, err)

	data := session.Data{Username: username}
	require.NoError(t, data.Write(token, time.Minute))

	return &http.Cookie{Name: "session", Value: token}
}

func (f *fixture) do(t *testing.T, method, target, body string, cookie *http.Cookie) *http.Response {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}

	if cookie != nil {
		req.AddCookie(cookie)
	}

	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)

	return resp
}

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestUnauthenticated(t *testing.T) {
	f := setup(t)

	resp := f.do(t, fiber.MethodGet, "/api/v1/users/_self/credentials", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestCreateAndList(t *testing.T) {
	f := setup(t)
	f.seedUser(t, "alice", false)
	cookie := f.login(t, "alice")

	resp := f.do(t, fiber.MethodPost, "/api/v1/users/_self/credentials",
		`{"description":"ci-token"}`, cookie)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var issued struct {
		ID          string `json:"id"`
		Secret      string `json:"secret"`
		Description string `json:"description"`
	}
	decode(t, resp, &issued)
	assert.NotEmpty(t, issued.ID)
	assert.Len(t, issued.Secret, 64)
	assert.Equal(t, "ci-token", issued.Description)

	resp = f.do(t, fiber.MethodGet, "/api/v1/users/_self/credentials", "", cookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var listed struct {
		Data  []map[string]any `json:"data"`
		Total int64            `json:"total"`
	}
	decode(t, resp, &listed)
	require.Len(t, listed.Data, 1)
	assert.EqualValues(t, 1, listed.Total)
	assert.Equal(t, issued.ID, listed.Data[0]["id"])

	// the stored hash never leaves the store
	_, hasSecret := listed.Data[0]["secret"]
	assert.False(t, hasSecret)
	_, hasHash := listed.Data[0]["secret_hash"]
	assert.False(t, hasHash)
}

func TestSelfAliasMatchesOwnUsername(t *testing.T) {
	f := setup(t)
	f.seedUser(t, "alice", false)
	cookie := f.login(t, "alice")

	resp := f.do(t, fiber.MethodPost, "/api/v1/users/alice/credentials", "", cookie)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = f.do(t, fiber.MethodGet, "/api/v1/users/_self/credentials", "", cookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var listed struct {
		Total int64 `json:"total"`
	}
	decode(t, resp, &listed)
	assert.EqualValues(t, 1, listed.Total)
}

func TestForeignOwnerRequiresAdmin(t *testing.T) {
	f := setup(t)
	f.seedUser(t, "alice", false)
	f.seedUser(t, "bob", false)
	f.seedUser(t, "root", true)

	resp := f.do(t, fiber.MethodGet, "/api/v1/users/bob/credentials", "", f.login(t, "alice"))
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = f.do(t, fiber.MethodGet, "/api/v1/users/bob/credentials", "", f.login(t, "root"))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// a target without a directory record is a miss even for admins
	resp = f.do(t, fiber.MethodGet, "/api/v1/users/ghost/credentials", "", f.login(t, "root"))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestGetUpdateDelete(t *testing.T) {
	f := setup(t)
	f.seedUser(t, "alice", false)
	cookie := f.login(t, "alice")

	issued, err := f.svc.credentials.Create(context.Background(), "alice", "old")
	require.NoError(t, err)

	resp := f.do(t, fiber.MethodGet, "/api/v1/users/_self/credentials/"+issued.ID, "", cookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = f.do(t, fiber.MethodPatch, "/api/v1/users/_self/credentials/"+issued.ID,
		`{"description":"new"}`, cookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var updated struct {
		Description string `json:"description"`
	}
	decode(t, resp, &updated)
	assert.Equal(t, "new", updated.Description)

	resp = f.do(t, fiber.MethodDelete, "/api/v1/users/_self/credentials/"+issued.ID, "", cookie)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp = f.do(t, fiber.MethodGet, "/api/v1/users/_self/credentials/"+issued.ID, "", cookie)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestDeleteForeignCredentialForbidden(t *testing.T) {
	f := setup(t)
	f.seedUser(t, "alice", false)
	f.seedUser(t, "bob", false)

	issued, err := f.svc.credentials.Create(context.Background(), "bob", "")
	require.NoError(t, err)

	// alice cannot reach bob's collection at all
	resp := f.do(t, fiber.MethodDelete, "/api/v1/users/bob/credentials/"+issued.ID, "",
		f.login(t, "alice"))
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	// and bob's credential is not addressable through alice's scope
	resp = f.do(t, fiber.MethodDelete, "/api/v1/users/_self/credentials/"+issued.ID, "",
		f.login(t, "alice"))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	_, err = f.svc.credentials.Get(context.Background(), issued.ID, "bob", nil)
	assert.NoError(t, err, "credential must survive the foreign delete attempts")
}

func TestDeleteAll(t *testing.T) {
	f := setup(t)
	f.seedUser(t, "alice", false)
	cookie := f.login(t, "alice")

	for i := 0; i < 3; i++ {
		_, err := f.svc.credentials.Create(context.Background(), "alice", "")
		require.NoError(t, err)
	}

	resp := f.do(t, fiber.MethodDelete, "/api/v1/users/_self/credentials", "", cookie)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	// idempotent: nothing left to revoke is still success
	resp = f.do(t, fiber.MethodDelete, "/api/v1/users/_self/credentials", "", cookie)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestQueryValidation(t *testing.T) {
	f := setup(t)
	f.seedUser(t, "alice", false)
	cookie := f.login(t, "alice")

	tests := []struct {
		name  string
		query string
	}{
		{name: "limit below minimum", query: "limit=5"},
		{name: "limit above maximum", query: "limit=1001"},
		{name: "negative page", query: "page=-1"},
		{name: "bad sort order", query: "sort_order=sideways"},
		{name: "projection of the hash", query: "fields=secret_hash"},
		{name: "unknown sort key", query: "sort=owner"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.do(t, fiber.MethodGet, "/api/v1/users/_self/credentials?"+tt.query, "", cookie)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		})
	}
}
