package authenticate

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

func setup(t *testing.T) (*fiber.App, *Service) {
	t.Helper()

	session.Init(session.NewMemoryStorage())

	app := fiber.New()
	svc := new(Service)
	require.NoError(t, svc.Init(app, newTestConfig(), newTestDB(t)))

	return app, svc
}

func postLogin(t *testing.T, app *fiber.App, body string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(fiber.MethodPost, Path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	return resp
}

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()

	for _, c := range resp.Cookies() {
		if c.Name == "session" && c.Value != "" {
			return c
		}
	}

	t.Fatal("no session cookie in response")

	return nil
}

func TestLocalLogin(t *testing.T) {
	app, svc := setup(t)

	_, err := svc.directory.Create(context.Background(), "alice", "alice@example.com", "Alice", "s3cr3t", false)
	require.NoError(t, err)

	resp := postLogin(t, app, `{"username":"alice","password":"s3cr3t"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var identity models.Identity
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&identity))
	assert.Equal(t, "alice", identity.ID)

	// session cookie must resolve on the next request
	req := httptest.NewRequest(fiber.MethodGet, Path, nil)
	req.AddCookie(sessionCookie(t, resp))

	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestLocalLoginRejected(t *testing.T) {
	app, svc := setup(t)

	_, err := svc.directory.Create(context.Background(), "alice", "", "", "s3cr3t", false)
	require.NoError(t, err)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{name: "wrong password", body: `{"username":"alice","password":"nope"}`, status: fiber.StatusUnauthorized},
		{name: "unknown user", body: `{"username":"ghost","password":"s3cr3t"}`, status: fiber.StatusUnauthorized},
		{name: "missing password", body: `{"username":"alice"}`, status: fiber.StatusBadRequest},
		{name: "bad auth type", body: `{"username":"alice","password":"s3cr3t","auth_type":"bogus"}`, status: fiber.StatusBadRequest},
		{name: "ldap not configured", body: `{"username":"alice","password":"s3cr3t","auth_type":"ldap"}`, status: fiber.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postLogin(t, app, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestFederatedAccountHasNoLocalLogin(t *testing.T) {
	app, svc := setup(t)

	_, err := svc.directory.CreateExternal(context.Background(), "carol", "", "", models.OAuthBackend("github"))
	require.NoError(t, err)

	resp := postLogin(t, app, `{"username":"carol","password":"anything"}`)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestGetUnauthenticated(t *testing.T) {
	app, _ := setup(t)

	req := httptest.NewRequest(fiber.MethodGet, Path, nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestLogout(t *testing.T) {
	app, svc := setup(t)

	_, err := svc.directory.Create(context.Background(), "alice", "", "", "s3cr3t", false)
	require.NoError(t, err)

	resp := postLogin(t, app, `{"username":"alice","password":"s3cr3t"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	cookie := sessionCookie(t, resp)

	req := httptest.NewRequest(fiber.MethodDelete, Path, nil)
	req.AddCookie(cookie)

	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	// the cleared token no longer resolves
	req = httptest.NewRequest(fiber.MethodGet, Path, nil)
	req.AddCookie(cookie)

	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
