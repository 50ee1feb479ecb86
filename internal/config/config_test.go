package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalTOML = `
title = "authnd"

[webserver]
port = 8000
url = "http://localhost:8000"

[oauth.github]
override = false
scope = "user"

[oauth.github.client]
id = "client-id"
secret = "client-secret"

[oauth.github.url]
authorize = "https://github.com/login/oauth/authorize"
accesstoken = "https://github.com/login/oauth/access_token"
userinfo = "https://api.github.com/user"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "main.toml"), []byte(content), 0o600)
	require.NoError(t, err)

	return dir + string(os.PathSeparator)
}

func TestReadConfig_Minimal(t *testing.T) {
	path := writeConfig(t, minimalTOML)

	cfg, err := ReadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "authnd", cfg.Title)
	assert.Equal(t, 8000, cfg.Webserver.Port)

	// defaults applied
	assert.Equal(t, 30*time.Minute, cfg.Webserver.Session.ExpiryTime)
	assert.Equal(t, "session", cfg.Webserver.Session.CookieName)
	assert.Equal(t, 5, cfg.Webserver.ShutDownTime)
	assert.Equal(t, 128, cfg.Security.SecretLength)
	assert.Equal(t, 4, cfg.Security.HashWorkers)
	assert.NotZero(t, cfg.Security.Argon2Memory)

	// provider registry
	require.Contains(t, cfg.OAuth, "github")
	assert.False(t, cfg.OAuth["github"].Override)
	assert.Equal(t, "client-id", cfg.OAuth["github"].Client.ID)
}

func TestReadConfig_MissingPort(t *testing.T) {
	path := writeConfig(t, `
[webserver]
url = "http://localhost"
`)

	_, err := ReadConfig(path)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrWebServerPortCanNotBeZero)
}

func TestReadConfig_MissingURL(t *testing.T) {
	path := writeConfig(t, `
[webserver]
port = 8000
`)

	_, err := ReadConfig(path)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrEmptyURL)
}

func TestReadConfig_IncompleteOAuthClient(t *testing.T) {
	path := writeConfig(t, `
[webserver]
port = 8000
url = "http://localhost"

[oauth.github]
scope = "user"
`)

	_, err := ReadConfig(path)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrOAuthClientIncomplete)
}

func TestReadConfig_EnvJSONOverride(t *testing.T) {
	path := writeConfig(t, minimalTOML)

	t.Setenv(EnvConfigJSON, `{"Webserver":{"Port":9000,"URL":"http://localhost:9000"}}`)

	cfg, err := ReadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Webserver.Port)
	assert.Equal(t, "http://localhost:9000", cfg.Webserver.URL)
}

func TestReadConfig_BadEnvJSON(t *testing.T) {
	path := writeConfig(t, minimalTOML)

	t.Setenv(EnvConfigJSON, `{not json`)

	_, err := ReadConfig(path)
	require.Error(t, err)
}

func TestDumpConfig(t *testing.T) {
	cfg := Config{Title: "authnd"}

	out, err := DumpConfig(cfg)
	require.NoError(t, err)
	assert.Contains(t, out, `Title = "authnd"`)
}
