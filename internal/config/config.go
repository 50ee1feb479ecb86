// Package config handles input from etc/*.toml files
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// EnvConfigJSON is the environment variable holding a JSON config overlay.
const EnvConfigJSON = "AUTHND_CONFIG_JSON"

const (
	defaultSessionExpiry     = 30 * time.Minute
	defaultSessionCookie     = "session"
	defaultShutDownTime      = 5
	defaultHashWorkers       = 4
	defaultSecretLength      = 128
	defaultArgon2Memory      = 64 * 1024
	defaultArgon2Iterations  = 2
	defaultArgon2Parallelism = 2
)

// ReadConfig from config file.
func ReadConfig(path string) (Config, error) {
	var c Config

	if path == "" {
		path = "./etc/"
	}

	if _, err := toml.DecodeFile(path+"main.toml", &c); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	// override it from env
	if jsonConfigEnv := os.Getenv(EnvConfigJSON); jsonConfigEnv != "" {
		var err error

		c, err = decodeAndMergeConfig(c, jsonConfigEnv)
		if err != nil {
			return c, err
		}
	}

	return c, validate(&c)
}

func decodeAndMergeConfig(c Config, configAsJSON string) (Config, error) {
	if err := json.Unmarshal([]byte(configAsJSON), &c); err != nil {
		return Config{}, errors.Wrap(err, "failed to merge json config from env")
	}

	return c, nil
}

// DumpConfig config as TOML String.
func DumpConfig(c Config) (string, error) {
	var buffer bytes.Buffer
	t := toml.NewEncoder(&buffer)

	if err := t.Encode(c); err != nil {
		return "", err //nolint:wrapcheck
	}

	return buffer.String(), nil
}

// validate minimal config settings and apply defaults.
func validate(c *Config) error {
	invalidErrMessage := "invalid config"

	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	if c.Webserver.URL == "" {
		return errors.Wrap(ErrEmptyURL, invalidErrMessage)
	}

	for name, provider := range c.OAuth {
		if provider.Client.ID == "" || provider.Client.Secret == "" {
			return errors.Wrap(ErrOAuthClientIncomplete, "oauth provider "+name)
		}
	}

	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = defaultShutDownTime
	}

	if c.Webserver.Session.ExpiryTime == 0 {
		c.Webserver.Session.ExpiryTime = defaultSessionExpiry
	}

	if c.Webserver.Session.CookieName == "" {
		c.Webserver.Session.CookieName = defaultSessionCookie
	}

	if c.Security.HashWorkers == 0 {
		c.Security.HashWorkers = defaultHashWorkers
	}

	if c.Security.SecretLength == 0 {
		c.Security.SecretLength = defaultSecretLength
	}

	if c.Security.Argon2Memory == 0 {
		c.Security.Argon2Memory = defaultArgon2Memory
	}

	if c.Security.Argon2Iterations == 0 {
		c.Security.Argon2Iterations = defaultArgon2Iterations
	}

	if c.Security.Argon2Parallelism == 0 {
		c.Security.Argon2Parallelism = defaultArgon2Parallelism
	}

	return nil
}
