// Package session maps opaque tokens to usernames in a process-external
// store with a fixed idle timeout.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/storage"
)

// Store is the global session store instance.
var Store *session.Store

// Data represents the session data bound to a token. It carries only the
// resolved username; the identity projection is loaded fresh per request.
type Data struct {
	Username string
}

// Write binds the session data to token with an expiration duration.
// Mutation is last-writer-wins per token.
func (s *Data) Write(token string, exp time.Duration) error {
	out, err := json.Marshal(s)
	if err != nil {
		return err
	}

	return Store.Storage.Set(token, out, exp)
}

// Read loads the session data bound to token.
func (s *Data) Read(token string) error {
	byteData, err := Store.Storage.Get(token)
	if err != nil {
		return err
	}

	return json.Unmarshal(byteData, s)
}

// Clear removes the session bound to token.
func Clear(token string) error {
	return Store.Storage.Delete(token)
}

// Init initializes the session store with the provided storage backend.
func Init(storage storage.Storage) {
	if storage == nil {
		panic("storage is nil")
	}

	Store = session.New(session.Config{
		Storage: storage,
	})
}

// GenerateSessionID generates a new secure random session token.
func GenerateSessionID() (string, error) {
	// 32 bytes = 256 bits
	b := make([]byte, 32) //nolint:mnd
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}
