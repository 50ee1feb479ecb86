package session

import (
	"sync"
	"time"

	"github.com/gofiber/storage"
)

// MemoryStorage is a process-local storage.Storage with TTL support. It is
// used in dev mode and by tests; production deployments use the mysql or
// postgres storage backends.
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string]memoryEntry
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

var _ storage.Storage = (*MemoryStorage)(nil)

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string]memoryEntry)}
}

// Get returns the value for key, or nil if absent or expired.
func (s *MemoryStorage) Get(key string) ([]byte, error) {
	s.mu.RLock()
	entry, ok := s.data[key]
	s.mu.RUnlock()

	if !ok {
		return nil, nil
	}

	if !entry.expires.IsZero() && time.Now().After(entry.expires) {
		_ = s.Delete(key)
		return nil, nil
	}

	out := make([]byte, len(entry.value))
	copy(out, entry.value)

	return out, nil
}

// Set stores the value for key with an optional expiry.
func (s *MemoryStorage) Set(key string, val []byte, exp time.Duration) error {
	buf := make([]byte, len(val))
	copy(buf, val)

	entry := memoryEntry{value: buf}
	if exp > 0 {
		entry.expires = time.Now().Add(exp)
	}

	s.mu.Lock()
	s.data[key] = entry
	s.mu.Unlock()

	return nil
}

// Delete removes the value for key.
func (s *MemoryStorage) Delete(key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()

	return nil
}

// Reset removes all keys.
func (s *MemoryStorage) Reset() error {
	s.mu.Lock()
	s.data = make(map[string]memoryEntry)
	s.mu.Unlock()

	return nil
}

// Close is a no-op.
func (s *MemoryStorage) Close() error { return nil }
