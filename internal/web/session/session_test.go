package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	assert.Panics(t, func() { Init(nil) })

	Init(NewMemoryStorage())
	assert.NotNil(t, Store)
}

func TestGenerateSessionID(t *testing.T) {
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		token, err := GenerateSessionID()
		require.NoError(t, err)
		assert.Len(t, token, 64)
		assert.False(t, seen[token])
		seen[token] = true
	}
}

func TestWriteRead(t *testing.T) {
	Init(NewMemoryStorage())

	token, err := GenerateSessionID()
	require.NoError(t, err)

	in := Data{Username: "alice"}
	require.NoError(t, in.Write(token, time.Minute))

	var out Data
	require.NoError(t, out.Read(token))
	assert.Equal(t, "alice", out.Username)
}

func TestReadUnknownToken(t *testing.T) {
	Init(NewMemoryStorage())

	var out Data
	assert.Error(t, out.Read("no-such-token"))
}

func TestWriteOverwrites(t *testing.T) {
	Init(NewMemoryStorage())

	token, err := GenerateSessionID()
	require.NoError(t, err)

	first := Data{Username: "alice"}
	require.NoError(t, first.Write(token, time.Minute))

	second := Data{Username: "bob"}
	require.NoError(t, second.Write(token, time.Minute))

	var out Data
	require.NoError(t, out.Read(token))
	assert.Equal(t, "bob", out.Username)
}

func TestClear(t *testing.T) {
	Init(NewMemoryStorage())

	token, err := GenerateSessionID()
	require.NoError(t, err)

	in := Data{Username: "alice"}
	require.NoError(t, in.Write(token, time.Minute))
	require.NoError(t, Clear(token))

	var out Data
	assert.Error(t, out.Read(token))

	// clearing an absent token is not an error
	assert.NoError(t, Clear(token))
}

func TestExpiry(t *testing.T) {
	Init(NewMemoryStorage())

	token, err := GenerateSessionID()
	require.NoError(t, err)

	in := Data{Username: "alice"}
	require.NoError(t, in.Write(token, 10*time.Millisecond))

	time.Sleep(30 * time.Millisecond)

	var out Data
	assert.Error(t, out.Read(token))
}
