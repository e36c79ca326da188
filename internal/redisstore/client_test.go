package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func setupTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := NewClient(&Config{
		Enabled:    true,
		Host:       mr.Host(),
		Port:       mr.Port(),
		DefaultTTL: time.Hour,
	}, zaptest.NewLogger(t))
	require.Equal(t, StateConnected, client.State())
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

func TestNewClient_States(t *testing.T) {
	t.Run("disabled by config", func(t *testing.T) {
		client := NewClient(&Config{Enabled: false}, zap.NewNop())
		assert.Equal(t, StateDisabled, client.State())
		assert.False(t, client.Enabled())
	})

	t.Run("degraded on unreachable server", func(t *testing.T) {
		client := NewClient(&Config{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    "1", // nothing listens here
		}, zap.NewNop())
		assert.Equal(t, StateDegraded, client.State())
		assert.False(t, client.Enabled())

		// Degraded operations are cheap no-ops, never errors
		ctx := context.Background()
		_, found, err := client.Get(ctx, "k")
		assert.False(t, found)
		assert.NoError(t, err)
		assert.NoError(t, client.Delete(ctx, "k"))

		keys, err := client.KeysMatching(ctx, "p:")
		assert.NoError(t, err)
		assert.Nil(t, keys)
	})

	t.Run("connected", func(t *testing.T) {
		client, _ := setupTestClient(t)
		assert.True(t, client.Enabled())
		assert.NoError(t, client.Health())
	})
}

func TestClient_GetSet(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		err := client.SetWithExpiry(ctx, "k1", []byte(`"patient reports headache"`), time.Hour)
		require.NoError(t, err)

		value, found, err := client.Get(ctx, "k1")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, []byte(`"patient reports headache"`), value)
	})

	t.Run("missing key is a miss, not an error", func(t *testing.T) {
		_, found, err := client.Get(ctx, "absent")
		assert.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("zero ttl falls back to default", func(t *testing.T) {
		err := client.SetWithExpiry(ctx, "k2", []byte("v"), 0)
		require.NoError(t, err)
		assert.InDelta(t, time.Hour.Seconds(), mr.TTL("k2").Seconds(), 1)
	})

	t.Run("entry expires", func(t *testing.T) {
		err := client.SetWithExpiry(ctx, "short", []byte("v"), time.Second)
		require.NoError(t, err)

		mr.FastForward(2 * time.Second)

		_, found, err := client.Get(ctx, "short")
		assert.NoError(t, err)
		assert.False(t, found)
	})
}

func TestClient_Delete(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.SetWithExpiry(ctx, "k", []byte("v"), time.Hour))
	require.NoError(t, client.Delete(ctx, "k"))

	_, found, err := client.Get(ctx, "k")
	assert.NoError(t, err)
	assert.False(t, found)

	t.Run("deleting a missing key is fine", func(t *testing.T) {
		assert.NoError(t, client.Delete(ctx, "never-existed"))
	})
}

func TestClient_KeysMatching(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.SetWithExpiry(ctx, "med:transcription:a", []byte("1"), time.Hour))
	require.NoError(t, client.SetWithExpiry(ctx, "med:transcription:b", []byte("2"), time.Hour))
	require.NoError(t, client.SetWithExpiry(ctx, "med:medicalData:a", []byte("3"), time.Hour))

	t.Run("prefix enumeration", func(t *testing.T) {
		keys, err := client.KeysMatching(ctx, "med:transcription:")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"med:transcription:a", "med:transcription:b"}, keys)
	})

	t.Run("glob characters in the prefix match literally", func(t *testing.T) {
		require.NoError(t, client.SetWithExpiry(ctx, "med:lit:a*b:k", []byte("x"), time.Hour))
		require.NoError(t, client.SetWithExpiry(ctx, "med:lit:aXb:k", []byte("y"), time.Hour))

		keys, err := client.KeysMatching(ctx, "med:lit:a*b:")
		require.NoError(t, err)
		assert.Equal(t, []string{"med:lit:a*b:k"}, keys)
	})
}

func TestClient_DeleteMany(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.SetWithExpiry(ctx, "a", []byte("1"), time.Hour))
	require.NoError(t, client.SetWithExpiry(ctx, "b", []byte("2"), time.Hour))
	require.NoError(t, client.SetWithExpiry(ctx, "c", []byte("3"), time.Hour))

	require.NoError(t, client.DeleteMany(ctx, []string{"a", "b"}))

	_, found, _ := client.Get(ctx, "a")
	assert.False(t, found)
	_, found, _ = client.Get(ctx, "c")
	assert.True(t, found)

	t.Run("empty key list is a no-op", func(t *testing.T) {
		assert.NoError(t, client.DeleteMany(ctx, nil))
	})
}

func TestClient_ServerLoss(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx := context.Background()

	mr.Close()

	_, _, err := client.Get(ctx, "k")
	assert.Error(t, err)

	err = client.SetWithExpiry(ctx, "k", []byte("v"), time.Hour)
	assert.Error(t, err)
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `plain:prefix:`, escapeGlob(`plain:prefix:`))
	assert.Equal(t, `a\*b`, escapeGlob(`a*b`))
	assert.Equal(t, `a\?\[c\]`, escapeGlob(`a?[c]`))
	assert.Equal(t, `a\\b`, escapeGlob(`a\b`))
}
