package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisBackend(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	backend, err := NewRedis(client, "test:")
	require.NoError(t, err)
	return backend, mr
}

func TestRedisRoundTripAndTTL(t *testing.T) {
	backend, mr := newRedisBackend(t)
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, "k1", []byte(`{"ok":true}`), 5*time.Minute))
	assert.True(t, mr.Exists("test:k1"))

	got, ok, err := backend.Get(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"ok":true}`, string(got))

	mr.FastForward(5*time.Minute + time.Second)
	_, ok, err = backend.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisFlushOnlyOwnPrefix(t *testing.T) {
	backend, mr := newRedisBackend(t)
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, backend.Set(ctx, "b", []byte("2"), time.Minute))
	require.NoError(t, mr.Set("other:key", "keep"))

	require.NoError(t, backend.Flush(ctx))
	assert.False(t, mr.Exists("test:a"))
	assert.False(t, mr.Exists("test:b"))
	assert.True(t, mr.Exists("other:key"))
}

func TestResultCacheOverRedis(t *testing.T) {
	backend, _ := newRedisBackend(t)
	ctx := context.Background()

	rc, err := New(backend)
	require.NoError(t, err)

	rc.Put(ctx, "listar_comercios", map[string]any{"limite": 10, "offset": 0}, []byte(`[]`))
	got, ok := rc.Get(ctx, "listar_comercios", map[string]any{"offset": 0, "limite": 10})
	assert.True(t, ok)
	assert.Equal(t, `[]`, string(got))
}
