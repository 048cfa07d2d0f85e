package core

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()

	mr := miniredis.RunT(t)
	store, err := NewRedisStore(context.Background(), RedisStoreOptions{
		RedisURL:  "redis://" + mr.Addr(),
		Namespace: "minimall:session",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return mr, store
}

func TestRedisStore_Namespacing(t *testing.T) {
	mr, store := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "sid-1:authToken", "tok", 0))

	raw, err := mr.Get("minimall:session:sid-1:authToken")
	require.NoError(t, err)
	assert.Equal(t, "tok", raw)

	value, err := store.Get(ctx, "sid-1:authToken")
	require.NoError(t, err)
	assert.Equal(t, "tok", value)
}

func TestRedisStore_MissingKey(t *testing.T) {
	_, store := newTestRedisStore(t)

	value, err := store.Get(context.Background(), "nobody:authToken")
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestRedisStore_TTLAndDelete(t *testing.T) {
	mr, store := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "sid:authToken", "tok", time.Minute))
	require.NoError(t, store.Set(ctx, "sid:userData", `{"email":"a@b.c"}`, time.Minute))

	ok, err := store.Exists(ctx, "sid:authToken")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Minute)

	ok, err = store.Exists(ctx, "sid:authToken")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "sid:authToken", "tok", 0))
	require.NoError(t, store.Delete(ctx, "sid:authToken", "sid:userData"))
	assert.False(t, mr.Exists("minimall:session:sid:authToken"))

	require.NoError(t, store.Delete(ctx))
}

func TestRedisStore_BareAddress(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := NewRedisStore(context.Background(), RedisStoreOptions{RedisURL: mr.Addr()})
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.HealthCheck(context.Background()))
}

func TestNewRedisStore_Errors(t *testing.T) {
	t.Run("empty url", func(t *testing.T) {
		_, err := NewRedisStore(context.Background(), RedisStoreOptions{})
		assert.ErrorIs(t, err, ErrInvalidConfiguration)
	})

	t.Run("unreachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		_, err := NewRedisStore(context.Background(), RedisStoreOptions{RedisURL: "redis://" + addr})
		assert.ErrorIs(t, err, ErrConnectionFailed)
	})
}

func TestRedisStore_ServerDown(t *testing.T) {
	mr, store := newTestRedisStore(t)
	mr.Close()

	_, err := store.Get(context.Background(), "sid:authToken")
	require.Error(t, err)

	var fe *FrameworkError
	assert.ErrorAs(t, err, &fe)
	assert.Equal(t, "RedisStore.Get", fe.Op)
}
