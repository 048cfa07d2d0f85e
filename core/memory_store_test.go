package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMemoryStore_GetSetDelete(t *testing.T) {
	store := NewMemoryStore(0)
	defer store.Close()
	ctx := context.Background()

	value, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, value)

	require.NoError(t, store.Set(ctx, "sid:authToken", "tok-1", 0))
	value, err = store.Get(ctx, "sid:authToken")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", value)

	ok, err := store.Exists(ctx, "sid:authToken")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Set(ctx, "sid:userData", "{}", 0))
	require.NoError(t, store.Delete(ctx, "sid:authToken", "sid:userData", "never-set"))

	ok, err = store.Exists(ctx, "sid:authToken")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStore_TTL(t *testing.T) {
	store := NewMemoryStore(0)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "short", "v", 10*time.Millisecond))
	require.NoError(t, store.Set(ctx, "forever", "v", 0))

	time.Sleep(25 * time.Millisecond)

	value, err := store.Get(ctx, "short")
	require.NoError(t, err)
	assert.Empty(t, value, "expired entries read as absent")

	ok, _ := store.Exists(ctx, "short")
	assert.False(t, ok)

	value, _ = store.Get(ctx, "forever")
	assert.Equal(t, "v", value)
}

func TestMemoryStore_SweeperRemovesExpired(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := NewMemoryStore(5 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", "1", time.Millisecond))
	require.NoError(t, store.Set(ctx, "b", "2", 0))

	assert.Eventually(t, func() bool { return store.Len() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, store.Close())
	require.NoError(t, store.Close(), "second close is a no-op")
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore(0)
	defer store.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("session-%d:authToken", i)
			_ = store.Set(ctx, key, "tok", time.Minute)
			_, _ = store.Get(ctx, key)
			_, _ = store.Exists(ctx, key)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, store.Len())
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		store, err := OpenStore(ctx, SessionConfig{Provider: SessionProviderMemory}, nil)
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &MemoryStore{}, store)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := OpenStore(ctx, SessionConfig{Provider: "etcd"}, nil)
		assert.ErrorIs(t, err, ErrInvalidConfiguration)
	})
}
