package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/agentmemory/types"
)

func TestCache_SetGetExpire(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	ctx := context.Background()

	require.NoError(t, env.adapter.SetCache(ctx, "k", 42, WithTTL(time.Minute)))

	v, ok, err := env.adapter.GetCache(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 42, v)

	env.clock.Advance(2 * time.Minute)
	v, ok, err = env.adapter.GetCache(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, v)

	_, exists, err := env.store.Get(ctx, types.CollectionCache, "k")
	require.NoError(t, err)
	assert.False(t, exists, "expired entry is removed from storage")
}

func TestCache_ManuallyExpiredEntry(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	ctx := context.Background()

	past := env.clock.Now().Add(-time.Second).UnixMilli()
	raw := []byte(fmt.Sprintf(`{"value":"stale","expiresAt":%d}`, past))
	require.NoError(t, env.store.Set(ctx, types.CollectionCache, "old", raw))

	_, ok, err := env.adapter.GetCache(ctx, "old")
	require.NoError(t, err)
	assert.False(t, ok)

	_, exists, err := env.store.Get(ctx, types.CollectionCache, "old")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCache_NoExpiryUnlessRequested(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	ctx := context.Background()

	require.NoError(t, env.adapter.SetCache(ctx, "forever", map[string]any{"a": "b"}))
	env.clock.Advance(365 * 24 * time.Hour)

	var got map[string]string
	ok, err := env.adapter.GetCacheInto(ctx, "forever", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"a": "b"}, got)
}

func TestCache_ExpiresAtWinsOverTTL(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	ctx := context.Background()

	deadline := env.clock.Now().Add(time.Second)
	require.NoError(t, env.adapter.SetCache(ctx, "k", "v", WithTTL(time.Hour), WithExpiresAt(deadline)))

	env.clock.Advance(500 * time.Millisecond)
	_, ok, err := env.adapter.GetCache(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	env.clock.Advance(time.Second)
	_, ok, err = env.adapter.GetCache(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_DeleteAndMissing(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	ctx := context.Background()

	require.NoError(t, env.adapter.SetCache(ctx, "k", true))
	require.NoError(t, env.adapter.DeleteCache(ctx, "k"))
	require.NoError(t, env.adapter.DeleteCache(ctx, "k"))

	_, ok, err := env.adapter.GetCache(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, types.IsErrorCode(env.adapter.SetCache(ctx, "", 1), types.ErrInvalidRequest))
}
